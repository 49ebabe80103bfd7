package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/estimaite/internal/feedback"
)

type feedbackRequest struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Email   string `json:"email"`
}

func (h *handler) submitFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "Feedback type and message are required")
		return
	}

	fb, err := h.feedback.Submit(c.Request.Context(), feedback.Input{
		Type:      req.Type,
		Message:   req.Message,
		Email:     req.Email,
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		_ = c.Error(err)
		if feedback.IsValidationError(err) {
			abortError(c, http.StatusBadRequest, validationMessage(err))
			return
		}
		abortError(c, http.StatusInternalServerError, "Failed to process feedback")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"id":      fb.ID,
		"message": "Feedback received successfully",
	})
}

// validationMessage strips the package prefix from a validation error.
func validationMessage(err error) string {
	for _, target := range []error{
		feedback.ErrInvalidType,
		feedback.ErrEmptyMessage,
		feedback.ErrMessageTooLong,
		feedback.ErrInvalidEmail,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "Invalid feedback"
}
