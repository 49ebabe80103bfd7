package models

// Story is the unit of work being estimated.
type Story struct {
	Title              string      `json:"title"`
	Description        string      `json:"description"`
	AcceptanceCriteria []string    `json:"acceptanceCriteria,omitempty"`
	AIAnalysis         *AIAnalysis `json:"aiAnalysis,omitempty"`
}

// AIAnalysis is an externally produced classification attached to a story.
// The engine stores it verbatim and never computes it.
type AIAnalysis struct {
	Complexity      string    `json:"complexity"`
	SuggestedPoints []float64 `json:"suggestedPoints"`
	Reasoning       string    `json:"reasoning"`
	Tags            []string  `json:"tags"`
	Recommendations []string  `json:"recommendations,omitempty"`
}

// Clone returns a deep copy of the story so snapshots never alias room state.
func (s *Story) Clone() *Story {
	if s == nil {
		return nil
	}
	out := *s
	if s.AcceptanceCriteria != nil {
		out.AcceptanceCriteria = append([]string(nil), s.AcceptanceCriteria...)
	}
	if s.AIAnalysis != nil {
		a := *s.AIAnalysis
		a.SuggestedPoints = append([]float64(nil), s.AIAnalysis.SuggestedPoints...)
		a.Tags = append([]string(nil), s.AIAnalysis.Tags...)
		if s.AIAnalysis.Recommendations != nil {
			a.Recommendations = append([]string(nil), s.AIAnalysis.Recommendations...)
		}
		out.AIAnalysis = &a
	}
	return &out
}
