package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/zulandar/estimaite/internal/db"
	"github.com/zulandar/estimaite/internal/feedback"
)

func newFeedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Inspect submitted feedback",
	}

	cmd.AddCommand(newFeedbackListCmd())
	return cmd
}

func newFeedbackListCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent feedback",
		Long:  "Prints the most recent feedback submissions, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeedbackList(cmd, configPath, limit)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to EstimAIte config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", feedback.DefaultListLimit, "maximum number of entries to show")
	return cmd
}

func runFeedbackList(cmd *cobra.Command, configPath string, limit int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	gormDB, err := openFeedbackDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	svc, err := feedback.NewService(gormDB, nil, zerolog.Nop())
	if err != nil {
		return err
	}
	items, err := svc.List(context.Background(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No feedback yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tRECEIVED\tEMAIL\tMESSAGE")
	for _, fb := range items {
		email := fb.Email
		if email == "" {
			email = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			fb.ID, fb.Type, fb.CreatedAt.UTC().Format("2006-01-02 15:04"), email, truncate(fb.Message, 60))
	}
	return w.Flush()
}

// truncate shortens s to at most n runes on a single line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
