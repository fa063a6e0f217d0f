package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/smart-inbox/internal/app"
	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/triage"
	"github.com/nhle/smart-inbox/internal/ui/progress"
	"github.com/nhle/smart-inbox/internal/ui/report"
)

func TriageCmd(e *env) *cobra.Command {
	var max int
	var schedule, reply bool

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Fetch recent mail and classify it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := e.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := e.classifyRecent(cmd, a, max)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !e.jsonOut {
				fmt.Fprintln(out, report.Classifications(results))
			}

			var reports []triage.BatchReport
			if schedule {
				rep, err := e.scheduleBatch(cmd, a, triage.Meetings(results), a.ScheduleOptions())
				if err != nil {
					return err
				}
				reports = append(reports, rep)
			}
			if reply {
				rep, err := e.sendReplies(cmd, a, triage.Replies(results))
				if err != nil {
					return err
				}
				reports = append(reports, rep)
			}

			if e.jsonOut {
				return printJSON(out, map[string]any{"results": results, "reports": reports})
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&max, "max", 0, "number of recent emails (default from config)")
	cmd.Flags().BoolVar(&schedule, "schedule", false, "also book the meetings that were asked for")
	cmd.Flags().BoolVar(&reply, "reply", false, "also send the drafted replies")
	return cmd
}

func ClassifyCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <message-id>",
		Short: "Classify one recent email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := e.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			email, err := e.findEmail(ctx, a, args[0])
			if err != nil {
				return err
			}
			j := a.Session.Classify(ctx, email)
			if e.jsonOut {
				return printJSON(cmd.OutOrStdout(), triage.ItemResult{Email: email, Judgement: j})
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Judgement(email, j))
			return nil
		},
	}
}

func ReplyCmd(e *env) *cobra.Command {
	var all bool
	var body string

	cmd := &cobra.Command{
		Use:   "reply [message-id]",
		Short: "Send drafted replies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("give a message id or --all")
			}
			ctx := cmd.Context()
			a, err := e.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if all {
				results, err := e.classifyRecent(cmd, a, 0)
				if err != nil {
					return err
				}
				rep, err := e.sendReplies(cmd, a, triage.Replies(results))
				if err != nil {
					return err
				}
				if e.jsonOut {
					return printJSON(cmd.OutOrStdout(), rep)
				}
				return nil
			}

			email, err := e.findEmail(ctx, a, args[0])
			if err != nil {
				return err
			}
			if body == "" {
				body = a.Session.Classify(ctx, email).Reply
			}
			if err := a.Session.Reply(ctx, email, body); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Replied to %q.\n", email.Subject)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "reply to every recent email classified as REPLY")
	cmd.Flags().StringVar(&body, "body", "", "reply text instead of the drafted one")
	return cmd
}

func (e *env) classifyRecent(cmd *cobra.Command, a *app.App, max int) ([]triage.ItemResult, error) {
	if max <= 0 {
		max = e.cfg.Mail.FetchMax
	}
	emails, err := a.Mail.ListRecent(cmd.Context(), max)
	if err != nil {
		return nil, fmt.Errorf("fetching mail: %w", err)
	}

	var results []triage.ItemResult
	err = progress.Run(cmd.Context(), fmt.Sprintf("Classifying %d emails", len(emails)),
		func(ctx context.Context, p triage.Progress) error {
			results = a.Runner.ClassifyBatch(ctx, emails, p)
			return nil
		}, e.progressOut(cmd))
	return results, err
}

func (e *env) scheduleBatch(cmd *cobra.Command, a *app.App, items []triage.ScheduleItem, opts triage.ScheduleOptions) (triage.BatchReport, error) {
	var rep triage.BatchReport
	err := progress.Run(cmd.Context(), fmt.Sprintf("Scheduling %d meetings", len(items)),
		func(ctx context.Context, p triage.Progress) error {
			rep = a.Runner.ScheduleBatch(ctx, items, opts, p)
			return nil
		}, e.progressOut(cmd))
	if err == nil && !e.jsonOut {
		fmt.Fprintln(cmd.OutOrStdout(), report.Batch("Meetings", rep))
	}
	return rep, err
}

func (e *env) sendReplies(cmd *cobra.Command, a *app.App, items []triage.ScheduleItem) (triage.BatchReport, error) {
	var rep triage.BatchReport
	err := progress.Run(cmd.Context(), fmt.Sprintf("Sending %d replies", len(items)),
		func(ctx context.Context, p triage.Progress) error {
			rep = a.Runner.SendReplies(ctx, items, p)
			return nil
		}, e.progressOut(cmd))
	if err == nil && !e.jsonOut {
		fmt.Fprintln(cmd.OutOrStdout(), report.Batch("Replies", rep))
	}
	return rep, err
}

// findEmail looks for id among the recent messages.
func (e *env) findEmail(ctx context.Context, a *app.App, id string) (model.EmailMessage, error) {
	emails, err := a.Mail.ListRecent(ctx, e.cfg.Mail.FetchMax)
	if err != nil {
		return model.EmailMessage{}, fmt.Errorf("fetching mail: %w", err)
	}
	for _, em := range emails {
		if em.ID == id {
			return em, nil
		}
	}
	return model.EmailMessage{}, fmt.Errorf("message %s is not among the %d most recent", id, len(emails))
}
