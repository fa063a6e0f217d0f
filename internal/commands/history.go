package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/store"
	"github.com/nhle/smart-inbox/internal/triage"
	"github.com/nhle/smart-inbox/internal/ui/report"
)

func HistoryCmd(e *env) *cobra.Command {
	var action string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored classifications and booked meetings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.JudgementFilter{Limit: limit}
			if action != "" {
				act := model.Action(strings.ToUpper(strings.TrimSpace(action)))
				if !act.Valid() {
					return fmt.Errorf("unknown action %q", action)
				}
				filter.Action = &act
			}

			ctx := cmd.Context()
			a, err := e.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			recs, err := a.Store.ListJudgements(ctx, filter)
			if err != nil {
				return err
			}
			bookings, err := a.Store.ListBookings(ctx, "")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if e.jsonOut {
				return printJSON(out, map[string]any{"judgements": recs, "bookings": bookings})
			}

			results := make([]triage.ItemResult, 0, len(recs))
			for _, r := range recs {
				results = append(results, triage.ItemResult{
					Email:     model.EmailMessage{ID: r.MessageID, ThreadID: r.ThreadID, From: r.From, Subject: r.Subject},
					Judgement: r.Judgement,
				})
			}
			fmt.Fprintln(out, report.Classifications(results))
			fmt.Fprintln(out, report.Bookings(bookings))
			return nil
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "only show IGNORE, REPLY or SCHEDULE_MEET")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of classifications")
	return cmd
}
