package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/slot"
	"github.com/nhle/smart-inbox/internal/triage"
	"github.com/nhle/smart-inbox/internal/ui/conflict"
	"github.com/nhle/smart-inbox/internal/ui/report"
)

func ScheduleCmd(e *env) *cobra.Command {
	var all, check, auto bool
	var start, end string

	cmd := &cobra.Command{
		Use:   "schedule [message-id]",
		Short: "Book meetings requested by email",
		Long: "With a message id, book that one meeting and ask what to do when the slot is busy.\n" +
			"With --all, book every recent meeting request in one batch.",
		Args: cobra.MaximumNArgs(1),
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
			out := cmd.OutOrStdout()

			if all {
				opts := a.ScheduleOptions()
				if cmd.Flags().Changed("check-conflicts") {
					opts.CheckConflicts = check
				}
				if cmd.Flags().Changed("auto-resolve") {
					opts.AutoResolve = auto
				}

				results, err := e.classifyRecent(cmd, a, 0)
				if err != nil {
					return err
				}
				rep, err := e.scheduleBatch(cmd, a, triage.Meetings(results), opts)
				if err != nil {
					return err
				}
				if e.jsonOut {
					return printJSON(out, rep)
				}
				return nil
			}

			email, err := e.findEmail(ctx, a, args[0])
			if err != nil {
				return err
			}
			j := a.Session.Classify(ctx, email)

			var override *model.SlotRequest
			if start != "" {
				override = &model.SlotRequest{Start: model.ParseTimeRef(start), End: model.ParseTimeRef(end)}
			}
			res, err := a.Session.ScheduleOne(ctx, email, j, override)
			if err != nil {
				return err
			}
			if e.jsonOut {
				return printJSON(out, res)
			}
			if res.Pending == nil {
				fmt.Fprintln(out, report.Booking(res.State, res.Result))
				return nil
			}
			_, err = conflict.Resolve(ctx, a.Session, *res.Pending, conflict.Ask, out)
			return err
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "schedule every recent meeting request")
	cmd.Flags().BoolVar(&check, "check-conflicts", true, "check the calendar before booking (batch)")
	cmd.Flags().BoolVar(&auto, "auto-resolve", false, "move busy meetings to the next free slot (batch)")
	cmd.Flags().StringVar(&start, "start", "", "book at this time instead of the requested one")
	cmd.Flags().StringVar(&end, "end", "", "end time for --start")
	return cmd
}

func PendingCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Decide on meetings whose requested slot was busy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := e.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			out := cmd.OutOrStdout()

			list, err := a.Session.Pending(ctx)
			if err != nil {
				return err
			}
			if e.jsonOut {
				return printJSON(out, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No pending conflicts.")
				return nil
			}
			for _, p := range list {
				if _, err := conflict.Resolve(ctx, a.Session, p, conflict.Ask, out); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func SlotCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slot",
		Short: "Calendar availability",
	}
	cmd.AddCommand(slotNextCmd(e))
	return cmd
}

func slotNextCmd(e *env) *cobra.Command {
	var minutes int

	cmd := &cobra.Command{
		Use:   "next <start>",
		Short: "Find the next free slot after start",
		Long: "start is local wall-clock time such as 2025-12-27T10:00:00, or UTC with a trailing Z.\n" +
			"The start itself is never offered.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := e.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			next := a.Resolver.FindNextFreeSlot(ctx, model.ParseTimeRef(args[0]), time.Duration(minutes)*time.Minute)
			d := a.Normalizer.DisplayTime(next.Start)
			if e.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]any{"slot": next, "display": d})
			}
			res := model.BookingResult{
				DateTimeFull: d.FullText,
				EndTimeLocal: a.Normalizer.Clock(next.End),
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Booking(slot.Requested, res))
			return nil
		},
	}
	cmd.Flags().IntVar(&minutes, "duration", 0, "meeting length in minutes (default from config)")
	return cmd
}
