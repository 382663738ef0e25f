package commands

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/klabast/wb-services/daily-tracker/internal/app"
	"github.com/spf13/cobra"
)

func newListCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List counters in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rt.openStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			names := store.Counters()
			if len(names) == 0 {
				fmt.Fprintln(out, "No counters yet. Create one with: daily-tracker add NAME")
				return nil
			}
			today := app.Today()
			for _, name := range names {
				fmt.Fprintf(out, "%s\t(today: %d)\n", name, store.Count(name, today))
			}
			return nil
		},
	}
}

func newAddCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "add NAME",
		Short: "Create a counter (no-op if it exists)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rt.openStore()
			if err != nil {
				return err
			}
			name := args[0]
			if store.Has(name) {
				fmt.Fprintf(cmd.OutOrStdout(), "Counter %q already exists\n", name)
				return nil
			}
			if err := store.CreateCounter(name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Counter %q created\n", name)
			return nil
		},
	}
}

func newRemoveCommand(rt *runtime) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove NAME",
		Short: "Delete a counter and all of its days",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rt.openStore()
			if err != nil {
				return err
			}
			name := args[0]
			out := cmd.OutOrStdout()
			if !store.Has(name) {
				fmt.Fprintf(out, "Counter %q does not exist\n", name)
				return nil
			}

			if !yes {
				fmt.Fprintf(out, "Delete '%s' counter? (y/N): ", name)
				response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				response = strings.TrimSpace(strings.ToLower(response))
				if response != "y" && response != "yes" {
					fmt.Fprintln(out, "Aborted")
					return nil
				}
			}

			if err := store.DeleteCounter(name); err != nil {
				return err
			}
			fmt.Fprintf(out, "✅ Counter %q deleted\n", name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}

// newAdjustCommand builds inc/dec; sign is +1 or -1
func newAdjustCommand(rt *runtime, use, short string, sign int) *cobra.Command {
	var (
		by   int
		date string
	)

	cmd := &cobra.Command{
		Use:   use + " NAME",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if by < 1 {
				return fmt.Errorf("--by must be at least 1")
			}
			day, err := dayFlag(date)
			if err != nil {
				return err
			}
			store, err := rt.openStore()
			if err != nil {
				return err
			}

			name := args[0]
			count, err := store.Adjust(name, day, sign*by)
			// The new value is valid in memory even when saving failed
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d\n", name, app.DayKey(day), count)
			return err
		},
	}
	cmd.Flags().IntVar(&by, "by", 1, "amount to change by")
	cmd.Flags().StringVar(&date, "date", "", "day to change as YYYY-MM-DD (default today)")
	return cmd
}

func newGetCommand(rt *runtime) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "get NAME",
		Short: "Print a counter's value for a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := dayFlag(date)
			if err != nil {
				return err
			}
			store, err := rt.openStore()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d\n", args[0], app.DayKey(day), store.Count(args[0], day))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD (default today)")
	return cmd
}

// dayFlag parses a --date value, defaulting to today
func dayFlag(value string) (time.Time, error) {
	if value == "" {
		return app.Today(), nil
	}
	return app.ParseDay(value)
}
