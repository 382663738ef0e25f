package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/klabast/wb-services/daily-tracker/internal/app"
	"github.com/spf13/cobra"
)

func newMonthCommand(rt *runtime) *cobra.Command {
	var (
		year, month, offset int
	)

	cmd := &cobra.Command{
		Use:   "month NAME",
		Short: "Print every day of a month with its count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			y, m, err := resolveMonth(year, month, offset)
			if err != nil {
				return err
			}
			store, err := rt.openStore()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s %d\n", args[0], m, y)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tDAY\tCOUNT\tLEVEL")
			total := 0
			for cell := range store.Month(args[0], y, m) {
				total += cell.Count
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", cell.Date, time.Weekday(cell.Weekday).String()[:3], cell.Count, cell.Level)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Total: %d\n", total)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year (default current)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default current)")
	cmd.Flags().IntVar(&offset, "offset", 0, "months relative to the selected month, e.g. -1 for the previous one")
	return cmd
}

func newExportCommand(rt *runtime) *cobra.Command {
	var (
		year, month int
		format      string
		output      string
	)

	cmd := &cobra.Command{
		Use:   "export NAME",
		Short: "Export a counter's days as csv, json or ics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.ValidFormat(format) {
				return fmt.Errorf("%w: %q", app.ErrUnknownFormat, format)
			}
			if year == 0 {
				year = app.Today().Year()
			}
			store, err := rt.openStore()
			if err != nil {
				return err
			}

			export, err := app.BuildExport(store, args[0], year, time.Month(month))
			if err != nil {
				return err
			}

			if output == "" {
				return app.WriteExport(cmd.OutOrStdout(), format, export, time.Now())
			}
			if output == "auto" {
				output = export.Filename(format)
			}

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := app.WriteExport(file, format, export, time.Now()); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✅ Exported to %s\n", output)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year (default current)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default whole year)")
	cmd.Flags().StringVar(&format, "format", app.FormatCSV, "csv, json or ics")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, \"auto\" for a generated name (default stdout)")
	return cmd
}

// resolveMonth applies defaults and the offset to the month flags
func resolveMonth(year, month, offset int) (int, time.Month, error) {
	today := app.Today()
	if year == 0 {
		year = today.Year()
	}
	m := today.Month()
	if month != 0 {
		m = time.Month(month)
		if !app.ValidMonth(m) {
			return 0, 0, fmt.Errorf("%w: %d", app.ErrInvalidMonth, month)
		}
	}
	y, m := app.ShiftMonth(year, m, offset)
	return y, m, nil
}
