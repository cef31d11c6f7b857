package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"festcal/internal/schedule"
)

// LayoutResult is the column layout of one day.
type LayoutResult struct {
	Day    string                 `json:"day"`
	Venues []schedule.VenueColumn `json:"venues"`
}

// NewLayoutCommand creates the layout command.
func NewLayoutCommand(rootOpts *RootOptions) *cobra.Command {
	var day, venue string

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the overlap layout of a festival day",
		Long: `Fetch the programme and print, for each venue of the given day, the
column each screening occupies and how many columns its overlap group needs.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(rootOpts, cmd, day, venue)
		},
	}

	cmd.Flags().StringVarP(&day, "day", "d", "", "festival day (2006-01-02)")
	cmd.Flags().StringVar(&venue, "venue", "", "only this venue")
	_ = cmd.MarkFlagRequired("day")
	return cmd
}

func runLayout(opts *RootOptions, cmd *cobra.Command, day, venue string) error {
	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.schedule.Refresh(cmd.Context()); err != nil {
		return WrapExitError(ExitFailure, "failed to refresh programme", err)
	}

	snap := a.schedule.Current()
	var cols []schedule.VenueColumn
	if venue != "" {
		cols = []schedule.VenueColumn{schedule.VenueLayout(snap.ByVenue(day, venue), venue)}
	} else {
		cols = schedule.DayLayout(snap, day)
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return f.Success(LayoutResult{Day: day, Venues: cols}, func(w io.Writer) {
		writeLayoutText(w, day, cols)
	})
}

func writeLayoutText(w io.Writer, day string, cols []schedule.VenueColumn) {
	if len(cols) == 0 {
		fmt.Fprintf(w, "no screenings on %s\n", day)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range cols {
		fmt.Fprintf(tw, "%s\n", c.Venue)
		for _, it := range c.Items {
			fmt.Fprintf(tw, "  %s-%s\tcol %d/%d\t%s\n", it.StartTime, it.EndTime, it.Column+1, it.TotalColumns, it.Title)
		}
	}
	tw.Flush()
}
