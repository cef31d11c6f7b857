package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"festcal/internal/capture"
	appLog "festcal/internal/log"
	"festcal/internal/web"
)

// CaptureResult describes a written snapshot.
type CaptureResult struct {
	URL    string `json:"url"`
	Output string `json:"output"`
}

// NewCaptureCommand creates the capture command.
func NewCaptureCommand(rootOpts *RootOptions) *cobra.Command {
	var day, out, target string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a day grid of a running server as PNG",
		Long: `Load /day/<day> from the server at the configured listen address in
headless Chromium and write a PNG. The default output is served back at
/preview.png.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(rootOpts, cmd, day, out, target, timeout)
		},
	}

	cmd.Flags().StringVarP(&day, "day", "d", "", "festival day (2006-01-02)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output PNG path (default <data_dir>/preview.png)")
	cmd.Flags().StringVar(&target, "url", "", "page to capture (overrides --day)")
	cmd.Flags().DurationVar(&timeout, "timeout", capture.DefaultTimeout, "capture timeout")
	return cmd
}

func runCapture(opts *RootOptions, cmd *cobra.Command, day, out, target string, timeout time.Duration) error {
	if day == "" && target == "" {
		return WrapExitError(ExitCommandError, "capture needs --day or --url", nil)
	}

	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.close()

	if target == "" {
		target = capture.DayURL(a.cfg.Listen, day)
	}
	if out == "" {
		out = web.PreviewPath(a.cfg)
	}

	appLog.Info("capturing day grid", "url", target, "output", out)
	err = capture.CapturePNG(cmd.Context(), capture.Options{
		URL:        target,
		OutputPath: out,
		Width:      a.cfg.Capture.Width,
		Height:     a.cfg.Capture.Height,
		Timeout:    timeout,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "capture failed", err)
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return f.Success(CaptureResult{URL: target, Output: out}, func(w io.Writer) {
		fmt.Fprintf(w, "wrote %s\n", out)
	})
}
