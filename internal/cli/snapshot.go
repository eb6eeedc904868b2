package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"panchcal/internal/capture"
	"panchcal/internal/convert"
	appLog "panchcal/internal/log"
	"panchcal/internal/web"
)

// SnapshotResult is the payload of the snapshot command.
type SnapshotResult struct {
	URL       string `json:"url"`
	Path      string `json:"path"`
	Bytes     int    `json:"bytes"`
	ElapsedMS int64  `json:"elapsed_ms"`

	BlackPlane string `json:"black_plane,omitempty"`
	RedPlane   string `json:"red_plane,omitempty"`
}

type snapshotOptions struct {
	url    string
	output string
	year   int
	month  int
	width  int
	height int
	panel  string
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	so := &snapshotOptions{}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render the month page to PNG with headless Chromium",
		Long: `Capture the printable /calendar page as a PNG. Without --url (or
snapshot.url in the config) a private server is started on a loopback
port for the duration of the capture.`,
		Example:       "  panchcal snapshot --year 2026 --month 10 -o october.png",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(rootOpts, so, cmd)
		},
	}

	cmd.Flags().StringVar(&so.url, "url", "", "page to capture (overrides config)")
	cmd.Flags().StringVarP(&so.output, "output", "o", "", "PNG path (overrides config)")
	cmd.Flags().IntVar(&so.year, "year", 0, "year of the month page (default: current)")
	cmd.Flags().IntVar(&so.month, "month", 0, "month of the month page, 1-12 (default: current)")
	cmd.Flags().IntVar(&so.width, "width", 0, "viewport width in pixels (overrides config)")
	cmd.Flags().IntVar(&so.height, "height", 0, "viewport height in pixels (overrides config)")
	cmd.Flags().StringVar(&so.panel, "panel", "", "also write e-paper planes for this panel ("+strings.Join(convert.PanelNames(), ", ")+")")
	return cmd
}

func runSnapshot(opts *RootOptions, so *snapshotOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	sc := opts.cfg.Snapshot

	copts := capture.Options{
		URL:        firstNonEmpty(so.url, sc.URL),
		OutputPath: firstNonEmpty(so.output, sc.Output),
		Width:      firstPositive(so.width, sc.Width),
		Height:     firstPositive(so.height, sc.Height),
		Timeout:    sc.Timeout,
		NoSandbox:  sc.NoSandbox,
	}

	var panel *convert.Panel
	if name := firstNonEmpty(so.panel, sc.Panel); name != "" {
		p, err := convert.PanelByName(name)
		if err != nil {
			return f.Fail("invalid --panel", NewExitError(ExitCommandError, err.Error()))
		}
		panel = &p
		// The page is captured at the panel's native size.
		if so.width == 0 && so.height == 0 {
			copts.Width, copts.Height = p.Width, p.Height
		}
	}

	if copts.URL == "" {
		if so.month < 0 || so.month > 12 {
			return f.Fail("invalid --month", NewExitError(ExitCommandError, "month must be 1..12"))
		}
		today := opts.svc.Today()
		year, month := today.Year, today.Month
		if so.year != 0 {
			year = so.year
		}
		if so.month != 0 {
			month = time.Month(so.month)
		}
		// Validate before starting the browser.
		if _, err := opts.svc.BuildCalendarGrid(year, month); err != nil {
			return f.Fail("month", err)
		}

		base, shutdown, err := serveLoopback(opts)
		if err != nil {
			return f.Fail("local server", err)
		}
		defer shutdown()
		copts.URL = pageURL(base, year, month)
	}

	f.VerboseLog("capturing %s (%dx%d)", copts.URL, copts.Width, copts.Height)
	res, err := capture.CalendarPNG(cmd.Context(), copts)
	if err != nil {
		return f.Fail("snapshot", err)
	}

	out := SnapshotResult{URL: copts.URL, Path: res.Path, Bytes: res.Bytes, ElapsedMS: res.Elapsed.Milliseconds()}
	if panel != nil {
		if out.BlackPlane, out.RedPlane, err = convert.WritePlanes(res.Path, *panel); err != nil {
			return f.Fail("planes", err)
		}
		appLog.Info("e-paper planes written", "panel", panel.Name, "black", out.BlackPlane, "red", out.RedPlane)
	}
	return f.Success(out, func(w io.Writer) error {
		if _, err := fmt.Fprintf(w, "wrote %s (%d bytes) in %s\n", out.Path, out.Bytes, res.Elapsed.Round(time.Millisecond)); err != nil {
			return err
		}
		if out.BlackPlane != "" {
			_, err := fmt.Fprintf(w, "wrote %s and %s\n", out.BlackPlane, out.RedPlane)
			return err
		}
		return nil
	})
}

// serveLoopback serves the calendar handler on an ephemeral loopback port
// without basic auth. The returned func shuts it down.
func serveLoopback(opts *RootOptions) (string, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	local := *opts.cfg
	local.Listen = ln.Addr().String()
	local.BasicAuth = nil

	srv := &http.Server{
		Handler:           web.NewServer(&local, opts.svc).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("loopback server failed", err, "listen", local.Listen)
		}
	}()
	appLog.Debug("loopback server started", "listen", local.Listen)

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return "http://" + local.Listen, shutdown, nil
}

func pageURL(base string, year int, month time.Month) string {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("month", strconv.Itoa(int(month)))
	return base + "/calendar?" + q.Encode()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
