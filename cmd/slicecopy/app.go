package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/internal/lister"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/internal/logging"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/internal/progress"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/report"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/slicetypes"
)

// progressLogInterval throttles the log tracker used with --no-progress.
const progressLogInterval = 2 * time.Second

// app carries the process dependencies so commands can run against fakes.
type app struct {
	stdout     io.Writer
	stderr     io.Writer
	getenv     func(string) string
	openFS     func(name string) (billy.Filesystem, string, error)
	newBackend backendFactory
	now        func() time.Time
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:     stdout,
		stderr:     stderr,
		getenv:     os.Getenv,
		openFS:     openOSFS,
		newBackend: openBackend,
		now:        time.Now,
	}
}

// openOSFS returns an OS filesystem rooted at the directory of name and the
// base name inside it.
func openOSFS(name string) (billy.Filesystem, string, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, "", fmt.Errorf("resolve %q: %w", name, err)
	}
	return osfs.New(filepath.Dir(abs)), filepath.Base(abs), nil
}

func (a *app) rootCommand() *cobra.Command {
	flags := &flagValues{}

	root := &cobra.Command{
		Use:           "slicecopy",
		Short:         "Copy objects into numbered slice folders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "configuration file (.toml, .cue or .json)")
	pf.StringVar(&flags.backend, "backend", "", "storage backend: gcs, s3 or minio (default gcs)")
	pf.StringVar(&flags.region, "region", "", "bucket region (s3, minio)")
	pf.StringVar(&flags.endpoint, "endpoint", "", "custom endpoint; required for minio (host:port)")
	pf.BoolVar(&flags.forcePathStyle, "force-path-style", false, "use path-style addressing (s3)")
	pf.BoolVar(&flags.insecure, "insecure", false, "disable TLS (minio)")
	pf.StringVar(&flags.credentialsFile, "credentials-file", "", "service account key file (gcs)")
	pf.StringVar(&flags.onParseError, "on-parse-error", "", "abort or skip keys whose file name has no numeric prefix (default abort)")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format: text or json (default text)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error (default info)")

	root.AddCommand(a.copyCommand(flags), a.planCommand(flags))
	return root
}

func (a *app) copyCommand(flags *flagValues) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy SRC_BUCKET SRC_DIR DST_BUCKET DST_DIR [SLICES [WORKERS]]",
		Short: "Copy every object under SRC_DIR into DST_DIR/<slice>/",
		Long: `Copy every object under SRC_DIR into DST_DIR/<slice>/<file name>.

The slice of an object is the integer before the first "-" in its file name,
modulo SLICES. Folder markers (keys ending in "/") are ignored.`,
		Args: cobra.RangeArgs(4, 6),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCopy(cmd, flags, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.failurePolicy, "failure-policy", "", "wait-all, fail-fast or collect (default wait-all)")
	f.BoolVar(&flags.stream, "stream", false, "copy objects while the listing is still running")
	f.IntVar(&flags.queueSize, "queue-size", 0, "keys buffered between lister and workers with --stream")
	f.BoolVar(&flags.dryRun, "dry-run", false, "derive every task without copying")
	f.BoolVar(&flags.noProgress, "no-progress", false, "log progress instead of drawing a bar")
	f.StringVar(&flags.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	f.StringVar(&flags.report, "report", "", "write one JSON line per task to this file")

	return cmd
}

func (a *app) planCommand(flags *flagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "plan SRC_BUCKET SRC_DIR DST_BUCKET DST_DIR [SLICES]",
		Short: "Print where every object would be copied",
		Args:  cobra.RangeArgs(4, 5),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPlan(cmd, flags, args)
		},
	}
}

func (a *app) runCopy(cmd *cobra.Command, flags *flagValues, args []string) (err error) {
	ctx := cmd.Context()

	s, err := a.resolve(ctx, cmd, flags, args)
	if err != nil {
		return err
	}
	logger, err := logging.Setup(a.stderr, s.logFormat, s.logLevel)
	if err != nil {
		return err
	}

	backend, closeBackend, err := a.newBackend(ctx, s, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeBackend(); cerr != nil {
			logger.Warn("closing backend failed", "error", cerr)
		}
	}()

	opts := []slicetypes.Option{
		slicecopy.WithLogger(logger),
		slicecopy.WithMaxWorkers(s.workers),
		slicecopy.WithFailurePolicy(slicetypes.FailurePolicy(s.failurePolicy)),
		slicecopy.WithParseErrorPolicy(slicetypes.ParseErrorPolicy(s.onParseError)),
		slicecopy.WithDryRun(s.dryRun),
		slicecopy.WithProgress(a.tracker(s, logger)),
	}
	if s.stream {
		opts = append(opts, slicecopy.WithStreaming(s.queueSize))
	}

	var m *metrics.Metrics
	if s.metricsFile != "" {
		m = metrics.New()
		opts = append(opts, slicecopy.WithMetrics(m))
	}

	if s.report != "" {
		fsys, name, ferr := a.openFS(s.report)
		if ferr != nil {
			return ferr
		}
		rep, rerr := report.Create(fsys, name)
		if rerr != nil {
			return rerr
		}
		defer func() {
			if cerr := rep.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		opts = append(opts, slicecopy.WithReporter(rep))
	}

	copier, err := slicecopy.New(backend, opts...)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "getting files",
		"uri", lister.URI(backend.Scheme(), s.job.SourceBucket, s.job.SourcePrefix))

	start := a.now()
	result, err := copier.Run(ctx, s.job)
	elapsed := a.now().Sub(start)

	if result != nil {
		a.printSummary(result, s.dryRun)
	}
	fmt.Fprintf(a.stdout, "Total time taken: %.2f seconds\n", elapsed.Seconds())

	if m != nil {
		if werr := m.WriteTextfile(s.metricsFile); werr != nil {
			logger.Warn("writing metrics failed", "path", s.metricsFile, "error", werr)
			if err == nil {
				err = werr
			}
		}
	}

	return err
}

func (a *app) runPlan(cmd *cobra.Command, flags *flagValues, args []string) error {
	ctx := cmd.Context()

	s, err := a.resolve(ctx, cmd, flags, args)
	if err != nil {
		return err
	}
	logger, err := logging.Setup(a.stderr, s.logFormat, s.logLevel)
	if err != nil {
		return err
	}

	backend, closeBackend, err := a.newBackend(ctx, s, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeBackend(); cerr != nil {
			logger.Warn("closing backend failed", "error", cerr)
		}
	}()

	copier, err := slicecopy.New(backend,
		slicecopy.WithLogger(logger),
		slicecopy.WithParseErrorPolicy(slicetypes.ParseErrorPolicy(s.onParseError)))
	if err != nil {
		return err
	}

	tasks, err := copier.Plan(ctx, s.job)
	if err != nil {
		return err
	}

	scheme := backend.Scheme()
	for _, t := range tasks {
		fmt.Fprintf(a.stdout, "%s -> %s (slice %d)\n",
			lister.URI(scheme, t.SourceBucket, t.SourceKey),
			lister.URI(scheme, t.DestinationBucket, t.DestinationKey),
			t.Slice)
	}
	fmt.Fprintf(a.stdout, "%d objects\n", len(tasks))
	return nil
}

func (a *app) tracker(s *settings, logger *slog.Logger) slicetypes.ProgressTracker {
	if s.noProgress {
		return progress.NewLogTracker(logger, progressLogInterval)
	}
	return progress.NewBar(a.stderr, progress.DefaultDescription)
}

func (a *app) printSummary(r *slicetypes.Result, dryRun bool) {
	if dryRun {
		fmt.Fprintf(a.stdout, "Planned %d of %d files (%d skipped)\n", r.Planned, r.Listed, r.Skipped)
		return
	}
	fmt.Fprintf(a.stdout, "Copied %d of %d files (%d failed, %d skipped)\n", r.Copied, r.Listed, r.Failed, r.Skipped)
}
