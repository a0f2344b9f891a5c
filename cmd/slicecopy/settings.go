package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/config"
	scerrors "github.com/input-output-hk/catalyst-forge-libs/slicecopy/errors"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/slicetypes"
)

// envPrefix prefixes every environment fallback, e.g. SLICECOPY_BACKEND.
const envPrefix = "SLICECOPY_"

// flagValues holds the raw cobra flag values.
type flagValues struct {
	configFile      string
	backend         string
	region          string
	endpoint        string
	forcePathStyle  bool
	insecure        bool
	credentialsFile string
	failurePolicy   string
	onParseError    string
	stream          bool
	queueSize       int
	logFormat       string
	logLevel        string
	metricsFile     string
	report          string
	noProgress      bool
	dryRun          bool
}

// settings is the resolved command configuration.
// Each value comes from the first source that sets it: flag, environment,
// config file, default.
type settings struct {
	job slicetypes.Job

	backend         string
	region          string
	endpoint        string
	forcePathStyle  bool
	insecure        bool
	credentialsFile string

	workers       int
	failurePolicy string
	onParseError  string
	stream        bool
	queueSize     int

	logFormat   string
	logLevel    string
	metricsFile string
	report      string
	noProgress  bool
	dryRun      bool
}

// resolver layers flags, environment and config file.
type resolver struct {
	cmd    *cobra.Command
	getenv func(string) string
	file   *config.File
}

func (a *app) resolve(ctx context.Context, cmd *cobra.Command, flags *flagValues, args []string) (*settings, error) {
	r := &resolver{cmd: cmd, getenv: a.getenv, file: &config.File{}}

	if path := r.stringValue("config", flags.configFile, "", ""); path != "" {
		fsys, name, err := a.openFS(path)
		if err != nil {
			return nil, err
		}
		file, err := config.Load(ctx, fsys, name)
		if err != nil {
			return nil, err
		}
		r.file = file
	}

	s := &settings{
		job: slicetypes.Job{
			SourceBucket:      args[0],
			SourcePrefix:      args[1],
			DestinationBucket: args[2],
			DestinationDir:    args[3],
		},
	}

	var err error
	if s.job.Slices, err = r.positional(args, 4, "slices", r.file.Slices, slicecopy.DefaultSlices); err != nil {
		return nil, err
	}
	if s.workers, err = r.positional(args, 5, "workers", r.file.Workers, slicecopy.DefaultMaxWorkers); err != nil {
		return nil, err
	}
	if s.queueSize, err = r.intValue("queue-size", flags.queueSize, r.file.QueueSize, slicecopy.DefaultQueueSize); err != nil {
		return nil, err
	}

	s.backend = r.stringValue("backend", flags.backend, r.file.Backend, config.BackendGCS)
	s.region = r.stringValue("region", flags.region, r.file.Region, "")
	s.endpoint = r.stringValue("endpoint", flags.endpoint, r.file.Endpoint, "")
	s.credentialsFile = r.stringValue("credentials-file", flags.credentialsFile, r.file.CredentialsFile, "")
	s.failurePolicy = r.stringValue("failure-policy", flags.failurePolicy, r.file.FailurePolicy, string(slicetypes.FailurePolicyWaitAll))
	s.onParseError = r.stringValue("on-parse-error", flags.onParseError, r.file.OnParseError, string(slicetypes.ParseErrorAbort))
	s.logFormat = r.stringValue("log-format", flags.logFormat, r.file.LogFormat, "text")
	s.logLevel = r.stringValue("log-level", flags.logLevel, r.file.LogLevel, "info")
	s.metricsFile = r.stringValue("metrics-file", flags.metricsFile, r.file.MetricsFile, "")
	s.report = r.stringValue("report", flags.report, r.file.Report, "")

	s.forcePathStyle = r.boolValue("force-path-style", flags.forcePathStyle, r.file.ForcePathStyle)
	s.insecure = r.boolValue("insecure", flags.insecure, r.file.Insecure)
	s.stream = r.boolValue("stream", flags.stream, r.file.Stream)
	s.noProgress = r.boolValue("no-progress", flags.noProgress, false)
	s.dryRun = r.boolValue("dry-run", flags.dryRun, false)

	return s, nil
}

// envKey maps a flag name to its environment variable.
func envKey(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

func (r *resolver) changed(name string) bool {
	f := r.cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

func (r *resolver) stringValue(name, flagVal, fileVal, def string) string {
	if r.changed(name) {
		return flagVal
	}
	if v := strings.TrimSpace(r.getenv(envKey(name))); v != "" {
		return v
	}
	if fileVal != "" {
		return fileVal
	}
	return def
}

func (r *resolver) intValue(name string, flagVal, fileVal, def int) (int, error) {
	if r.changed(name) {
		return flagVal, nil
	}
	if v := strings.TrimSpace(r.getenv(envKey(name))); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, invalidSetting(envKey(name), v, "an integer")
		}
		return n, nil
	}
	if fileVal != 0 {
		return fileVal, nil
	}
	return def, nil
}

// positional resolves an optional positional integer argument. An explicit
// argument must be a positive integer.
func (r *resolver) positional(args []string, i int, name string, fileVal, def int) (int, error) {
	if i < len(args) {
		n, err := strconv.Atoi(args[i])
		if err != nil || n <= 0 {
			return 0, invalidSetting(strings.ToUpper(name), args[i], "a positive integer")
		}
		return n, nil
	}
	return r.intValue(name, 0, fileVal, def)
}

func (r *resolver) boolValue(name string, flagVal, fileVal bool) bool {
	if r.changed(name) {
		return flagVal
	}
	switch strings.ToLower(strings.TrimSpace(r.getenv(envKey(name)))) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	}
	return fileVal
}

func invalidSetting(name, value, want string) error {
	return scerrors.NewError(scerrors.OpConfig,
		fmt.Errorf("%w: %s must be %s, got %q", scerrors.ErrInvalidConfig, name, want, value))
}
