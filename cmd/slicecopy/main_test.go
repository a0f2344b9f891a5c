package main

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/errors"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/slicetypes"
)

// harness runs commands against an in-memory backend and filesystem.
type harness struct {
	app     *app
	backend *testutil.FakeBackend
	fs      billy.Filesystem
	env     map[string]string
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer

	// settings seen by the backend factory
	settings *settings
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		backend: testutil.NewFakeBackend("gs"),
		fs:      memfs.New(),
		env:     map[string]string{},
		stdout:  &bytes.Buffer{},
		stderr:  &bytes.Buffer{},
	}
	h.backend.Put("dst-bucket")

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.app = &app{
		stdout: h.stdout,
		stderr: h.stderr,
		getenv: func(key string) string { return h.env[key] },
		openFS: func(name string) (billy.Filesystem, string, error) {
			return h.fs, name, nil
		},
		newBackend: func(_ context.Context, s *settings, _ *slog.Logger) (slicetypes.Backend, func() error, error) {
			h.settings = s
			return h.backend, noClose, nil
		},
		now: func() time.Time {
			clock = clock.Add(1500 * time.Millisecond)
			return clock
		},
	}
	return h
}

func (h *harness) run(args ...string) error {
	cmd := h.app.rootCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestCopy(t *testing.T) {
	h := newHarness(t)
	h.backend.Put("src-bucket", "in/", "in/1700000000-a.txt", "in/1700000005-b.txt", "in/1700000010-c.txt")

	err := h.run("copy", "src-bucket", "in/", "dst-bucket", "out", "10", "3", "--no-progress")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"out/0/1700000000-a.txt",
		"out/0/1700000010-c.txt",
		"out/5/1700000005-b.txt",
	}, h.backend.Keys("dst-bucket"))

	out := h.stdout.String()
	assert.Contains(t, out, "Copied 3 of 3 files (0 failed, 0 skipped)")
	assert.Contains(t, out, "Total time taken: 1.50 seconds")
	assert.Contains(t, h.stderr.String(), "gs://src-bucket/in/")

	assert.Equal(t, 10, h.settings.job.Slices)
	assert.Equal(t, 3, h.settings.workers)
}

func TestCopy_Defaults(t *testing.T) {
	h := newHarness(t)
	h.backend.Put("src-bucket", "in/4-a", "in/7-b")

	require.NoError(t, h.run("copy", "src-bucket", "in/", "dst-bucket", "out"))

	assert.Equal(t, []string{"out/0/4-a", "out/1/7-b"}, h.backend.Keys("dst-bucket"))
	assert.Equal(t, "gcs", h.settings.backend)
	assert.Equal(t, 2, h.settings.job.Slices)
	assert.Equal(t, 2, h.settings.workers)
	assert.Equal(t, "wait-all", h.settings.failurePolicy)
	assert.Equal(t, "abort", h.settings.onParseError)
	assert.Contains(t, h.stderr.String(), "Copying files", "progress bar is drawn by default")
}

func TestCopy_ParseError(t *testing.T) {
	h := newHarness(t)
	h.backend.Put("src-bucket", "in/1-a", "in/abc-file.txt")

	err := h.run("copy", "src-bucket", "in/", "dst-bucket", "out", "--no-progress")
	require.Error(t, err)
	assert.True(t, errors.IsKeyParse(err))
	assert.Empty(t, h.backend.Keys("dst-bucket"))
	assert.Contains(t, h.stdout.String(), "Total time taken")

	t.Run("skip", func(t *testing.T) {
		h := newHarness(t)
		h.backend.Put("src-bucket", "in/1-a", "in/abc-file.txt")

		err := h.run("copy", "src-bucket", "in/", "dst-bucket", "out", "--no-progress", "--on-parse-error", "skip")
		require.NoError(t, err)
		assert.Equal(t, []string{"out/1/1-a"}, h.backend.Keys("dst-bucket"))
		assert.Contains(t, h.stdout.String(), "1 skipped")
	})
}

func TestCopy_CopyFailure(t *testing.T) {
	h := newHarness(t)
	h.backend.Put("src-bucket", "in/1-a", "in/2-b").
		WithCopyError("in/2-b", errors.ErrAccessDenied)

	err := h.run("copy", "src-bucket", "in/", "dst-bucket", "out", "--no-progress")
	require.Error(t, err)
	assert.True(t, errors.IsAccessDenied(err))
	assert.Equal(t, []string{"out/1/1-a"}, h.backend.Keys("dst-bucket"), "wait-all lets the other copy finish")
	assert.Contains(t, h.stdout.String(), "Copied 1 of 2 files (1 failed, 0 skipped)")
}

func TestCopy_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"too few", []string{"copy", "src-bucket", "in/", "dst-bucket"}},
		{"too many", []string{"copy", "src-bucket", "in/", "dst-bucket", "out", "2", "2", "2"}},
		{"zero slices", []string{"copy", "src-bucket", "in/", "dst-bucket", "out", "0"}},
		{"bad workers", []string{"copy", "src-bucket", "in/", "dst-bucket", "out", "2", "many"}},
		{"bad bucket", []string{"copy", "Src_Bucket!", "in/", "dst-bucket", "out"}},
		{"bad policy", []string{"copy", "src-bucket", "in/", "dst-bucket", "out", "--failure-policy", "retry"}},
		{"bad log level", []string{"copy", "src-bucket", "in/", "dst-bucket", "out", "--log-level", "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.backend.Put("src-bucket", "in/1-a")

			require.Error(t, h.run(tt.args...))
			assert.Zero(t, h.backend.CopyCalls(), "nothing is copied")
		})
	}
}

func TestCopy_DryRun(t *testing.T) {
	h := newHarness(t)
	h.backend.Put("src-bucket", "in/1-a", "in/2-b")

	require.NoError(t, h.run("copy", "src-bucket", "in/", "dst-bucket", "out", "--dry-run", "--no-progress"))

	assert.Zero(t, h.backend.CopyCalls())
	assert.Contains(t, h.stdout.String(), "Planned 2 of 2 files")
}

func TestCopy_ReportAndMetrics(t *testing.T) {
	h := newHarness(t)
	h.backend.Put("src-bucket", "in/1-a", "in/2-b", "in/3-c")

	metricsFile := filepath.Join(t.TempDir(), "slicecopy.prom")
	err := h.run("copy", "src-bucket", "in/", "dst-bucket", "out", "3", "2",
		"--no-progress", "--stream", "--queue-size", "1",
		"--report", "reports/run.jsonl",
		"--metrics-file", metricsFile)
	require.NoError(t, err)
	assert.True(t, h.settings.stream)
	assert.Equal(t, 1, h.settings.queueSize)

	f, err := h.fs.Open("reports/run.jsonl")
	require.NoError(t, err)
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
		assert.Contains(t, scanner.Text(), `"status":"copied"`)
	}
	assert.Equal(t, 3, lines)

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "slicecopy_objects_listed_total 3")
}

func TestPlan(t *testing.T) {
	h := newHarness(t)
	h.backend.Put("src-bucket", "in/", "in/1700000000-a.txt", "in/1700000005-b.txt")

	require.NoError(t, h.run("plan", "src-bucket", "in/", "dst-bucket", "out", "10"))

	lines := strings.Split(strings.TrimSpace(h.stdout.String()), "\n")
	assert.Equal(t, []string{
		"gs://src-bucket/in/1700000000-a.txt -> gs://dst-bucket/out/0/1700000000-a.txt (slice 0)",
		"gs://src-bucket/in/1700000005-b.txt -> gs://dst-bucket/out/5/1700000005-b.txt (slice 5)",
		"2 objects",
	}, lines)
	assert.Zero(t, h.backend.CopyCalls())
}

func TestPlan_ParseError(t *testing.T) {
	h := newHarness(t)
	h.backend.Put("src-bucket", "in/abc-file.txt")

	err := h.run("plan", "src-bucket", "in/", "dst-bucket", "out")
	assert.True(t, errors.IsKeyParse(err))
}

func TestSettings_Precedence(t *testing.T) {
	h := newHarness(t)
	h.backend.Put("src-bucket", "in/1-a")
	require.NoError(t, util.WriteFile(h.fs, "slicecopy.toml", []byte(`
backend = "s3"
region = "eu-west-1"
slices = 7
workers = 5
failure_policy = "collect"
log_level = "debug"
`), 0o644))

	h.env["SLICECOPY_REGION"] = "us-west-2"
	h.env["SLICECOPY_WORKERS"] = "4"
	h.env["SLICECOPY_FAILURE_POLICY"] = "fail-fast"
	h.env["SLICECOPY_NO_PROGRESS"] = "true"

	err := h.run("copy", "src-bucket", "in/", "dst-bucket", "out",
		"--config", "slicecopy.toml",
		"--failure-policy", "wait-all")
	require.NoError(t, err)

	s := h.settings
	assert.Equal(t, "s3", s.backend, "file over default")
	assert.Equal(t, "us-west-2", s.region, "env over file")
	assert.Equal(t, 7, s.job.Slices, "file over default")
	assert.Equal(t, 4, s.workers, "env over file")
	assert.Equal(t, "wait-all", s.failurePolicy, "flag over env")
	assert.Equal(t, "debug", s.logLevel)
	assert.True(t, s.noProgress)

	t.Run("positional over env", func(t *testing.T) {
		h.env["SLICECOPY_SLICES"] = "9"
		require.NoError(t, h.run("copy", "src-bucket", "in/", "dst-bucket", "out", "3", "--config", "slicecopy.toml"))
		assert.Equal(t, 3, h.settings.job.Slices)
	})

	t.Run("config from env", func(t *testing.T) {
		h := newHarness(t)
		h.backend.Put("src-bucket", "in/1-a")
		require.NoError(t, util.WriteFile(h.fs, "conf.json", []byte(`{"slices": 6}`), 0o644))
		h.env["SLICECOPY_CONFIG"] = "conf.json"

		require.NoError(t, h.run("plan", "src-bucket", "in/", "dst-bucket", "out"))
		assert.Equal(t, 6, h.settings.job.Slices)
	})

	t.Run("invalid env int", func(t *testing.T) {
		h := newHarness(t)
		h.env["SLICECOPY_QUEUE_SIZE"] = "lots"
		err := h.run("copy", "src-bucket", "in/", "dst-bucket", "out")
		assert.True(t, errors.IsInvalidConfig(err))
	})

	t.Run("missing config file", func(t *testing.T) {
		h := newHarness(t)
		err := h.run("plan", "src-bucket", "in/", "dst-bucket", "out", "--config", "nope.toml")
		assert.True(t, errors.IsInvalidConfig(err))
	})
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "SLICECOPY_FAILURE_POLICY", envKey("failure-policy"))
	assert.Equal(t, "SLICECOPY_BACKEND", envKey("backend"))
}

func TestOpenBackend_Unknown(t *testing.T) {
	_, _, err := openBackend(context.Background(), &settings{backend: "azure"}, slog.New(slog.DiscardHandler))
	assert.True(t, errors.IsInvalidConfig(err))
}

func TestOpenBackend_MinioRequiresEndpoint(t *testing.T) {
	_, _, err := openBackend(context.Background(), &settings{backend: "minio"}, slog.New(slog.DiscardHandler))
	assert.True(t, errors.IsInvalidConfig(err))
}
