// Package config loads slicecopy CLI defaults from a file.
//
// Three formats are accepted, chosen by extension:
//   - .toml
//   - .cue (evaluated and required to be concrete)
//   - .json
//
// Every field is optional; zero values mean "not set" so that flags and
// environment variables can be layered on top.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pelletier/go-toml"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/errors"
)

// Backend names
const (
	BackendS3    = "s3"
	BackendGCS   = "gcs"
	BackendMinio = "minio"
)

// File is the configuration file schema.
type File struct {
	Backend string `json:"backend,omitempty" toml:"backend"`

	// Backend connection settings
	Region          string `json:"region,omitempty" toml:"region"`
	Endpoint        string `json:"endpoint,omitempty" toml:"endpoint"`
	ForcePathStyle  bool   `json:"force_path_style,omitempty" toml:"force_path_style"`
	Insecure        bool   `json:"insecure,omitempty" toml:"insecure"`
	CredentialsFile string `json:"credentials_file,omitempty" toml:"credentials_file"`

	// Run settings
	Slices        int    `json:"slices,omitempty" toml:"slices"`
	Workers       int    `json:"workers,omitempty" toml:"workers"`
	FailurePolicy string `json:"failure_policy,omitempty" toml:"failure_policy"`
	OnParseError  string `json:"on_parse_error,omitempty" toml:"on_parse_error"`
	Stream        bool   `json:"stream,omitempty" toml:"stream"`
	QueueSize     int    `json:"queue_size,omitempty" toml:"queue_size"`

	// Output settings
	LogFormat   string `json:"log_format,omitempty" toml:"log_format"`
	LogLevel    string `json:"log_level,omitempty" toml:"log_level"`
	MetricsFile string `json:"metrics_file,omitempty" toml:"metrics_file"`
	Report      string `json:"report,omitempty" toml:"report"`
}

// Load reads and decodes the configuration file at name from fs.
func Load(ctx context.Context, fs billy.Filesystem, name string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := util.ReadFile(fs, name)
	if err != nil {
		return nil, invalid(name, fmt.Errorf("read: %w", err))
	}

	var f File
	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".toml":
		err = toml.Unmarshal(raw, &f)
	case ".cue":
		err = decodeCUE(raw, name, &f)
	case ".json":
		err = json.Unmarshal(raw, &f)
	default:
		err = fmt.Errorf("unsupported format %q", ext)
	}
	if err != nil {
		return nil, invalid(name, err)
	}

	if err := f.Validate(); err != nil {
		return nil, invalid(name, err)
	}

	return &f, nil
}

// decodeCUE evaluates a CUE document and decodes it into f. CUE decoding
// follows the json struct tags.
func decodeCUE(raw []byte, name string, f *File) error {
	value := cuecontext.New().CompileBytes(raw, cue.Filename(name))
	if err := value.Err(); err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if err := value.Decode(f); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// Validate checks the fields that can be checked without the rest of the
// command line.
func (f *File) Validate() error {
	switch f.Backend {
	case "", BackendS3, BackendGCS, BackendMinio:
	default:
		return fmt.Errorf("unknown backend %q", f.Backend)
	}

	if f.Slices < 0 {
		return fmt.Errorf("slices must not be negative, got %d", f.Slices)
	}
	if f.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", f.Workers)
	}
	if f.QueueSize < 0 {
		return fmt.Errorf("queue_size must not be negative, got %d", f.QueueSize)
	}
	return nil
}

func invalid(name string, err error) error {
	return errors.NewError(errors.OpConfig, fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)).
		WithMessage("config file " + name)
}
