package main

import (
	"context"
	"fmt"
	"log/slog"

	gcsbackend "github.com/input-output-hk/catalyst-forge-libs/slicecopy/backend/gcs"
	miniobackend "github.com/input-output-hk/catalyst-forge-libs/slicecopy/backend/minio"
	s3backend "github.com/input-output-hk/catalyst-forge-libs/slicecopy/backend/s3"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/config"
	scerrors "github.com/input-output-hk/catalyst-forge-libs/slicecopy/errors"
	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/slicetypes"
)

// backendFactory opens the storage backend selected by s. The returned
// close func releases it.
type backendFactory func(ctx context.Context, s *settings, logger *slog.Logger) (slicetypes.Backend, func() error, error)

func noClose() error { return nil }

// openBackend is the production backendFactory.
func openBackend(ctx context.Context, s *settings, logger *slog.Logger) (slicetypes.Backend, func() error, error) {
	switch s.backend {
	case config.BackendGCS:
		opts := []gcsbackend.Option{gcsbackend.WithLogger(logger)}
		if s.credentialsFile != "" {
			opts = append(opts, gcsbackend.WithCredentialsFile(s.credentialsFile))
		}
		if s.endpoint != "" {
			opts = append(opts, gcsbackend.WithEndpoint(s.endpoint))
		}
		b, err := gcsbackend.New(ctx, opts...)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil

	case config.BackendS3:
		opts := []s3backend.Option{
			s3backend.WithLogger(logger),
			s3backend.WithForcePathStyle(s.forcePathStyle),
		}
		if s.region != "" {
			opts = append(opts, s3backend.WithRegion(s.region))
		}
		if s.endpoint != "" {
			opts = append(opts, s3backend.WithEndpoint(s.endpoint))
		}
		b, err := s3backend.New(ctx, opts...)
		if err != nil {
			return nil, nil, err
		}
		return b, noClose, nil

	case config.BackendMinio:
		opts := []miniobackend.Option{
			miniobackend.WithLogger(logger),
			miniobackend.WithSecure(!s.insecure),
		}
		if s.region != "" {
			opts = append(opts, miniobackend.WithRegion(s.region))
		}
		b, err := miniobackend.New(s.endpoint, opts...)
		if err != nil {
			return nil, nil, err
		}
		return b, noClose, nil
	}

	return nil, nil, scerrors.NewError(scerrors.OpConfig,
		fmt.Errorf("%w: unknown backend %q (expected s3, gcs or minio)", scerrors.ErrInvalidConfig, s.backend))
}
