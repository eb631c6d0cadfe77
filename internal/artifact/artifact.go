// Package artifact stores exported documents.
package artifact

import (
	"context"
	"fmt"

	"brdwizard/internal/config"
	"brdwizard/internal/export"
)

// Driver names a sink backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

// Sink persists rendered artifacts and returns where each one went.
type Sink interface {
	Driver() Driver
	Put(ctx context.Context, art export.Artifact) (string, error)
}

// Opener builds the S3 sink; it is injected so this package does not pull
// the AWS SDK into callers that only write files.
type Opener func(ctx context.Context, cfg config.S3Config) (Sink, error)

// Open returns the sink cfg selects. dir is the resolved export directory.
func Open(ctx context.Context, cfg config.ExportConfig, dir string, openS3 Opener) (Sink, error) {
	switch Driver(cfg.Sink) {
	case DriverFilesystem, "":
		return NewFS(dir)
	case DriverS3:
		if openS3 == nil {
			return nil, fmt.Errorf("s3 sink not available")
		}
		return openS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown export sink %q", cfg.Sink)
	}
}
