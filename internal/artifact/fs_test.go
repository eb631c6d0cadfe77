package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brdwizard/internal/config"
	"brdwizard/internal/export"
)

func TestFSPut(t *testing.T) {
	root := filepath.Join(t.TempDir(), "exports")
	s, err := NewFS(root)
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, s.Driver())

	path, err := s.Put(context.Background(), export.Artifact{Name: "plan.md", Body: []byte("v1")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "plan.md"), path)

	_, err = s.Put(context.Background(), export.Artifact{Name: "plan.md", Body: []byte("v2")})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFSRejectsBadNames(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)
	for _, name := range []string{"", "  ", "../x.md", "a/b.md", `a\b.md`} {
		_, err := s.Put(context.Background(), export.Artifact{Name: name})
		assert.Error(t, err, name)
	}
}

func TestFSCancelled(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Put(ctx, export.Artifact{Name: "x.md"})
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeSink struct{}

func (fakeSink) Driver() Driver { return DriverS3 }
func (fakeSink) Put(context.Context, export.Artifact) (string, error) {
	return "s3://fake", nil
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, config.ExportConfig{Sink: "fs"}, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, s.Driver())

	_, err = Open(ctx, config.ExportConfig{Sink: "s3"}, dir, nil)
	assert.Error(t, err)

	var got config.S3Config
	s, err = Open(ctx, config.ExportConfig{Sink: "s3", S3: config.S3Config{Bucket: "b"}}, dir,
		func(_ context.Context, c config.S3Config) (Sink, error) { got = c; return fakeSink{}, nil })
	require.NoError(t, err)
	assert.Equal(t, DriverS3, s.Driver())
	assert.Equal(t, "b", got.Bucket)

	_, err = Open(ctx, config.ExportConfig{Sink: "ftp"}, dir, nil)
	assert.Error(t, err)

	_, err = NewFS("")
	assert.Error(t, err)
}
