package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateStoragePath(t *testing.T) {
	id := uuid.MustParse("3f2504e0-4f89-11d3-9a0c-0305e82c3301")

	assert.Equal(t, "documents/3f/3f2504e0-4f89-11d3-9a0c-0305e82c3301_Access_Policy.md",
		generateStoragePath(PrefixDocuments, id, "Access Policy.MD"))
	assert.Equal(t, "3f/3f2504e0-4f89-11d3-9a0c-0305e82c3301_passwd.txt",
		generateStoragePath("", id, "../../etc/passwd.txt"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/markdown; charset=utf-8", ContentType("a.markdown"))
	assert.Equal(t, "text/plain; charset=utf-8", ContentType("A.TXT"))
	assert.Equal(t, "application/octet-stream", ContentType("a.bin"))
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	path, err := s.Upload(ctx, PrefixFrameworks, uuid.New(), "gdpr.md", strings.NewReader("Article 5"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "frameworks/"))

	rc, err := s.Download(ctx, path)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = io.Copy(&buf, rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "Article 5", buf.String())

	require.NoError(t, s.Delete(ctx, path))
	require.NoError(t, s.Delete(ctx, path))

	_, err = s.Download(ctx, path)
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = s.Download(ctx, "../outside.txt")
	assert.Error(t, err)
}

func TestConfigFromEnv(t *testing.T) {
	t.Run("local default", func(t *testing.T) {
		t.Setenv("STORAGE_TYPE", "")
		t.Setenv("STORAGE_LOCAL_PATH", "")
		cfg, err := ConfigFromEnv()
		require.NoError(t, err)
		assert.Equal(t, StorageTypeLocal, cfg.Type)
		assert.Equal(t, "./storage/files", cfg.LocalPath)
	})

	t.Run("minio requires endpoint", func(t *testing.T) {
		t.Setenv("STORAGE_TYPE", "minio")
		t.Setenv("MINIO_ENDPOINT", "")
		_, err := ConfigFromEnv()
		assert.Error(t, err)

		t.Setenv("MINIO_ENDPOINT", "localhost:9000")
		t.Setenv("MINIO_USE_SSL", "true")
		cfg, err := ConfigFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "dockguard", cfg.MinioBucket)
		assert.True(t, cfg.MinioUseSSL)
	})

	t.Run("s3 requires bucket", func(t *testing.T) {
		t.Setenv("STORAGE_TYPE", "s3")
		t.Setenv("AWS_S3_BUCKET", "")
		_, err := ConfigFromEnv()
		assert.Error(t, err)
	})

	t.Run("unknown type", func(t *testing.T) {
		t.Setenv("STORAGE_TYPE", "ftp")
		_, err := ConfigFromEnv()
		assert.Error(t, err)
	})
}
