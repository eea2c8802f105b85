package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalStore(t *testing.T) (*LocalStore, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "artifacts")
	s, err := NewLocal(root)
	require.NoError(t, err)
	return s, root
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "src.json")
	require.NoError(t, os.WriteFile(p, []byte(content), 0600))
	return p
}

func TestLocalPutGet(t *testing.T) {
	s, root := newLocalStore(t)
	ctx := context.Background()
	src := writeTemp(t, `{"ok":true}`)

	require.NoError(t, s.Put(ctx, src, "jobs/j1/gnss_data.json"))

	stored, err := os.ReadFile(filepath.Join(root, "jobs", "j1", "gnss_data.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(stored))

	dst := filepath.Join(t.TempDir(), "fetched.json")
	require.NoError(t, s.Get(ctx, "jobs/j1/gnss_data.json", dst))
	fetched, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(fetched))
}

func TestLocalPutOverwrites(t *testing.T) {
	s, root := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, writeTemp(t, "v1"), "doc.json"))
	require.NoError(t, s.Put(ctx, writeTemp(t, "v2"), "doc.json"))

	stored, err := os.ReadFile(filepath.Join(root, "doc.json"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(stored))
}

func TestLocalGetMissing(t *testing.T) {
	s, _ := newLocalStore(t)
	err := s.Get(context.Background(), "jobs/none/doc.json", filepath.Join(t.TempDir(), "out"))

	var serr *StoreError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Get", serr.Op)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalRejectsTraversal(t *testing.T) {
	s, _ := newLocalStore(t)
	ctx := context.Background()
	src := writeTemp(t, "x")

	for _, key := range []string{"../escape.json", "/abs.json", ".", "a/../../b"} {
		err := s.Put(ctx, src, key)
		require.Error(t, err, "key %q", key)
		assert.Contains(t, err.Error(), "invalid key", "key %q", key)
	}
}

func TestLocalPutMissingSource(t *testing.T) {
	s, _ := newLocalStore(t)
	err := s.Put(context.Background(), filepath.Join(t.TempDir(), "missing"), "doc.json")
	require.Error(t, err)
}

func TestLocalCancelledContext(t *testing.T) {
	s, _ := newLocalStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Put(ctx, writeTemp(t, "x"), "doc.json")
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewLocalRequiresRoot(t *testing.T) {
	_, err := NewLocal("")
	require.Error(t, err)
}

func TestStoreErrorUnwrap(t *testing.T) {
	base := errors.New("disk full")
	err := &StoreError{Op: "Put", Key: "k", Err: base}
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "Put")
	assert.Contains(t, err.Error(), "k")
}

func TestS3FullKey(t *testing.T) {
	assert.Equal(t, "jobs/j1/doc.json", (&S3Store{}).fullKey("jobs/j1/doc.json"))
	assert.Equal(t, "team-a/jobs/j1/doc.json", (&S3Store{prefix: "team-a"}).fullKey("jobs/j1/doc.json"))
}

func TestS3ConfigValidate(t *testing.T) {
	assert.NoError(t, (&S3Config{Bucket: "b"}).Validate())
	assert.Error(t, (&S3Config{}).Validate())
	assert.Error(t, (&S3Config{Bucket: "b", AccessKeyID: "id"}).Validate())
	assert.Error(t, (&S3Config{Bucket: "b", SecretAccessKey: "secret"}).Validate())
	assert.NoError(t, (&S3Config{Bucket: "b", AccessKeyID: "id", SecretAccessKey: "secret"}).Validate())
}
