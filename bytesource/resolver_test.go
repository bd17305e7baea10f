package bytesource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReader struct {
	data  []byte
	calls int
}

func (s *stubReader) Read(ctx context.Context, sequenceID uint64, path string) (*Blob, error) {
	s.calls++
	return NewBlob(s.data), nil
}

func TestResolver_DefaultStrategy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.png")
	require.NoError(t, os.WriteFile(path, []byte("pixels"), 0o600))

	r, err := NewResolver()
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Resolve(0, path))
	r.Finalize()

	blob, err := r.Read(context.Background(), 0, path)
	require.NoError(t, err)
	defer blob.Close()
	assert.Equal(t, []byte("pixels"), blob.Data)
}

func TestResolver_SharesContainerHandles(t *testing.T) {
	entries := map[string][]byte{
		"a.png": []byte("aa"),
		"b.png": []byte("bb"),
	}
	archive := writeArchive(t, t.TempDir(), entries)

	r, err := NewResolver()
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Resolve(0, archive+"@a.png"))
	require.NoError(t, r.Resolve(1, archive+"@b.png"))
	assert.Equal(t, 1, r.NumContainers())
	r.Finalize()

	for id, want := range map[uint64][]byte{0: entries["a.png"], 1: entries["b.png"]} {
		name := "a.png"
		if id == 1 {
			name = "b.png"
		}
		blob, err := r.Read(context.Background(), id, archive+"@"+name)
		require.NoError(t, err)
		assert.Equal(t, want, blob.Data)
	}
}

func TestResolver_ContainerSupportDisabled(t *testing.T) {
	r, err := NewResolver()
	require.NoError(t, err)
	defer r.Close()
	r.SetContainerSupport(false)

	err = r.Resolve(0, "archive.zip@img.png")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestResolver_MalformedContainerPath(t *testing.T) {
	r, err := NewResolver()
	require.NoError(t, err)
	defer r.Close()

	require.Error(t, r.Resolve(0, "@img.png"))
	require.Error(t, r.Resolve(1, "archive.zip@"))
	require.Error(t, r.Resolve(2, ""))
}

func TestResolver_RemoteScheme(t *testing.T) {
	r, err := NewResolver()
	require.NoError(t, err)
	defer r.Close()

	stub := &stubReader{data: []byte("remote object")}
	r.SetRemote("s3", stub)

	require.NoError(t, r.Resolve(0, "s3://bucket/key.png"))
	r.Finalize()

	blob, err := r.Read(context.Background(), 0, "s3://bucket/key.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("remote object"), blob.Data)
	assert.Equal(t, 1, stub.calls)
}

func TestResolver_UnknownRemoteScheme(t *testing.T) {
	r, err := NewResolver()
	require.NoError(t, err)
	defer r.Close()

	err = r.Resolve(0, "gopher://bucket/key.png")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
