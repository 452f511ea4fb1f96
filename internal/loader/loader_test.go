package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/philipparndt/plyview/pkg/geometry"
	"github.com/philipparndt/plyview/pkg/ply"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangle = `ply
format ascii 1.0
element vertex 3
property float x
property float y
property float z
end_header
0 0 0
1 0 0
0 1 0
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadLocalPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "models/tri.ply", triangle)
	f := New(Options{BaseDir: dir})

	for _, location := range []string{"./models/tri.ply", "/models/tri.ply", "models/tri.ply", "file://" + filepath.ToSlash(filepath.Join(dir, "models/tri.ply"))} {
		t.Run(location, func(t *testing.T) {
			ps, err := f.Load(context.Background(), location)
			require.NoError(t, err)
			assert.Equal(t, 3, ps.Len())
			assert.Equal(t, "tri.ply", ps.Name)
			assert.Equal(t, geometry.NewVector3(1, 0, 0), ps.Positions[1])
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	f := New(Options{BaseDir: t.TempDir()})

	_, err := f.Load(context.Background(), "missing.ply")
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, 0, loadErr.StatusCode)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tri.ply":
			w.Write([]byte(triangle))
		case "/broken.ply":
			w.Write([]byte("ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 0 0\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	f := New(Options{Client: server.Client()})

	ps, err := f.Load(context.Background(), server.URL+"/tri.ply")
	require.NoError(t, err)
	assert.Equal(t, 3, ps.Len())

	_, err = f.Load(context.Background(), server.URL+"/missing.ply")
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, http.StatusNotFound, loadErr.StatusCode)
	assert.Contains(t, err.Error(), "404")

	_, err = f.Load(context.Background(), server.URL+"/broken.ply")
	var parseErr *ply.ParseError
	assert.True(t, errors.As(err, &parseErr))
	assert.False(t, errors.As(err, &loadErr))
}

func TestLoadCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tri.ply", triangle)
	f := New(Options{BaseDir: dir})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Load(ctx, "tri.ply")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolve(t *testing.T) {
	f := New(Options{BaseDir: "/srv/static"})

	assert.Equal(t, "https://example.com/a.ply", f.Resolve("https://example.com/a.ply"))
	assert.Equal(t, filepath.Join("/srv/static", "models", "a.ply"), f.Resolve("./models/a.ply"))
	assert.Equal(t, filepath.Join("/srv/static", "models", "a.ply"), f.Resolve("/models/a.ply"))
	assert.True(t, IsExternal("HTTP://x/y.ply"))
	assert.False(t, IsExternal("x/y.ply"))
}
