package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/philipparndt/plyview/pkg/ply"
)

// Loader fetches and parses one asset
type Loader interface {
	Load(ctx context.Context, url string) (*ply.PointSet, error)
}

// LoadError reports an asset that could not be fetched
type LoadError struct {
	URL        string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *LoadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to load %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to load %s: %v", e.URL, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Options configures a Fetcher
type Options struct {
	// BaseDir resolves relative and root-relative paths
	BaseDir string
	// Client is used for http and https URLs
	Client *http.Client
	// Timeout bounds a single HTTP request, 0 means no limit
	Timeout time.Duration
}

// Fetcher loads PLY assets from local paths, file:// URLs and http(s) URLs
type Fetcher struct {
	baseDir string
	client  *http.Client
}

// New creates a Fetcher
func New(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Fetcher{baseDir: opts.BaseDir, client: client}
}

// IsExternal reports whether the location is fetched over HTTP
func IsExternal(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Resolve maps a location to a file path or an absolute URL.
// "./a.ply", "/a.ply" and "a.ply" all resolve below the base directory.
func (f *Fetcher) Resolve(location string) string {
	if IsExternal(location) {
		return location
	}
	if strings.HasPrefix(location, "file://") {
		if u, err := url.Parse(location); err == nil {
			return filepath.FromSlash(u.Path)
		}
	}

	rel := strings.TrimPrefix(location, "./")
	rel = strings.TrimLeft(rel, "/")
	return filepath.Join(f.baseDir, filepath.FromSlash(rel))
}

// Load fetches and parses the asset at location
func (f *Fetcher) Load(ctx context.Context, location string) (*ply.PointSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{URL: location, Err: err}
	}

	resolved := f.Resolve(location)

	var body io.ReadCloser
	var err error
	if IsExternal(resolved) {
		body, err = f.fetch(ctx, resolved)
	} else {
		body, err = os.Open(resolved)
		if err != nil {
			err = &LoadError{URL: location, Err: err}
		}
	}
	if err != nil {
		return nil, err
	}
	defer body.Close()

	ps, err := ply.Parse(&contextReader{ctx: ctx, r: body})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &LoadError{URL: location, Err: ctxErr}
		}
		return nil, fmt.Errorf("failed to parse %s: %w", location, err)
	}

	ps.Name = path.Base(strings.TrimRight(location, "/"))
	return ps, nil
}

func (f *Fetcher) fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, &LoadError{URL: location, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &LoadError{URL: location, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &LoadError{
			URL:        location,
			StatusCode: resp.StatusCode,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}
	return resp.Body, nil
}

// contextReader stops reading once the context is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
