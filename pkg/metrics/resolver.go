// Package metrics resolves the natural pixel dimensions of background
// images and caches them by URL for the lifetime of the page.
package metrics

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"github.com/menta2k/tour-viewer/pkg/types"
)

// ErrImageLoad is matched by every resolution failure
var ErrImageLoad = errors.New("image load failed")

// LoadError describes why an image could not be resolved
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load image %q: %v", e.URL, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is makes every LoadError match ErrImageLoad
func (e *LoadError) Is(target error) bool { return target == ErrImageLoad }

// headerLimit bounds how much of an image is read to find its dimensions
const headerLimit = 1 << 20

// Info contains the natural metrics of an image
type Info struct {
	Width       int
	Height      int
	AspectRatio float64
	Format      string
}

// Size converts the info to layout units
func (i Info) Size() types.Size {
	return types.Size{Width: float64(i.Width), Height: float64(i.Height)}
}

type entry struct {
	info Info
	err  error
}

// Resolver fetches image headers and caches the result per URL
type Resolver struct {
	mu     sync.RWMutex
	cache  map[string]entry
	group  singleflight.Group
	client *http.Client
	fsys   fs.FS
	agent  string
	logger *log.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithHTTPClient replaces the client used for http(s) URLs
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithTimeout sets the request timeout of the default client
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.client = &http.Client{Timeout: d} }
}

// WithFS resolves relative paths against fsys instead of the working directory
func WithFS(fsys fs.FS) Option {
	return func(r *Resolver) { r.fsys = fsys }
}

// WithUserAgent sets the User-Agent header for remote requests
func WithUserAgent(agent string) Option {
	return func(r *Resolver) { r.agent = agent }
}

// WithLogger sets the diagnostic logger
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver with an empty cache
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		cache:  make(map[string]entry),
		client: &http.Client{Timeout: 30 * time.Second},
		agent:  "Tour-Viewer/1.0",
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the natural size of the image at rawURL
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (types.Size, error) {
	info, err := r.Info(ctx, rawURL)
	if err != nil {
		return types.Size{}, err
	}
	return info.Size(), nil
}

// Info returns the cached metrics for rawURL, loading them on first use.
// Concurrent callers for the same URL share a single load.
func (r *Resolver) Info(ctx context.Context, rawURL string) (Info, error) {
	if strings.TrimSpace(rawURL) == "" {
		return Info{}, &LoadError{URL: rawURL, Err: errors.New("empty url")}
	}

	r.mu.RLock()
	e, ok := r.cache[rawURL]
	r.mu.RUnlock()
	if ok {
		return e.info, e.err
	}

	ch := r.group.DoChan(rawURL, func() (interface{}, error) {
		r.mu.RLock()
		cached, ok := r.cache[rawURL]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}

		// Detached from the caller so a cancelled waiter does not poison
		// the shared entry for everyone else.
		info, err := r.load(context.WithoutCancel(ctx), rawURL)
		if err != nil {
			err = &LoadError{URL: rawURL, Err: err}
			r.logger.Printf("metrics: warning: %v", err)
		}
		e := entry{info: info, err: err}

		r.mu.Lock()
		r.cache[rawURL] = e
		r.mu.Unlock()
		return e, nil
	})

	select {
	case res := <-ch:
		e := res.Val.(entry)
		return e.info, e.err
	case <-ctx.Done():
		return Info{}, &LoadError{URL: rawURL, Err: ctx.Err()}
	}
}

// Cached reports whether rawURL has a settled cache entry
func (r *Resolver) Cached(rawURL string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.cache[rawURL]
	return ok
}

// Forget drops the cache entry for rawURL
func (r *Resolver) Forget(rawURL string) {
	r.mu.Lock()
	delete(r.cache, rawURL)
	r.mu.Unlock()
	r.group.Forget(rawURL)
}

// Clear drops every cache entry
func (r *Resolver) Clear() {
	r.mu.Lock()
	r.cache = make(map[string]entry)
	r.mu.Unlock()
}

// Len returns the number of cached URLs
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func (r *Resolver) load(ctx context.Context, rawURL string) (Info, error) {
	switch {
	case strings.HasPrefix(rawURL, "data:"):
		data, err := decodeDataURI(rawURL)
		if err != nil {
			return Info{}, err
		}
		return decodeConfig(bytes.NewReader(data))
	case strings.HasPrefix(rawURL, "http://"), strings.HasPrefix(rawURL, "https://"):
		return r.loadRemote(ctx, rawURL)
	default:
		return r.loadFile(rawURL)
	}
}

func (r *Resolver) loadRemote(ctx context.Context, imageURL string) (Info, error) {
	if _, err := url.Parse(imageURL); err != nil {
		return Info{}, fmt.Errorf("invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return Info{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.agent)

	resp, err := r.client.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") && !strings.HasPrefix(ct, "application/octet-stream") {
		return Info{}, fmt.Errorf("URL does not point to an image (Content-Type: %s)", ct)
	}

	return decodeConfig(io.LimitReader(resp.Body, headerLimit))
}

func (r *Resolver) loadFile(p string) (Info, error) {
	if u, err := url.Parse(p); err == nil && u.Scheme == "file" {
		p = u.Path
	}

	var (
		f   io.ReadCloser
		err error
	)
	if r.fsys != nil {
		f, err = r.fsys.Open(path.Clean(strings.TrimPrefix(p, "/")))
	} else {
		f, err = os.Open(p)
	}
	if err != nil {
		return Info{}, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	return decodeConfig(io.LimitReader(f, headerLimit))
}

func decodeConfig(rd io.Reader) (Info, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return Info{}, fmt.Errorf("failed to read image data: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		fallback, ferr := fallbackDecodeConfig(data)
		if ferr != nil {
			return Info{}, fmt.Errorf("failed to decode image: %w", err)
		}
		cfg, format = fallback, "webp"
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, fmt.Errorf("invalid image dimensions %dx%d", cfg.Width, cfg.Height)
	}

	return Info{
		Width:       cfg.Width,
		Height:      cfg.Height,
		AspectRatio: float64(cfg.Width) / float64(cfg.Height),
		Format:      format,
	}, nil
}

func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, errors.New("malformed data URI")
	}
	meta, payload := uri[len("data:"):comma], uri[comma+1:]

	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 payload: %w", err)
		}
		return data, nil
	}

	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid data URI payload: %w", err)
	}
	return []byte(data), nil
}
