package server

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/philipparndt/plyview/internal/config"
	"github.com/philipparndt/plyview/internal/scene"
	"github.com/philipparndt/plyview/pkg/viewer"
)

// maxRenderSize bounds the size query parameter
const maxRenderSize = 2048

// Options configures a Server
type Options struct {
	Composer *scene.Composer
	Gallery  *config.Gallery
	Logger   *slog.Logger
	// WaitTimeout bounds how long a render request waits for loads when
	// called with wait=true
	WaitTimeout time.Duration
}

// Server exposes the mounted items over HTTP
type Server struct {
	composer    *scene.Composer
	gallery     *config.Gallery
	logger      *slog.Logger
	waitTimeout time.Duration
	engine      *gin.Engine
}

// New creates a Server and registers its routes
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Gallery == nil {
		opts.Gallery = &config.Gallery{}
		opts.Gallery.Resolve(config.Flags{})
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 30 * time.Second
	}

	s := &Server{
		composer:    opts.Composer,
		gallery:     opts.Gallery,
		logger:      opts.Logger,
		waitTimeout: opts.WaitTimeout,
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests())

	api := r.Group("/api")
	{
		api.GET("/gallery", s.getGallery)
		api.GET("/gallery/render", s.renderGallery)
		api.GET("/items", s.listItems)
		api.PUT("/items", s.replaceItems)
		api.GET("/items/:item", s.getItem)
		api.GET("/items/:item/render", s.renderItem)
	}
	if s.gallery.BaseDir != "" {
		r.Static("/assets", s.gallery.BaseDir)
	}

	s.engine = r
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

func (s *Server) getGallery(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"heading":  s.gallery.Heading,
		"text":     s.gallery.Text,
		"cellSize": s.gallery.CellSize,
		"columns":  s.gallery.Columns,
		"items":    s.composer.Status(),
	})
}

func (s *Server) listItems(c *gin.Context) {
	c.JSON(http.StatusOK, s.composer.Status())
}

func (s *Server) replaceItems(c *gin.Context) {
	var items []scene.ViewItem
	if err := c.ShouldBindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.composer.SetItems(items)
	s.logger.Info("items replaced", "count", len(items))
	c.JSON(http.StatusAccepted, s.composer.Status())
}

func (s *Server) getItem(c *gin.Context) {
	v, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, v.Status())
}

func (s *Server) renderItem(c *gin.Context) {
	v, ok := s.lookup(c)
	if !ok {
		return
	}
	settings, format, ok := s.renderParams(c)
	if !ok {
		return
	}
	if !s.waitIfRequested(c) {
		return
	}

	s.writeImage(c, v.Render(settings), format)
}

func (s *Server) renderGallery(c *gin.Context) {
	settings, format, ok := s.renderParams(c)
	if !ok {
		return
	}
	if !s.waitIfRequested(c) {
		return
	}

	viewers := s.composer.Viewers()
	cells := make([]image.Image, len(viewers))
	for i, v := range viewers {
		cells[i] = v.Render(settings)
	}
	cellSize := settings.Width
	if settings.Height > cellSize {
		cellSize = settings.Height
	}
	s.writeImage(c, viewer.Compose(cells, s.gallery.Columns, cellSize, settings.Background), format)
}

func (s *Server) lookup(c *gin.Context) (*scene.Viewer, bool) {
	index, err := strconv.Atoi(c.Param("item"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item must be a number"})
		return nil, false
	}
	v, ok := s.composer.Viewer(index)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such item"})
		return nil, false
	}
	return v, true
}

func (s *Server) renderParams(c *gin.Context) (viewer.Settings, viewer.Format, bool) {
	settings, err := s.gallery.Render.Settings()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return settings, "", false
	}

	format, err := s.gallery.Render.OutputFormat()
	if q := c.Query("format"); q != "" {
		format, err = viewer.ParseFormat(q)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return settings, "", false
	}

	if q := c.Query("size"); q != "" {
		size, err := strconv.Atoi(q)
		if err != nil || size <= 0 || size > maxRenderSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid size"})
			return settings, "", false
		}
		settings.Width, settings.Height = size, size
	}
	return settings, format, true
}

func (s *Server) waitIfRequested(c *gin.Context) bool {
	if c.Query("wait") != "true" {
		return true
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.waitTimeout)
	defer cancel()
	if err := s.composer.Wait(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (s *Server) writeImage(c *gin.Context, img image.Image, format viewer.Format) {
	var buf bytes.Buffer
	if err := viewer.Encode(&buf, img, format); err != nil {
		s.logger.Error("failed to encode image", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
