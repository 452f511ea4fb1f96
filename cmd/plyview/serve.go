package main

import (
	"log/slog"
	"time"

	"github.com/philipparndt/plyview/internal/config"
	"github.com/philipparndt/plyview/internal/loader"
	"github.com/philipparndt/plyview/internal/scene"
	"github.com/philipparndt/plyview/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr        string
	serveOverlay     bool
	serveWaitTimeout time.Duration
	serveMaxLoads    int64
	serveItemFlags   itemFlags
	serveConfigFlags config.Flags
)

var serveCmd = &cobra.Command{
	Use:   "serve [gallery.yaml | files...]",
	Short: "Serve rendered views and load status over HTTP",
	Long: `Mount the items, start loading them in the background and serve their
status and renders as JSON and PNG/WebP. Items can be replaced with PUT /api/items.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveItemFlags.register(serveCmd)
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", ":8080", "Listen address")
	serveCmd.Flags().BoolVar(&serveOverlay, "overlay", false, "Layer all files into a single item")
	serveCmd.Flags().DurationVar(&serveWaitTimeout, "wait-timeout", 30*time.Second, "Maximum wait for render requests with wait=true")
	serveCmd.Flags().Int64Var(&serveMaxLoads, "max-loads", scene.DefaultMaxConcurrentLoads, "Maximum concurrent loads")
	serveCmd.Flags().IntVar(&serveConfigFlags.CellSize, "size", 0, "Default cell size in pixels")
	serveCmd.Flags().IntVar(&serveConfigFlags.Columns, "columns", 0, "Grid columns")
	serveCmd.Flags().IntVar(&serveConfigFlags.Supersample, "supersample", 0, "Supersampling factor")
	serveCmd.Flags().StringVar(&serveConfigFlags.Background, "background", "", "Background color")
	serveCmd.Flags().StringVarP(&serveConfigFlags.Format, "format", "f", "", "Default image format (png, webp)")
	serveCmd.Flags().StringVar(&serveConfigFlags.BaseDir, "base-dir", "", "Directory relative URLs are resolved against")
}

func runServe(cmd *cobra.Command, args []string) error {
	gallery, err := loadGallery(cmd, args, &serveItemFlags, serveOverlay)
	if err != nil {
		return err
	}
	gallery.Resolve(serveConfigFlags)
	if _, err := gallery.Render.Settings(); err != nil {
		return err
	}
	if _, err := gallery.Render.OutputFormat(); err != nil {
		return err
	}

	logger := slog.Default()
	composer := scene.New(scene.Options{
		Loader:             loader.New(loader.Options{BaseDir: gallery.BaseDir}),
		Logger:             logger,
		Defaults:           scene.GridDefaults,
		MaxConcurrentLoads: serveMaxLoads,
	})
	defer composer.Close()

	events, unsubscribe := composer.Subscribe(64)
	defer unsubscribe()
	go func() {
		for ev := range events {
			if ev.Err != nil {
				logger.Warn("load failed", "item", ev.Item, "label", ev.Label, "url", ev.URL, "error", ev.Err)
				continue
			}
			logger.Debug("slot changed", "item", ev.Item, "url", ev.URL, "state", ev.State)
		}
	}()

	composer.SetItems(gallery.Items)

	srv := server.New(server.Options{
		Composer:    composer,
		Gallery:     gallery,
		Logger:      logger,
		WaitTimeout: serveWaitTimeout,
	})
	return srv.Run(cmd.Context(), serveAddr)
}
