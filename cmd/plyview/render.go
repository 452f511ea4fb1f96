package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/philipparndt/plyview/internal/config"
	"github.com/philipparndt/plyview/internal/loader"
	"github.com/philipparndt/plyview/internal/scene"
	"github.com/philipparndt/plyview/pkg/viewer"
	"github.com/spf13/cobra"
)

var (
	renderOutput      string
	renderOverlay     bool
	renderTimeout     time.Duration
	renderRotate      []float64
	renderItemFlags   itemFlags
	renderConfigFlags config.Flags
)

var renderCmd = &cobra.Command{
	Use:   "render [gallery.yaml | files...]",
	Short: "Render PLY files or a gallery to an image",
	Long: `Load every item, wait for all loads to settle and write a grid image.
Each file becomes its own cell unless --overlay layers them into one.
Failed sources are drawn as a placeholder cube.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderItemFlags.register(renderCmd)
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "render.png", "Output image (.png or .webp)")
	renderCmd.Flags().BoolVar(&renderOverlay, "overlay", false, "Layer all files into a single item")
	renderCmd.Flags().DurationVar(&renderTimeout, "timeout", 2*time.Minute, "Maximum time to wait for loads")
	renderCmd.Flags().Float64SliceVar(&renderRotate, "rotate", nil, "Camera rotation in radians as x,y")
	renderCmd.Flags().IntVar(&renderConfigFlags.CellSize, "size", 0, "Cell size in pixels")
	renderCmd.Flags().IntVar(&renderConfigFlags.Columns, "columns", 0, "Grid columns")
	renderCmd.Flags().IntVar(&renderConfigFlags.Supersample, "supersample", 0, "Supersampling factor")
	renderCmd.Flags().StringVar(&renderConfigFlags.Background, "background", "", "Background color")
	renderCmd.Flags().StringVarP(&renderConfigFlags.Format, "format", "f", "", "Image format (png, webp); defaults to the output extension")
	renderCmd.Flags().StringVar(&renderConfigFlags.BaseDir, "base-dir", "", "Directory relative URLs are resolved against")
}

func runRender(cmd *cobra.Command, args []string) error {
	if len(renderRotate) != 0 && len(renderRotate) != 2 {
		return fmt.Errorf("--rotate takes two values, got %d", len(renderRotate))
	}

	gallery, err := loadGallery(cmd, args, &renderItemFlags, renderOverlay)
	if err != nil {
		return err
	}

	flags := renderConfigFlags
	if flags.Format == "" {
		if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(renderOutput)), "."); ext != "" {
			flags.Format = ext
		}
	}
	gallery.Resolve(flags)

	settings, err := gallery.Render.Settings()
	if err != nil {
		return err
	}
	format, err := gallery.Render.OutputFormat()
	if err != nil {
		return err
	}

	composer := scene.New(scene.Options{
		Loader:   loader.New(loader.Options{BaseDir: gallery.BaseDir}),
		Defaults: scene.GridDefaults,
	})
	defer composer.Close()

	viewers := composer.SetItems(gallery.Items)

	ctx, cancel := context.WithTimeout(cmd.Context(), renderTimeout)
	defer cancel()
	start := time.Now()
	if err := composer.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for loads: %w", err)
	}

	cells := make([]image.Image, len(viewers))
	for i, v := range viewers {
		status := v.Status()
		if status.Error != "" {
			fmt.Fprintf(os.Stderr, "Item %d (%s): %s\n", i, status.Label, status.Error)
		}
		for _, slot := range status.Slots {
			if slot.Error != "" {
				fmt.Fprintf(os.Stderr, "Item %d (%s): %s: %s\n", i, status.Label, slot.URL, slot.Error)
			}
		}
		if len(renderRotate) == 2 {
			v.SetRotation(renderRotate[0], renderRotate[1])
		}
		cells[i] = v.Render(settings)
	}

	cellSize := max(settings.Width, settings.Height)
	img := viewer.Compose(cells, gallery.Columns, cellSize, settings.Background)

	out, err := os.Create(renderOutput)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := viewer.Encode(out, img, format); err != nil {
		out.Close()
		return fmt.Errorf("failed to encode image: %w", err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	fmt.Printf("Rendered %d items to %s (%dx%d, %s) in %s\n",
		len(viewers), renderOutput, img.Bounds().Dx(), img.Bounds().Dy(), format, time.Since(start).Round(time.Millisecond))
	return nil
}
