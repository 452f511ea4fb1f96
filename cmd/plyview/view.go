package main

import (
	"log/slog"

	"github.com/philipparndt/plyview/internal/app"
	"github.com/spf13/cobra"
)

var (
	viewWatch     bool
	viewBaseDir   string
	viewWidth     int32
	viewHeight    int32
	viewItemFlags itemFlags
)

var viewCmd = &cobra.Command{
	Use:   "view [files...]",
	Short: "Open an interactive window layering the given PLY files",
	Long: `Open an OpenGL window showing all files as one scene. Files without colors
are drawn steelblue (first) and gray (others).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)

	viewItemFlags.register(viewCmd)
	viewCmd.Flags().BoolVarP(&viewWatch, "watch", "w", false, "Reload when a local file changes")
	viewCmd.Flags().StringVar(&viewBaseDir, "base-dir", "", "Directory relative URLs are resolved against")
	viewCmd.Flags().Int32Var(&viewWidth, "width", 1400, "Window width")
	viewCmd.Flags().Int32Var(&viewHeight, "height", 900, "Window height")
}

func runView(cmd *cobra.Command, args []string) error {
	return app.Run(app.Options{
		Item:    viewItemFlags.item(cmd, args),
		BaseDir: viewBaseDir,
		Watch:   viewWatch,
		Logger:  slog.Default(),
		Width:   viewWidth,
		Height:  viewHeight,
	})
}
