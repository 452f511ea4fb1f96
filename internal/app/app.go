package app

import (
	"fmt"
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/philipparndt/plyview/internal/loader"
	"github.com/philipparndt/plyview/internal/scene"
)

// Options configures the interactive viewer
type Options struct {
	Item    scene.ViewItem
	BaseDir string
	Watch   bool
	Logger  *slog.Logger
	Width   int32
	Height  int32
}

type App struct {
	Scene       SceneState
	Meshes      MeshCache
	View        ViewSettings
	Interaction InteractionState
	FileWatch   FileWatchState
	UI          UIState

	logger *slog.Logger
}

// Run opens a window showing one item and blocks until it is closed
func Run(opts Options) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Width <= 0 {
		opts.Width = 1400
	}
	if opts.Height <= 0 {
		opts.Height = 900
	}

	// the standalone window fills in colors so a bare file list is valid
	defaults := scene.ViewerDefaults
	defaults.FillColors = true
	item := defaults.Apply(opts.Item)
	if _, err := item.Validate(); err != nil {
		return err
	}

	fetcher := loader.New(loader.Options{BaseDir: opts.BaseDir})
	app := &App{
		Scene: SceneState{
			item:    item,
			fetcher: fetcher,
			composer: scene.New(scene.Options{
				Loader:   fetcher,
				Logger:   opts.Logger,
				Defaults: defaults,
			}),
		},
		View: ViewSettings{
			showFilled: true,
			showPoints: true,
			showHelp:   true,
		},
		UI: UIState{
			fontSize:   16,
			lineHeight: 20,
			background: rl.NewColor(15, 18, 25, 255),
		},
		logger: opts.Logger,
	}
	defer app.Scene.composer.Close()

	app.mount()

	if opts.Watch {
		if err := app.setupFileWatcher(); err != nil {
			app.logger.Warn("auto-reload will not be available", "error", err)
		} else {
			defer app.FileWatch.fileWatcher.Close()
		}
	}

	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagWindowHighdpi | rl.FlagMsaa4xHint)
	rl.InitWindow(opts.Width, opts.Height, windowTitle(item))
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	app.Meshes = newMeshCache()
	defer app.Meshes.unloadAll()

	for !rl.WindowShouldClose() {
		if app.FileWatch.needsReload.CompareAndSwap(true, false) {
			app.reload()
		}

		app.handleInput()
		app.Scene.viewer.Tick(float64(rl.GetFrameTime()))

		cam, items := app.Scene.viewer.Snapshot()
		app.Meshes.sync(items)

		rl.BeginDrawing()
		rl.ClearBackground(app.UI.background)

		rl.BeginMode3D(toRaylibCamera(cam))
		app.drawItems(items)
		rl.EndMode3D()

		app.drawUI()
		rl.EndDrawing()
	}

	return nil
}

// mount starts loading the item into a fresh viewer
func (app *App) mount() {
	viewers := app.Scene.composer.SetItems([]scene.ViewItem{app.Scene.item})
	app.Scene.viewer = viewers[0]
}

func windowTitle(item scene.ViewItem) string {
	if item.Label != "" {
		return fmt.Sprintf("plyview - %s", item.Label)
	}
	if len(item.URLs) == 1 {
		return fmt.Sprintf("plyview - %s", item.URLs[0])
	}
	return fmt.Sprintf("plyview - %d files", len(item.URLs))
}
