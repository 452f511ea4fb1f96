package app

import (
	"fmt"
	"time"

	"github.com/philipparndt/plyview/internal/loader"
	"github.com/philipparndt/plyview/pkg/watcher"
)

// setupFileWatcher watches every local source of the item
func (app *App) setupFileWatcher() error {
	var files []string
	for _, url := range app.Scene.item.URLs {
		if loader.IsExternal(url) {
			continue
		}
		files = append(files, app.Scene.fetcher.Resolve(url))
	}
	if len(files) == 0 {
		return fmt.Errorf("no local files to watch")
	}

	fw, err := watcher.NewFileWatcher(500*time.Millisecond, app.logger)
	if err != nil {
		return err
	}

	callback := func(changedFile string) {
		app.logger.Info("file changed", "path", changedFile)
		app.FileWatch.needsReload.Store(true)
	}
	if err := fw.Watch(files, callback); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch files: %w", err)
	}

	fw.Start()
	app.FileWatch.files = files
	app.FileWatch.fileWatcher = fw
	app.logger.Info("watching files for changes", "count", len(files))
	return nil
}

// reload mounts the item again. The composer cancels the previous loads;
// the camera orientation carries over.
func (app *App) reload() {
	cam, _ := app.Scene.viewer.Snapshot()
	app.mount()
	app.Scene.viewer.SetRotation(cam.RotationX, cam.RotationY)
	app.Scene.viewer.SetAutoRotate(cam.AutoRotate)
	app.FileWatch.reloadedAt = time.Now()
	app.logger.Info("reloading", "urls", len(app.Scene.item.URLs))
}
