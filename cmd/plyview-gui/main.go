package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
	"github.com/philipparndt/plyview/internal/config"
	"github.com/philipparndt/plyview/internal/loader"
	"github.com/philipparndt/plyview/internal/scene"
	"github.com/philipparndt/plyview/pkg/viewer"
	"github.com/philipparndt/plyview/pkg/watcher"
)

type App struct {
	window    fyne.Window
	gallery   *config.Gallery
	composer  *scene.Composer
	fetcher   *loader.Fetcher
	viewports []*viewer.Viewport
	grid      *fyne.Container
	logger    *slog.Logger
}

func main() {
	watch := flag.Bool("watch", false, "Reload items when a local file changes")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	gallery, err := galleryFromArgs(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	gallery.Resolve(config.Flags{})

	a := app.New()
	w := a.NewWindow("plyview")

	fetcher := loader.New(loader.Options{BaseDir: gallery.BaseDir})
	appInstance := &App{
		window:  w,
		gallery: gallery,
		fetcher: fetcher,
		composer: scene.New(scene.Options{
			Loader:   fetcher,
			Logger:   logger,
			Defaults: scene.GridDefaults,
		}),
		logger: logger,
	}
	defer appInstance.composer.Close()

	events, unsubscribe := appInstance.composer.Subscribe(256)
	defer unsubscribe()
	go func() {
		for ev := range events {
			item := ev.Item
			fyne.Do(func() { appInstance.redraw(item) })
		}
	}()

	if *watch {
		fw, err := appInstance.watch()
		if err != nil {
			logger.Warn("auto-reload will not be available", "error", err)
		} else {
			defer fw.Close()
		}
	}

	appInstance.setupMainUI()
	appInstance.mount()

	w.Resize(fyne.NewSize(1200, 800))
	w.ShowAndRun()
}

// galleryFromArgs loads a gallery file, or makes one cell per PLY file
func galleryFromArgs(args []string) (*config.Gallery, error) {
	if len(args) == 1 && (strings.HasSuffix(args[0], ".yaml") || strings.HasSuffix(args[0], ".yml")) {
		return config.Load(args[0])
	}
	g := &config.Gallery{}
	for _, arg := range args {
		g.Items = append(g.Items, itemForFile(arg))
	}
	return g, nil
}

func itemForFile(path string) scene.ViewItem {
	return scene.ViewItem{
		URLs:  []string{path},
		Label: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}
}

func (a *App) setupMainUI() {
	size := float32(a.gallery.CellSize)
	a.grid = container.NewGridWrap(fyne.NewSize(size, size))

	var header []fyne.CanvasObject
	if a.gallery.Heading != "" {
		heading := widget.NewLabel(a.gallery.Heading)
		heading.TextStyle = fyne.TextStyle{Bold: true}
		header = append(header, heading)
	}
	if a.gallery.Text != "" {
		text := widget.NewLabel(a.gallery.Text)
		text.Wrapping = fyne.TextWrapWord
		header = append(header, text)
	}

	openButton := widget.NewButton("Add PLY File", func() {
		a.showFileDialog()
	})
	reloadButton := widget.NewButton("Reload", func() {
		a.mount()
	})
	toolbar := container.NewHBox(openButton, reloadButton, layout.NewSpacer())

	top := container.NewVBox(append(header, toolbar, widget.NewSeparator())...)
	content := container.NewBorder(top, nil, nil, nil, container.NewVScroll(a.grid))
	a.window.SetContent(content)
}

func (a *App) showFileDialog() {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		a.gallery.Items = append(a.gallery.Items, itemForFile(reader.URI().Path()))
		a.mount()
	}, a.window)
}

// mount replaces the grid cells with fresh viewers for the gallery items.
// Must be called on the fyne goroutine.
func (a *App) mount() {
	for _, vp := range a.viewports {
		vp.Stop()
	}

	viewers := a.composer.SetItems(a.gallery.Items)
	settings, err := a.gallery.Render.Settings()
	if err != nil {
		dialog.ShowError(err, a.window)
		return
	}

	a.viewports = make([]*viewer.Viewport, len(viewers))
	objects := make([]fyne.CanvasObject, len(viewers))
	for i, v := range viewers {
		vp := viewer.NewViewport(v, v.Item().Label)
		vp.SetBackground(settings.Background)
		vp.Start()
		a.viewports[i] = vp
		objects[i] = vp
	}
	a.grid.Objects = objects
	a.grid.Refresh()
}

func (a *App) redraw(item int) {
	if item >= 0 && item < len(a.viewports) {
		a.viewports[item].Redraw()
	}
}

// watch remounts all items when one of their local sources changes
func (a *App) watch() (*watcher.FileWatcher, error) {
	var files []string
	for _, item := range a.gallery.Items {
		for _, url := range item.URLs {
			if !loader.IsExternal(url) {
				files = append(files, a.fetcher.Resolve(url))
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no local files to watch")
	}

	fw, err := watcher.NewFileWatcher(watcher.DefaultDebounce, a.logger)
	if err != nil {
		return nil, err
	}
	err = fw.Watch(files, func(changed string) {
		a.logger.Info("file changed", "path", changed)
		fyne.Do(a.mount)
	})
	if err != nil {
		fw.Close()
		return nil, err
	}
	fw.Start()
	return fw, nil
}
