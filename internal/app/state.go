package app

import (
	"sync/atomic"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/philipparndt/plyview/internal/loader"
	"github.com/philipparndt/plyview/internal/scene"
	"github.com/philipparndt/plyview/pkg/analysis"
	"github.com/philipparndt/plyview/pkg/display"
	"github.com/philipparndt/plyview/pkg/watcher"
)

// SceneState holds the mounted item and its viewer
type SceneState struct {
	item     scene.ViewItem
	fetcher  *loader.Fetcher
	composer *scene.Composer
	viewer   *scene.Viewer
}

// meshKey identifies an uploaded mesh. The same geometry drawn with a
// different material needs different baked colors.
type meshKey struct {
	geometry *display.Geometry
	material display.Material
}

// meshEntry is a GPU mesh plus the data the overlays need
type meshEntry struct {
	mesh  rl.Mesh
	stats *analysis.Stats
	used  bool
}

// MeshCache keeps one uploaded mesh per drawn geometry
type MeshCache struct {
	entries  map[meshKey]*meshEntry
	material rl.Material
}

// ViewSettings holds display settings
type ViewSettings struct {
	showWireframe bool
	showFilled    bool
	showPoints    bool
	showBounds    bool
	showHelp      bool
}

// InteractionState holds mouse state
type InteractionState struct {
	isPanning  bool
	isRotating bool
}

// FileWatchState holds file watching and reload state
type FileWatchState struct {
	files       []string
	fileWatcher *watcher.FileWatcher
	needsReload atomic.Bool
	reloadedAt  time.Time
}

// UIState holds UI-related state
type UIState struct {
	fontSize   int32
	lineHeight int32
	background rl.Color
}
