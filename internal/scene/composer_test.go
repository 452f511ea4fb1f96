package scene

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/philipparndt/plyview/internal/loader"
	"github.com/philipparndt/plyview/pkg/display"
	"github.com/philipparndt/plyview/pkg/geometry"
	"github.com/philipparndt/plyview/pkg/ply"
	"github.com/philipparndt/plyview/pkg/viewer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLoader serves point sets from memory. A gated URL blocks until its
// gate is closed; with ignoreCancel it keeps blocking after cancellation.
type fakeLoader struct {
	mu           sync.Mutex
	sets         map[string]*ply.PointSet
	errs         map[string]error
	gates        map[string]chan struct{}
	ignoreCancel bool

	inFlight    int
	maxInFlight int
	calls       int
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		sets:  make(map[string]*ply.PointSet),
		errs:  make(map[string]error),
		gates: make(map[string]chan struct{}),
	}
}

func (f *fakeLoader) gate(url string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := make(chan struct{})
	f.gates[url] = g
	return g
}

func (f *fakeLoader) Load(ctx context.Context, url string) (*ply.PointSet, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	gate := f.gates[url]
	ignore := f.ignoreCancel
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if gate != nil {
		if ignore {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	src, ok := f.sets[url]
	if !ok {
		return nil, &loader.LoadError{URL: url, StatusCode: http.StatusNotFound}
	}

	ps := &ply.PointSet{Name: url, Positions: append([]geometry.Vector3(nil), src.Positions...)}
	if src.Colors != nil {
		ps.Colors = append([]ply.Color(nil), src.Colors...)
	}
	if src.Faces != nil {
		ps.Faces = append([]geometry.Face(nil), src.Faces...)
	}
	return ps, nil
}

func cube(scale float64) *ply.PointSet {
	var points []geometry.Vector3
	for i := 0; i < 8; i++ {
		points = append(points, geometry.NewVector3(float64(i&1), float64((i>>1)&1), float64((i>>2)&1)).Mul(scale))
	}
	return ply.NewPointSet(points)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newComposer(l loader.Loader) *Composer {
	return New(Options{Loader: l, Logger: quietLogger()})
}

func waitSettled(t *testing.T, c *Composer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
}

func waitForState(t *testing.T, events <-chan StatusEvent, item int, state State) StatusEvent {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Item == item && ev.State == state {
				return ev
			}
		case <-timeout:
			t.Fatalf("item %d never reached %s", item, state)
		}
	}
}

func TestComposerLoadsMeshHull(t *testing.T) {
	l := newFakeLoader()
	l.sets["cube.ply"] = cube(1)
	c := newComposer(l)
	defer c.Close()

	viewers := c.SetItems([]ViewItem{{URLs: []string{"cube.ply"}, Label: "hull", RenderMesh: true}})
	require.Len(t, viewers, 1)
	waitSettled(t, c)

	status := c.Status()
	require.Len(t, status, 1)
	require.Len(t, status[0].Slots, 1)
	slot := status[0].Slots[0]
	assert.Equal(t, Ready, slot.State)
	assert.Equal(t, 12, slot.Faces)
	assert.Equal(t, 8, slot.Vertices)
	assert.Equal(t, "mesh", slot.Mode)
	assert.True(t, status[0].Settled())

	_, items := viewers[0].Snapshot()
	require.Len(t, items, 1)
	g := items[0].Geometry
	assert.True(t, g.Bounds().Center().ApproxEqual(geometry.Vector3{}, 1e-9))
	assert.Len(t, g.Normals, 8)
	assert.Equal(t, display.Opacity, items[0].Material.Opacity)
}

func TestComposerMismatchedColors(t *testing.T) {
	l := newFakeLoader()
	l.sets["a.ply"] = cube(1)
	l.sets["b.ply"] = cube(1)
	c := newComposer(l)
	defer c.Close()

	viewers := c.SetItems([]ViewItem{
		{URLs: []string{"a.ply", "b.ply"}, PointColors: []string{"red"}, Label: "broken"},
		{URLs: []string{"a.ply"}, Label: "sibling"},
	})
	waitSettled(t, c)

	broken := viewers[0]
	assert.True(t, broken.Invalid())
	var cfgErr *ConfigurationError
	require.True(t, errors.As(broken.Err(), &cfgErr))
	assert.Equal(t, 1, cfgErr.Colors)
	assert.Equal(t, 2, cfgErr.URLs)

	_, items := broken.Snapshot()
	assert.Empty(t, items)
	for _, slot := range broken.Status().Slots {
		assert.Equal(t, Invalid, slot.State)
		assert.True(t, errors.As(slot.Err(), &cfgErr))
	}

	sibling := viewers[1]
	assert.False(t, sibling.Invalid())
	_, items = sibling.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, Ready, sibling.Status().Slots[0].State)

	l.mu.Lock()
	assert.Equal(t, 1, l.calls)
	l.mu.Unlock()

	// nothing but background is drawn for the invalid item
	img := broken.Render(viewer.Settings{Width: 40, Height: 40, Supersample: 1, Caption: " "})
	for i := 0; i < len(img.Pix); i++ {
		require.Equal(t, uint8(255), img.Pix[i])
	}
}

func TestComposerHTTPNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	c := New(Options{
		Loader: loader.New(loader.Options{Client: server.Client()}),
		Logger: quietLogger(),
	})
	defer c.Close()

	viewers := c.SetItems([]ViewItem{{URLs: []string{server.URL + "/missing.ply"}, Label: "missing"}})
	require.NotPanics(t, func() { waitSettled(t, c) })

	slot := viewers[0].Status().Slots[0]
	assert.Equal(t, Failed, slot.State)
	var loadErr *loader.LoadError
	require.True(t, errors.As(slot.Err(), &loadErr))
	assert.Equal(t, http.StatusNotFound, loadErr.StatusCode)

	// the placeholder stays in place of the failed slot
	_, items := viewers[0].Snapshot()
	require.Len(t, items, 1)
	g, m := placeholder()
	assert.Same(t, g, items[0].Geometry)
	assert.Equal(t, m, items[0].Material)
	assert.Equal(t, geometry.UnitCube(), viewers[0].Bounds())
}

func TestComposerIndependentLatencies(t *testing.T) {
	l := newFakeLoader()
	l.sets["fast.ply"] = cube(1)
	l.sets["slow.ply"] = cube(2)
	slow := l.gate("slow.ply")
	c := newComposer(l)
	defer c.Close()

	events, unsubscribe := c.Subscribe(64)
	defer unsubscribe()

	viewers := c.SetItems([]ViewItem{
		{URLs: []string{"slow.ply"}, Label: "slow"},
		{URLs: []string{"fast.ply"}, Label: "fast"},
	})

	waitForState(t, events, 1, Ready)
	assert.Equal(t, Loading, viewers[0].Status().Slots[0].State)
	assert.Equal(t, Ready, viewers[1].Status().Slots[0].State)

	// the slow item shows its placeholder meanwhile
	_, items := viewers[0].Snapshot()
	g, _ := placeholder()
	assert.Same(t, g, items[0].Geometry)

	close(slow)
	waitForState(t, events, 0, Ready)
	waitSettled(t, c)
	assert.Equal(t, Ready, viewers[0].Status().Slots[0].State)
}

func TestComposerDiscardsStaleResults(t *testing.T) {
	l := newFakeLoader()
	l.ignoreCancel = true
	l.sets["old.ply"] = cube(1)
	l.sets["new.ply"] = cube(1)
	gate := l.gate("old.ply")
	c := newComposer(l)
	defer c.Close()

	old := c.SetItems([]ViewItem{{URLs: []string{"old.ply"}, Label: "old"}})
	c.mu.Lock()
	oldBatch := c.current
	c.mu.Unlock()

	current := c.SetItems([]ViewItem{{URLs: []string{"new.ply"}, Label: "new"}})
	waitSettled(t, c)
	close(gate)

	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.ErrorIs(t, oldBatch.wait(waitCtx), context.Canceled)
	assert.Equal(t, Loading, old[0].Status().Slots[0].State)

	assert.Equal(t, Ready, current[0].Status().Slots[0].State)
	require.Len(t, c.Status(), 1)
	assert.Equal(t, "new", c.Status()[0].Label)
}

func TestComposerCancelsInFlightLoads(t *testing.T) {
	l := newFakeLoader()
	l.sets["a.ply"] = cube(1)
	l.gate("a.ply")
	c := newComposer(l)

	viewers := c.SetItems([]ViewItem{{URLs: []string{"a.ply"}}})
	c.Close()

	assert.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.inFlight == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, Loading, viewers[0].Status().Slots[0].State)
	assert.Nil(t, c.SetItems([]ViewItem{{URLs: []string{"a.ply"}}}))
}

func TestComposerBoundsConcurrency(t *testing.T) {
	l := newFakeLoader()
	var urls []string
	for i := 0; i < 6; i++ {
		url := fmt.Sprintf("%d.ply", i)
		l.sets[url] = cube(1)
		urls = append(urls, url)
	}
	c := New(Options{Loader: l, Logger: quietLogger(), MaxConcurrentLoads: 2})
	defer c.Close()

	c.SetItems([]ViewItem{{URLs: urls, PointColors: []string{"red", "red", "red", "red", "red", "red"}}})
	waitSettled(t, c)

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Equal(t, 6, l.calls)
	assert.LessOrEqual(t, l.maxInFlight, 2)
}

func TestComposerEmptyPointSet(t *testing.T) {
	l := newFakeLoader()
	l.sets["empty.ply"] = ply.NewPointSet(nil)
	c := newComposer(l)
	defer c.Close()

	viewers := c.SetItems([]ViewItem{{URLs: []string{"empty.ply"}}})
	waitSettled(t, c)

	slot := viewers[0].Status().Slots[0]
	assert.Equal(t, Failed, slot.State)
	assert.ErrorIs(t, slot.Err(), ErrEmptyPointSet)
}

func TestComposerDegenerateSurfaceIsReady(t *testing.T) {
	l := newFakeLoader()
	l.sets["line.ply"] = ply.NewPointSet([]geometry.Vector3{{}, {X: 1, Y: 1}, {X: 2, Y: 2}})
	c := newComposer(l)
	defer c.Close()

	viewers := c.SetItems([]ViewItem{{URLs: []string{"line.ply"}, RenderSurface: true}})
	waitSettled(t, c)

	slot := viewers[0].Status().Slots[0]
	assert.Equal(t, Ready, slot.State)
	assert.Equal(t, 0, slot.Faces)
	assert.Equal(t, 3, slot.Vertices)
}

func TestComposerVertexColors(t *testing.T) {
	colored := cube(1)
	colored.Colors = make([]ply.Color, 8)
	l := newFakeLoader()
	l.sets["colored.ply"] = colored
	l.sets["plain.ply"] = cube(1)
	c := newComposer(l)
	defer c.Close()

	on := true
	viewers := c.SetItems([]ViewItem{
		{URLs: []string{"colored.ply"}, UseVertexColors: &on},
		{URLs: []string{"plain.ply"}, UseVertexColors: &on},
		{URLs: []string{"colored.ply"}},
	})
	waitSettled(t, c)

	want := []bool{true, false, false}
	for i, v := range viewers {
		_, items := v.Snapshot()
		require.Len(t, items, 1)
		assert.Equal(t, want[i], items[0].Material.VertexColors, "item %d", i)
	}
}

func TestComposerRefitsCamera(t *testing.T) {
	l := newFakeLoader()
	l.sets["big.ply"] = cube(50)
	gate := l.gate("big.ply")
	c := newComposer(l)
	defer c.Close()

	viewers := c.SetItems([]ViewItem{{URLs: []string{"big.ply"}}})
	before, _ := viewers[0].Snapshot()

	close(gate)
	waitSettled(t, c)
	after, _ := viewers[0].Snapshot()

	assert.Greater(t, after.Distance, before.Distance*10)
	assert.True(t, after.Target.ApproxEqual(geometry.Vector3{}, 1e-9))
}

func TestNavigationLeavesGeometryAlone(t *testing.T) {
	l := newFakeLoader()
	l.sets["a.ply"] = cube(1)
	c := newComposer(l)
	defer c.Close()

	v := c.SetItems([]ViewItem{{URLs: []string{"a.ply"}, RenderSurface: true}})[0]
	waitSettled(t, c)

	_, items := v.Snapshot()
	positions := append([]geometry.Vector3(nil), items[0].Geometry.Positions...)
	camBefore, _ := v.Snapshot()

	v.Rotate(0.3, 0.2)
	v.Pan(0.1, -0.1)
	v.Zoom(0.5)
	v.SetAutoRotate(true)
	assert.True(t, v.Tick(0.5))
	assert.False(t, v.ToggleAutoRotate())
	assert.False(t, v.Tick(0.5))

	_, items = v.Snapshot()
	assert.Equal(t, positions, items[0].Geometry.Positions)
	camAfter, _ := v.Snapshot()
	assert.NotEqual(t, camBefore.Position, camAfter.Position)
}

func TestComposerCentering(t *testing.T) {
	l := newFakeLoader()
	l.sets["a.ply"] = cube(1)
	c := newComposer(l)
	defer c.Close()

	off := false
	viewers := c.SetItems([]ViewItem{{URLs: []string{"a.ply"}, Center: &off}})
	waitSettled(t, c)

	_, items := viewers[0].Snapshot()
	assert.True(t, items[0].Geometry.Bounds().Center().ApproxEqual(geometry.NewVector3(0.5, 0.5, 0.5), 1e-9))
}

func TestSubscribeUnsubscribe(t *testing.T) {
	c := newComposer(newFakeLoader())

	events, unsubscribe := c.Subscribe(1)
	unsubscribe()
	unsubscribe()

	_, ok := <-events
	assert.False(t, ok)

	events, _ = c.Subscribe(1)
	c.Close()
	_, ok = <-events
	assert.False(t, ok)
}

func TestViewerPresets(t *testing.T) {
	l := newFakeLoader()
	l.sets["a.ply"] = cube(4)
	c := newComposer(l)
	defer c.Close()

	v := c.SetItems([]ViewItem{{URLs: []string{"a.ply"}}})[0]
	waitSettled(t, c)
	fitted, _ := v.Snapshot()

	v.SetRotation(math.Pi, math.Pi/2)
	cam, _ := v.Snapshot()
	assert.Less(t, cam.RotationX, math.Pi/2)
	assert.Equal(t, math.Pi/2, cam.RotationY)
	assert.InDelta(t, fitted.Distance, cam.Distance, 1e-9)

	v.Zoom(1)
	v.Pan(0.2, 0.2)
	v.ResetView()
	cam, _ = v.Snapshot()
	assert.InDelta(t, fitted.Distance, cam.Distance, 1e-9)
	assert.True(t, cam.Target.ApproxEqual(fitted.Target, 1e-9))
	assert.Zero(t, cam.RotationY)
}

func TestComposerMalformedHeaderFailsSlot(t *testing.T) {
	const body = "ply\nformat ascii 1.0\nelement vertex 999999999999999999\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 0 0\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/good.ply" {
			fmt.Fprint(w, "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\nend_header\n1 2 3\n")
			return
		}
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	c := New(Options{
		Loader: loader.New(loader.Options{Client: server.Client()}),
		Logger: quietLogger(),
	})
	defer c.Close()

	viewers := c.SetItems([]ViewItem{
		{URLs: []string{server.URL + "/huge.ply"}, Label: "huge"},
		{URLs: []string{server.URL + "/good.ply"}, Label: "good"},
	})
	require.NotPanics(t, func() { waitSettled(t, c) })

	slot := viewers[0].Status().Slots[0]
	assert.Equal(t, Failed, slot.State)
	var parseErr *ply.ParseError
	assert.True(t, errors.As(slot.Err(), &parseErr), "expected ParseError, got %v", slot.Err())
	assert.Equal(t, Ready, viewers[1].Status().Slots[0].State)
}

// panicLoader panics for one URL and defers to fakeLoader for the rest
type panicLoader struct {
	*fakeLoader
	url string
}

func (p *panicLoader) Load(ctx context.Context, url string) (*ply.PointSet, error) {
	if url == p.url {
		panic("corrupt decoder state")
	}
	return p.fakeLoader.Load(ctx, url)
}

func TestComposerRecoversFromPanic(t *testing.T) {
	l := newFakeLoader()
	l.sets["ok.ply"] = cube(1)
	c := newComposer(&panicLoader{fakeLoader: l, url: "bad.ply"})
	defer c.Close()

	viewers := c.SetItems([]ViewItem{
		{URLs: []string{"bad.ply"}},
		{URLs: []string{"ok.ply"}},
	})
	waitSettled(t, c)

	slot := viewers[0].Status().Slots[0]
	assert.Equal(t, Failed, slot.State)
	var panicErr *PanicError
	require.True(t, errors.As(slot.Err(), &panicErr))
	assert.Equal(t, "corrupt decoder state", panicErr.Value)
	assert.Equal(t, Ready, viewers[1].Status().Slots[0].State)
}

func TestComposerDropsEventsOfReplacedBatch(t *testing.T) {
	l := newFakeLoader()
	l.sets["a.ply"] = cube(1)
	l.sets["b.ply"] = cube(1)
	c := newComposer(l)
	defer c.Close()

	events, unsubscribe := c.Subscribe(64)
	defer unsubscribe()

	c.SetItems([]ViewItem{{URLs: []string{"a.ply"}}})
	waitSettled(t, c)
	c.mu.Lock()
	oldBatch := c.current
	c.mu.Unlock()

	c.SetItems([]ViewItem{{URLs: []string{"b.ply"}}})
	waitSettled(t, c)
	for len(events) > 0 {
		<-events
	}

	c.publish(oldBatch, StatusEvent{Item: 0, URL: "a.ply", State: Ready})
	assert.Empty(t, events)

	c.mu.Lock()
	currentBatch := c.current
	c.mu.Unlock()
	c.publish(currentBatch, StatusEvent{Item: 0, URL: "b.ply", State: Ready})
	assert.Len(t, events, 1)
}

func TestComposerKeepsNavigatedCamera(t *testing.T) {
	l := newFakeLoader()
	l.sets["small.ply"] = cube(1)
	l.sets["big.ply"] = cube(50)
	gate := l.gate("big.ply")
	c := newComposer(l)
	defer c.Close()

	events, unsubscribe := c.Subscribe(64)
	defer unsubscribe()

	v := c.SetItems([]ViewItem{{URLs: []string{"small.ply", "big.ply"}}})[0]
	waitForState(t, events, 0, Ready)

	v.Zoom(0.5)
	v.Pan(0.1, 0.1)
	navigated, _ := v.Snapshot()

	close(gate)
	waitSettled(t, c)
	cam, _ := v.Snapshot()
	assert.InDelta(t, navigated.Distance, cam.Distance, 1e-9)
	assert.True(t, cam.Target.ApproxEqual(navigated.Target, 1e-9))

	// resetting the view fits the content loaded meanwhile
	v.ResetView()
	cam, _ = v.Snapshot()
	assert.Greater(t, cam.Distance, navigated.Distance*10)
}
