package scene

import (
	"errors"
	"testing"

	"github.com/philipparndt/plyview/pkg/display"
	"github.com/philipparndt/plyview/pkg/ply"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemMode(t *testing.T) {
	assert.Equal(t, display.Points, ViewItem{}.Mode())
	assert.Equal(t, display.Mesh, ViewItem{RenderMesh: true}.Mode())
	assert.Equal(t, display.Surface, ViewItem{RenderSurface: true}.Mode())
	assert.Equal(t, display.Surface, ViewItem{RenderMesh: true, RenderSurface: true}.Mode())
}

func TestGridDefaults(t *testing.T) {
	it := GridDefaults.Apply(ViewItem{URLs: []string{"a.ply", "b.ply", "c.ply"}})

	assert.Equal(t, []string{"steelblue", "gray", "gray"}, it.PointColors)
	assert.Equal(t, 0.002, it.PointSize)
	require.NotNil(t, it.UseVertexColors)
	assert.False(t, *it.UseVertexColors)
	assert.True(t, it.Centered())

	colors, err := it.Validate()
	require.NoError(t, err)
	assert.Equal(t, ply.Color{R: 70.0 / 255, G: 130.0 / 255, B: 180.0 / 255}, colors[0])
}

func TestGridDefaultsKeepExplicitValues(t *testing.T) {
	off := false
	it := GridDefaults.Apply(ViewItem{
		URLs:            []string{"a.ply"},
		PointColors:     []string{"#ff0000"},
		UseVertexColors: &off,
		PointSize:       0.01,
		Center:          &off,
	})

	assert.Equal(t, []string{"#ff0000"}, it.PointColors)
	assert.Equal(t, 0.01, it.PointSize)
	assert.False(t, it.VertexColors())
	assert.False(t, it.Centered())
}

func TestViewerDefaultsRequireColors(t *testing.T) {
	it := ViewerDefaults.Apply(ViewItem{URLs: []string{"a.ply"}})

	assert.Nil(t, it.PointColors)
	assert.Equal(t, 0.0015, it.PointSize)
	assert.True(t, it.VertexColors())

	_, err := it.Validate()
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, 0, cfgErr.Colors)
	assert.Equal(t, 1, cfgErr.URLs)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		item    ViewItem
		wantErr bool
	}{
		{"no urls", ViewItem{}, true},
		{"empty urls with colors", ViewItem{URLs: []string{}, PointColors: []string{}}, true},
		{"fewer colors", ViewItem{URLs: []string{"a", "b"}, PointColors: []string{"red"}}, true},
		{"more colors", ViewItem{URLs: []string{"a"}, PointColors: []string{"red", "blue"}}, true},
		{"bad color", ViewItem{URLs: []string{"a"}, PointColors: []string{"notacolor"}}, true},
		{"named", ViewItem{URLs: []string{"a"}, PointColors: []string{"red"}}, false},
		{"hex", ViewItem{URLs: []string{"a", "b"}, PointColors: []string{"#fff", "#336699"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			colors, err := tt.item.Validate()
			if tt.wantErr {
				var cfgErr *ConfigurationError
				assert.True(t, errors.As(err, &cfgErr))
				assert.Nil(t, colors)
				return
			}
			require.NoError(t, err)
			assert.Len(t, colors, len(tt.item.URLs))
		})
	}
}

func TestConfigurationErrorMessage(t *testing.T) {
	err := &ConfigurationError{Label: "scan", Reason: "point color count does not match url count", Colors: 1, URLs: 2}
	assert.Equal(t, `invalid item "scan": point color count does not match url count (1 colors, 2 urls)`, err.Error())
}

func TestStateText(t *testing.T) {
	for state, want := range map[State]string{
		Unloaded: "unloaded",
		Loading:  "loading",
		Ready:    "ready",
		Failed:   "failed",
		Invalid:  "invalid",
	} {
		text, err := state.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, want, string(text))
	}
	assert.False(t, Loading.Settled())
	assert.True(t, Failed.Settled())
}
