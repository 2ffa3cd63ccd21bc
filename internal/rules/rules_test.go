package rules

import (
	"io/fs"
	"math"
	"testing"

	"github.com/romangod6/sitemap-builder/internal/models"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicTable(t *testing.T) {
	e := NewEngine(nil)
	tests := []struct {
		path string
		cf   models.ChangeFreq
		prio float64
	}{
		{"/", models.Weekly, 1.0},
		{"/fonts/anchu/", models.Monthly, 0.9},
		{"/fonts/gtn/specimen.html", models.Monthly, 0.9},
		{"/blog/post1/", models.Weekly, 0.8},
		{"/about/", models.Yearly, 0.6},
		{"/about.html", models.Yearly, 0.6},
		{"/fonts", models.Monthly, 0.5},
		{"/contact.html", models.Monthly, 0.5},
		{"", models.Monthly, 0.5},
	}
	for _, tt := range tests {
		meta := e.Resolve(tt.path)
		assert.Equal(t, tt.cf, meta.ChangeFreq, tt.path)
		assert.Equal(t, tt.prio, meta.Priority, tt.path)
	}
}

func TestPartialOverrideKeepsHeuristicChangeFreq(t *testing.T) {
	overrides, warnings, err := ParseOverrides([]byte(`{"/fonts/anchu/": {"priority": "0.95"}}`))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	meta := NewEngine(overrides).Resolve("/fonts/anchu/")
	assert.Equal(t, models.Monthly, meta.ChangeFreq)
	assert.Equal(t, 0.95, meta.Priority)
}

func TestOverrideIsExactMatchOnly(t *testing.T) {
	overrides, _, err := ParseOverrides([]byte(`{"/fonts/": {"changefreq": "daily", "priority": 0.7}}`))
	require.NoError(t, err)
	e := NewEngine(overrides)

	assert.Equal(t, Meta{ChangeFreq: models.Daily, Priority: 0.7}, e.Resolve("/fonts/"))
	assert.Equal(t, Meta{ChangeFreq: models.Monthly, Priority: 0.9}, e.Resolve("/fonts/anchu/"))
}

func TestChangeFreqOnlyOverride(t *testing.T) {
	overrides, _, err := ParseOverrides([]byte(`{"/": {"changefreq": "DAILY"}}`))
	require.NoError(t, err)

	meta := NewEngine(overrides).Resolve("/")
	assert.Equal(t, models.Daily, meta.ChangeFreq)
	assert.Equal(t, 1.0, meta.Priority)
}

func TestInvalidOverrideFieldsAreDropped(t *testing.T) {
	overrides, warnings, err := ParseOverrides([]byte(`{
		"/blog/": {"changefreq": "sometimes", "priority": "1.5"},
		"/about/": {"priority": "high"}
	}`))
	require.NoError(t, err)
	assert.Len(t, warnings, 3)

	e := NewEngine(overrides)
	assert.Equal(t, Meta{ChangeFreq: models.Weekly, Priority: 0.8}, e.Resolve("/blog/"))
	assert.Equal(t, Meta{ChangeFreq: models.Yearly, Priority: 0.6}, e.Resolve("/about/"))
}

func TestNaNAndNegativeZeroPriorities(t *testing.T) {
	overrides, warnings, err := ParseOverrides([]byte(`{
		"/": {"priority": "NaN"},
		"/fonts/": {"priority": "-Inf"},
		"/about/": {"priority": "-0"},
		"/blog/": {"priority": -0.0}
	}`))
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	assert.ElementsMatch(t, []string{"/", "/fonts/"}, []string{warnings[0].Path, warnings[1].Path})

	e := NewEngine(overrides)
	assert.Equal(t, 1.0, e.Resolve("/").Priority)
	for _, path := range []string{"/about/", "/blog/"} {
		p := e.Resolve(path).Priority
		assert.Equal(t, 0.0, p, path)
		assert.False(t, math.Signbit(p), "%s priority must not be negative zero", path)
		assert.Equal(t, "0.0", models.FormatPriority(p))
	}
}

func TestLoadOverrides(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/site/sitemap.config.json", []byte(`{"/": {"changefreq": "weekly", "priority": "1.0"}}`), 0o644))

	overrides, _, err := LoadOverrides(fsys, "/site/sitemap.config.json")
	require.NoError(t, err)
	require.Contains(t, overrides, "/")

	_, _, err = LoadOverrides(fsys, "/site/missing.json")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	require.NoError(t, afero.WriteFile(fsys, "/site/broken.json", []byte(`{"/":`), 0o644))
	_, _, err = LoadOverrides(fsys, "/site/broken.json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, fs.ErrNotExist)
}
