package models

import (
	"encoding/xml"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPriority(t *testing.T) {
	cases := map[float64]string{
		1:    "1.0",
		0:    "0.0",
		0.5:  "0.5",
		0.9:  "0.9",
		0.95: "0.95",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatPriority(in), "priority %v", in)
	}
}

func TestParseChangeFreq(t *testing.T) {
	cf, ok := ParseChangeFreq(" Weekly ")
	require.True(t, ok)
	assert.Equal(t, Weekly, cf)

	_, ok = ParseChangeFreq("fortnightly")
	assert.False(t, ok)
}

func TestURLEntryToURL(t *testing.T) {
	mod := time.Date(2024, 3, 9, 10, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	u := URLEntry{Loc: "https://example.com/", LastMod: &mod, ChangeFreq: Weekly, Priority: 1}.ToURL()

	assert.Equal(t, "https://example.com/", u.Loc)
	assert.Equal(t, "2024-03-09T05:00:00Z", u.LastMod)
	assert.Equal(t, "weekly", u.ChangeFreq)
	assert.Equal(t, "1.0", u.Priority)

	noMod := URLEntry{Loc: "https://example.com/a.html", ChangeFreq: Monthly, Priority: 0.5}.ToURL()
	out, err := xml.Marshal(noMod)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "lastmod")
}

func TestDiffEntries(t *testing.T) {
	before := []URLEntry{
		{Loc: "https://example.com/", ChangeFreq: Weekly, Priority: 1},
		{Loc: "https://example.com/old.html", ChangeFreq: Monthly, Priority: 0.5},
		{Loc: "https://example.com/fonts/anchu/", ChangeFreq: Monthly, Priority: 0.9},
	}
	after := []URLEntry{
		{Loc: "https://example.com/", ChangeFreq: Weekly, Priority: 1},
		{Loc: "https://example.com/fonts/anchu/", ChangeFreq: Monthly, Priority: 0.95},
		{Loc: "https://example.com/blog/post1/", ChangeFreq: Weekly, Priority: 0.8},
	}

	diff := DiffEntries(before, after)
	assert.Equal(t, []string{"https://example.com/blog/post1/"}, diff.Added)
	assert.Equal(t, []string{"https://example.com/old.html"}, diff.Removed)
	require.Len(t, diff.Changed, 1)
	assert.Equal(t, "https://example.com/fonts/anchu/", diff.Changed[0].Loc)
	assert.False(t, diff.Empty())

	assert.True(t, DiffEntries(after, after).Empty())
}
