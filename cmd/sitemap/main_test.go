package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSite(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("<html><title>"+f+"</title></html>"), 0644))
	}
	return root
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = execute(args, &out, &errOut, afero.NewOsFs())
	return out.String(), errOut.String(), err
}

func TestGenerateWritesSitemapAndRobots(t *testing.T) {
	site := writeSite(t, "index.html", "about/index.html", "blog/post1/index.html", "js/widget.html")
	out := filepath.Join(t.TempDir(), "sitemap.xml")

	stdout, _, err := run(t, "--domain", "https://example.com/", "--out", out, "-r", site)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("Sitemap written to %s (3 URLs)\nrobots.txt written to %s\n", out, filepath.Join(filepath.Dir(out), "robots.txt")), stdout)

	doc, err := os.ReadFile(out)
	require.NoError(t, err)
	xml := string(doc)
	assert.True(t, strings.HasPrefix(xml, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, xml, "<loc>https://example.com/</loc>")
	assert.Contains(t, xml, "<loc>https://example.com/blog/post1/</loc>")
	assert.NotContains(t, xml, "widget")

	robots, err := os.ReadFile(filepath.Join(filepath.Dir(out), "robots.txt"))
	require.NoError(t, err)
	assert.Equal(t, "User-agent: *\nAllow: /\n\nSitemap: https://example.com/sitemap.xml\n", string(robots))
}

func TestGenerateSubcommandAndDirFlag(t *testing.T) {
	site := writeSite(t, "index.html")
	out := filepath.Join(t.TempDir(), "map.xml")

	stdout, _, err := run(t, "generate", "-d", "https://example.com", "--dir", site, "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "(1 URLs)")

	doc, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "<priority>1.0</priority>")
}

func TestGenerateDomainFromEnvironment(t *testing.T) {
	t.Setenv("SITE_DOMAIN", "https://env.example")
	site := writeSite(t, "index.html")
	out := filepath.Join(t.TempDir(), "sitemap.xml")

	_, _, err := run(t, "--out", out, site)
	require.NoError(t, err)

	doc, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "<loc>https://env.example/</loc>")
}

func TestGenerateRequiresDomain(t *testing.T) {
	t.Setenv("SITE_DOMAIN", "")
	site := writeSite(t, "index.html")

	_, stderr, err := run(t, "--out", filepath.Join(t.TempDir(), "sitemap.xml"), site)
	require.Error(t, err)
	assert.Contains(t, stderr, "domain is required")
}

func TestGenerateUnreadableRoot(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sitemap.xml")

	_, _, err := run(t, "-d", "https://example.com", "--out", out, filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no sitemap should be written")
}

func TestGenerateWithOverrides(t *testing.T) {
	site := writeSite(t, "index.html", "fonts/anchu/index.html")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "overrides.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"/fonts/anchu/": {"priority": "0.95"}}`), 0644))
	out := filepath.Join(dir, "sitemap.xml")

	_, _, err := run(t, "-d", "https://example.com", "--config", cfgPath, "--out", out, site)
	require.NoError(t, err)

	doc, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "<loc>https://example.com/fonts/anchu/</loc>")
	assert.Contains(t, string(doc), "<priority>0.95</priority>")
	assert.NotContains(t, string(doc), "<priority>0.9</priority>")
}

func TestGenerateBrokenOverridesOnlyWarns(t *testing.T) {
	site := writeSite(t, "index.html")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "overrides.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{not json`), 0644))

	_, stderr, err := run(t, "-d", "https://example.com", "--config", cfgPath, "--out", filepath.Join(dir, "sitemap.xml"), site)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Ignoring override config")

	_, stderr, err = run(t, "-d", "https://example.com", "--config", filepath.Join(dir, "missing.json"), "--out", filepath.Join(dir, "sitemap.xml"), site)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Ignoring override config")
}

func TestGenerateExcludeFlag(t *testing.T) {
	site := writeSite(t, "index.html", "drafts/index.html", "js/index.html")
	out := filepath.Join(t.TempDir(), "sitemap.xml")

	stdout, _, err := run(t, "-d", "https://example.com", "--exclude", "drafts", "--out", out, site)
	require.NoError(t, err)
	// js is no longer excluded once the list is replaced.
	assert.Contains(t, stdout, "(2 URLs)")

	doc, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(doc), "drafts")
	assert.Contains(t, string(doc), "https://example.com/js/")
}

func TestGenerateWritesMetricsTextfile(t *testing.T) {
	site := writeSite(t, "index.html", "about/index.html")
	dir := t.TempDir()
	prom := filepath.Join(dir, "sitemap.prom")

	_, _, err := run(t, "-d", "https://example.com", "--out", filepath.Join(dir, "sitemap.xml"), "--metrics-textfile", prom, site)
	require.NoError(t, err)

	body, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(body), `sitemap_generations_total{outcome="success"} 1`)
	assert.Contains(t, string(body), "sitemap_urls 2")

	// A failed run is still recorded.
	_, _, err = run(t, "-d", "https://example.com", "--out", filepath.Join(dir, "sitemap.xml"), "--metrics-textfile", prom, filepath.Join(dir, "missing"))
	require.Error(t, err)
	body, err = os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(body), `sitemap_generations_total{outcome="failed"} 1`)
}

func TestHistoryListAndDiff(t *testing.T) {
	site := writeSite(t, "index.html", "about/index.html")
	dir := t.TempDir()
	dsn := filepath.Join(dir, "history.db")
	out := filepath.Join(dir, "sitemap.xml")

	_, _, err := run(t, "-d", "https://example.com", "--history", dsn, "--out", out, site)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(site, "blog"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(site, "blog", "index.html"), []byte("<html></html>"), 0644))
	require.NoError(t, os.RemoveAll(filepath.Join(site, "about")))

	_, _, err = run(t, "-d", "https://example.com", "--history", dsn, "--out", out, site)
	require.NoError(t, err)

	stdout, _, err := run(t, "history", "list", "--history", dsn)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "https://example.com")

	stdout, _, err = run(t, "history", "diff", "--history", dsn)
	require.NoError(t, err)
	assert.Contains(t, stdout, "+ https://example.com/blog/\n")
	assert.Contains(t, stdout, "- https://example.com/about/\n")
}

func TestHistoryDelete(t *testing.T) {
	site := writeSite(t, "index.html")
	dir := t.TempDir()
	dsn := filepath.Join(dir, "history.db")

	_, _, err := run(t, "-d", "https://example.com", "--history", dsn, "--out", filepath.Join(dir, "sitemap.xml"), site)
	require.NoError(t, err)

	stdout, _, err := run(t, "history", "list", "--history", dsn)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	id := strings.Fields(lines[1])[0]

	stdout, _, err = run(t, "history", "delete", "--history", dsn, id)
	require.NoError(t, err)
	assert.Equal(t, "Deleted run "+id+"\n", stdout)

	stdout, _, err = run(t, "history", "list", "--history", dsn)
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded\n", stdout)

	_, stderr, err := run(t, "history", "delete", "--history", dsn, id)
	require.Error(t, err)
	assert.Contains(t, stderr, "not found")

	_, _, err = run(t, "history", "delete", "--history", dsn, "not-a-uuid")
	assert.Error(t, err)
}

func TestHistoryRequiresStore(t *testing.T) {
	t.Setenv("SITEMAP_DATABASE_URL", "")
	_, stderr, err := run(t, "history", "list")
	require.Error(t, err)
	assert.Contains(t, stderr, "run history is not configured")
}

func TestHistoryDiffNeedsTwoRuns(t *testing.T) {
	_, _, err := run(t, "history", "diff", "--history", filepath.Join(t.TempDir(), "empty.db"))
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"><url><loc>%[1]s/</loc></url><url><loc>%[1]s/about/</loc></url></urlset>`, srv.URL)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/about/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "ok")
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	prom := filepath.Join(t.TempDir(), "verify.prom")
	stdout, _, err := run(t, "verify", "--metrics-textfile", prom, srv.URL+"/sitemap.xml")
	require.Error(t, err)
	assert.Contains(t, stdout, "Checked 2 URLs: 1 ok, 1 broken")
	assert.Contains(t, stdout, "404 "+srv.URL+"/about/")

	body, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(body), `sitemap_verify_results_total{result="ok"} 1`)
	assert.Contains(t, string(body), `sitemap_verify_results_total{result="broken"} 1`)
}

func TestVerifyDefaultsToDomainSitemap(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/map.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<urlset><url><loc>%s/</loc></url></urlset>`, srv.URL)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	stdout, _, err := run(t, "verify", "-d", srv.URL, "--out", "public/map.xml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Checked 1 URLs: 1 ok, 0 broken")
}

func TestInspectFlagsNoindexAndCanonical(t *testing.T) {
	site := t.TempDir()
	pages := map[string]string{
		"index.html":       `<html><head><title>Home</title></head></html>`,
		"draft.html":       `<html><head><title>Draft</title><meta name="robots" content="noindex, follow"></head></html>`,
		"about/index.html": `<html><head><title>About</title><link rel="canonical" href="https://example.com/about-us/"></head></html>`,
	}
	for name, body := range pages {
		path := filepath.Join(site, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	}

	stdout, _, err := run(t, "inspect", "-d", "https://example.com", site)
	require.NoError(t, err)
	assert.Contains(t, stdout, "noindex")
	assert.Contains(t, stdout, "canonical https://example.com/about-us/")
	assert.Contains(t, stdout, "3 pages, 2 flagged")
}
