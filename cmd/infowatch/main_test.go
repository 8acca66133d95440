package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/infowatch/internal/config"
	"github.com/pders01/infowatch/internal/storage"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

type site struct {
	mu     sync.Mutex
	html   string
	status int
}

func (s *site) set(html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.html = html
}

func (s *site) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if s.status != 0 {
		w.WriteHeader(s.status)
	}
	fmt.Fprint(w, s.html)
}

func listingPage(items ...string) string {
	return "<html><body><ul>" + strings.Join(items, "") + "</ul></body></html>"
}

func entry(id, title, date string) string {
	return `<li><span class="date">` + date + `</span><p class="infoTitle"><a href="/info/` + id + `">` + title + `</a></p></li>`
}

type fixture struct {
	dir        string
	configPath string
	site       *site
	server     *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, env := range []string{
		config.EnvTwitterAPIKey, config.EnvTwitterAPIKeySecret,
		config.EnvTwitterAccessToken, config.EnvTwitterAccessTokenSecret,
	} {
		t.Setenv(env, "")
	}

	s := &site{}
	server := httptest.NewServer(s)
	t.Cleanup(server.Close)

	cfg := fmt.Sprintf(`[site]
base_url = %[1]q
listing_url = %[2]q
marker = "infoTitle"
link_pattern = "/info/"
allow_private_hosts = true

[fetch]
http_timeout = "5s"
render_enabled = false

[state]
path = %[3]q
history_path = %[4]q
search_index = %[5]q

[schedule]
delivery_delay = "0s"

[logging]
level = "off"
`, server.URL+"/", server.URL+"/info/",
		filepath.Join(dir, "last_checked.json"),
		filepath.Join(dir, "history.db"),
		filepath.Join(dir, "index.bleve"))

	path := filepath.Join(dir, "infowatch.toml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	return &fixture{dir: dir, configPath: path, site: s, server: server}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "infowatch dev")
	assert.Contains(t, out, "github.com/pders01/infowatch")
}

func TestGenerateConfigCommand(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "config.toml")
		out, err := execute(t, "generate-config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Generated default configuration at:")
		assert.FileExists(t, path)
	})

	t.Run("default location", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		_, err := execute(t, "generate-config")
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(home, ".config", "infowatch", "config.toml"))
	})
}

func TestRunOnce_RequiresCredentials(t *testing.T) {
	f := newFixture(t)
	f.site.set(listingPage(entry("1", "Hello", "")))

	_, err := execute(t, "--config", f.configPath, "--quiet", "run", "--once")
	require.Error(t, err)

	var missing *config.MissingCredentialsError
	require.ErrorAs(t, err, &missing)
	assert.Len(t, missing.Names, 4)
	assert.NoFileExists(t, filepath.Join(f.dir, "last_checked.json"))
}

func TestRunOnce_InvalidConfig(t *testing.T) {
	f := newFixture(t)
	bad := filepath.Join(f.dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[site]\nbase_url = \"ftp://example.com\"\n"), 0o644))

	_, err := execute(t, "--config", bad, "--quiet", "run", "--once", "--dry-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site.base_url")
}

func TestRunOnce_DryRunBaselineThenDelivery(t *testing.T) {
	f := newFixture(t)
	f.site.set(listingPage(
		entry("123", "Winter schedule", "2024.03.01"),
	))

	out, err := execute(t, "--config", f.configPath, "--quiet", "run", "--once", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "baseline")

	snap, err := storage.NewSnapshotStore(filepath.Join(f.dir, "last_checked.json")).Load()
	require.NoError(t, err)
	require.Len(t, snap.Articles, 1)
	assert.Equal(t, f.server.URL+"/info/123", snap.Articles[0].URL)

	f.site.set(listingPage(
		entry("124", "Spring concert announced", "2024.03.08"),
		entry("123", "Winter schedule", "2024.03.01"),
	))

	out, err = execute(t, "--config", f.configPath, "--quiet", "run", "--once", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "1 new, 1 delivered, 0 failed")

	out, err = execute(t, "--config", f.configPath, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "articles: 2")
	assert.Contains(t, out, "Spring concert announced")
	assert.Contains(t, out, "posted dry-run-1")
	assert.Contains(t, out, "completed")

	out, err = execute(t, "--config", f.configPath, "search", "concert")
	require.NoError(t, err)
	assert.Contains(t, out, "Spring concert announced")
	assert.Contains(t, out, f.server.URL+"/info/124")
	assert.NotContains(t, out, "Winter schedule")
}

func TestRunOnce_UnavailableSiteIsNotAnError(t *testing.T) {
	f := newFixture(t)
	f.site.status = http.StatusServiceUnavailable

	out, err := execute(t, "--config", f.configPath, "--quiet", "run", "--once", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "no-articles")
	assert.NoFileExists(t, filepath.Join(f.dir, "last_checked.json"))
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	f.site.set(listingPage(
		entry("124", "Spring concert announced", "2024.03.08"),
		entry("123", "Winter schedule", "2024.03.01"),
	))

	out, err := execute(t, "--config", f.configPath, "preview")
	require.NoError(t, err)
	assert.Contains(t, out, "2 articles via exact-marker")
	assert.Contains(t, out, "【YUKI INFO更新】")
	assert.Contains(t, out, f.server.URL+"/info/124")
	assert.NoFileExists(t, filepath.Join(f.dir, "last_checked.json"))
}

func TestPreview_Diagnostics(t *testing.T) {
	f := newFixture(t)
	f.site.set(`<html><body><div class="infoBox">Nothing here</div><a href="/about">About</a></body></html>`)

	out, err := execute(t, "--config", f.configPath, "preview")
	require.NoError(t, err)
	assert.Contains(t, out, "No articles found.")
	assert.Contains(t, out, "marker elements: 0")
	assert.Contains(t, out, "infoBox")
}

func TestStatus_Empty(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "--config", f.configPath, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "no articles recorded yet")
	assert.Contains(t, out, "no passes recorded yet")
}

func TestSearch_RequiresQuery(t *testing.T) {
	f := newFixture(t)
	_, err := execute(t, "--config", f.configPath, "search")
	assert.Error(t, err)
}
