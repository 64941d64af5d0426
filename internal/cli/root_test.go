package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/HansLove/HouzeMaster-front/internal/client"
	"github.com/HansLove/HouzeMaster-front/internal/config"
	"github.com/HansLove/HouzeMaster-front/internal/web"
)

const testSheet = "listing_id,status,title,operation_type,property_type,price,currency,price_period,bedrooms,city,featured,slug\n" +
	"HM-1,published,Casa Aldea,sale,Casa,2500000,MXN,,3,Tulum,false,casa-aldea\n" +
	"HM-2,published,Depto Centro,rent,Departamento,18000,MXN,per_month,2,Monterrey,true,depto-centro\n" +
	"HM-3,draft,Borrador,sale,Casa,1,MXN,,1,Tulum,false,borrador\n"

// executeCommand runs a command with the given args and captures output.
func executeCommand(args ...string) (string, error) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// setupSheet points the CLI at a local CSV upstream and an isolated home
// directory. It returns the upstream hit counter.
func setupSheet(t *testing.T) *atomic.Int32 {
	t.Helper()
	var hits atomic.Int32
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(testSheet))
	}))
	t.Cleanup(up.Close)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("HM_CSV_URL", up.URL)
	t.Setenv("HM_SOURCE", "csv")
	t.Setenv("HM_FETCH_MAX_ATTEMPTS", "1")
	t.Setenv("HM_DB_PATH", filepath.Join(home, "cache.db"))
	t.Setenv("HM_SERVER_URL", "")
	t.Setenv("HM_LOCALE", "en")
	t.Setenv("HM_ADMIN_TOKEN", "")
	return &hits
}

func decodeListings(t *testing.T, out string) client.ListingsResponse {
	t.Helper()
	var resp client.ListingsResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
	return resp
}

func slugs(resp client.ListingsResponse) []string {
	out := make([]string, len(resp.Listings))
	for i, l := range resp.Listings {
		out[i] = l.Slug
	}
	return out
}

func TestRootHelp(t *testing.T) {
	out, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"listings", "refresh", "search", "filter", "show", "status", "serve", "version"} {
		if !strings.Contains(out, name) {
			t.Errorf("help output missing %q command", name)
		}
	}
}

func TestGlobalFlags(t *testing.T) {
	root := NewRootCmd()

	formatFlag := root.PersistentFlags().Lookup("format")
	if formatFlag == nil {
		t.Fatal("expected --format flag to exist")
	}
	if formatFlag.DefValue != "text" {
		t.Errorf("expected --format default 'text', got %q", formatFlag.DefValue)
	}

	for _, name := range []string{"db", "config", "env-file", "locale", "server"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to exist", name)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != Version {
		t.Errorf("version output = %q, want %q", out, Version)
	}
}

func TestListingsLocal(t *testing.T) {
	hits := setupSheet(t)

	out, err := executeCommand("listings", "--format", "json")
	if err != nil {
		t.Fatalf("listings: %v", err)
	}
	resp := decodeListings(t, out)
	got := strings.Join(slugs(resp), ",")
	if got != "depto-centro,casa-aldea" {
		t.Errorf("slugs = %q, want featured first and drafts hidden", got)
	}
	if resp.Count != 2 || resp.Stale {
		t.Errorf("count = %d stale = %v, want 2 and false", resp.Count, resp.Stale)
	}

	// A second process restores the persisted fast tier but still has no
	// full tier, so --all fetches again.
	if _, err := executeCommand("listings", "--all", "--format", "json"); err != nil {
		t.Fatalf("listings --all: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("upstream hits = %d, want 2", hits.Load())
	}
}

func TestListingsTextOutput(t *testing.T) {
	setupSheet(t)

	out, err := executeCommand("listings")
	if err != nil {
		t.Fatalf("listings: %v", err)
	}
	for _, want := range []string{"SLUG", "depto-centro", "★ Depto Centro", "Total: 2 listings"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSearchFilterShowLocal(t *testing.T) {
	setupSheet(t)

	out, err := executeCommand("search", "tulum", "--format", "json")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := strings.Join(slugs(decodeListings(t, out)), ","); got != "casa-aldea" {
		t.Errorf("search slugs = %q, want casa-aldea", got)
	}

	out, err = executeCommand("filter", "--operation", "rent", "--max-beds", "2", "--format", "json")
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if got := strings.Join(slugs(decodeListings(t, out)), ","); got != "depto-centro" {
		t.Errorf("filter slugs = %q, want depto-centro", got)
	}

	out, err = executeCommand("show", "casa-aldea")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "Casa Aldea") || !strings.Contains(out, "For Sale") {
		t.Errorf("show output missing details:\n%s", out)
	}

	if _, err := executeCommand("show", "borrador"); err == nil {
		t.Error("expected draft listing to be hidden")
	}
}

func TestSearchBlankQueryListsAll(t *testing.T) {
	setupSheet(t)

	for _, args := range [][]string{{"search"}, {"search", "  "}} {
		out, err := executeCommand(append(args, "--format", "json")...)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		if got := strings.Join(slugs(decodeListings(t, out)), ","); got != "depto-centro,casa-aldea" {
			t.Errorf("%v slugs = %q, want every published listing", args, got)
		}
	}
}

func TestRefreshAndStatusLocal(t *testing.T) {
	hits := setupSheet(t)

	if _, err := executeCommand("refresh", "--format", "json"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("upstream hits = %d, want 1", hits.Load())
	}

	out, err := executeCommand("status", "--format", "json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var st client.CacheStatus
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if st.FastCount != 2 || st.LastFetch == nil || !st.Valid {
		t.Errorf("status = %+v, want the persisted fetch", st)
	}
}

func TestListingsUpstreamDown(t *testing.T) {
	setupSheet(t)
	t.Setenv("HM_CSV_URL", "http://127.0.0.1:1/sheet.csv")

	if _, err := executeCommand("listings"); err == nil {
		t.Fatal("expected error with no upstream and no cache")
	}
}

func TestListingsRemote(t *testing.T) {
	setupSheet(t)

	cfg, err := config.Load(config.LoadOptions{})
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	svc, database, err := openCatalog(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("opening catalog: %v", err)
	}
	t.Cleanup(func() {
		svc.Close()
		closeDB(database)
	})

	api := httptest.NewServer(web.NewServer(svc, web.Options{AdminToken: "s3cret"}))
	t.Cleanup(api.Close)

	// Commands must not touch the local sheet config in remote mode.
	t.Setenv("HM_CSV_URL", "http://127.0.0.1:1/unused.csv")

	out, err := executeCommand("listings", "--server", api.URL, "--format", "json")
	if err != nil {
		t.Fatalf("listings: %v", err)
	}
	if got := strings.Join(slugs(decodeListings(t, out)), ","); got != "depto-centro,casa-aldea" {
		t.Errorf("slugs = %q", got)
	}

	if _, err := executeCommand("refresh", "--server", api.URL); err == nil {
		t.Error("expected refresh without a token to be rejected")
	}

	t.Setenv("HM_ADMIN_TOKEN", "s3cret")
	if _, err := executeCommand("refresh", "--server", api.URL, "--format", "json"); err != nil {
		t.Errorf("refresh with token: %v", err)
	}
}
