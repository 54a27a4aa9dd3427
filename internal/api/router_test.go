package api

import (
	"encoding/json"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Fantasim/btcconnect/internal/bridge/bridgetest"
	"github.com/Fantasim/btcconnect/internal/bridge/relay"
	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/db"
	"github.com/Fantasim/btcconnect/internal/events"
	"github.com/Fantasim/btcconnect/internal/facade"
	"github.com/Fantasim/btcconnect/internal/metrics"
	"github.com/Fantasim/btcconnect/internal/wallet"
	"github.com/Fantasim/btcconnect/web"
)

func setupServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	if err := database.RunMigrations(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	static, err := fs.Sub(web.RelayFiles, "relay")
	if err != nil {
		t.Fatal(err)
	}

	obj := bridgetest.NewObject().
		Fail("requestAccounts", 4001, "User rejected the request.").
		Return("getBalance", map[string]int64{"confirmed": 1}).
		Return("signMessage", "sig").
		Return("signPsbt", "70736274ff01002001000000000100000000000000000d6a0b68656c6c6f20776f726c64000000000000")
	g := bridgetest.NewGlobals().Set("unisat", obj)

	rec := metrics.New()
	hub := events.NewHub()
	bridge := relay.New(nil)
	t.Cleanup(func() { bridge.Close() })

	router := NewRouter(Deps{
		Config:  cfg,
		Facade:  facade.New(g, wallet.NewFactory(wallet.DefaultOptions()), rec, hub),
		Hub:     hub,
		Store:   database,
		Bridge:  bridge,
		Metrics: rec,
		Static:  static,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig() *config.Config {
	return &config.Config{
		Network:             "livenet",
		InscriptionPageSize: 20,
		MaxInscriptionPages: 100,
		PromptRateLimit:     1,
		PromptRateBurst:     2,
	}
}

// localRequest targets srv with a localhost Host header so HostCheck passes.
func localRequest(t *testing.T, srv *httptest.Server, method, path, body string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Host = "localhost"
	return req
}

func csrfToken(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, err := srv.Client().Do(localRequest(t, srv, http.MethodGet, "/api/state", ""))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	for _, c := range resp.Cookies() {
		if c.Name == "csrf_token" {
			return c.Value
		}
	}
	t.Fatal("no csrf cookie issued")
	return ""
}

func post(t *testing.T, srv *httptest.Server, token, path, body string) *http.Response {
	t.Helper()
	req := localRequest(t, srv, http.MethodPost, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "csrf_token", Value: token})
		req.Header.Set("X-CSRF-Token", token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestRouter_HostCheck(t *testing.T) {
	srv := setupServer(t, testConfig())

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/health", nil)
	req.Host = "attacker.example"
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestRouter_HealthReportsBridge(t *testing.T) {
	srv := setupServer(t, testConfig())

	resp, err := srv.Client().Do(localRequest(t, srv, http.MethodGet, "/api/health", ""))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var env struct {
		Data struct {
			Status string `json:"status"`
			Bridge bool   `json:"bridge"`
		} `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&env)
	if resp.StatusCode != http.StatusOK || env.Data.Status != "ok" || env.Data.Bridge {
		t.Errorf("health = %d %+v", resp.StatusCode, env.Data)
	}
}

func TestRouter_CSRFRequired(t *testing.T) {
	srv := setupServer(t, testConfig())

	resp := post(t, srv, "", "/api/disconnect", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("without token status = %d, want 403", resp.StatusCode)
	}

	resp = post(t, srv, csrfToken(t, srv), "/api/disconnect", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("with token status = %d, want 200", resp.StatusCode)
	}
}

func TestRouter_PromptRateLimit(t *testing.T) {
	srv := setupServer(t, testConfig())
	token := csrfToken(t, srv)

	var codes []int
	for i := 0; i < 3; i++ {
		resp := post(t, srv, token, "/api/connect", `{"wallet":"unisat"}`)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	// The wallet rejects, so the first two surface the rejection.
	want := []int{http.StatusForbidden, http.StatusForbidden, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d status = %d, want %d", i, codes[i], want[i])
		}
	}

	// Non-prompting endpoints are not throttled.
	resp := post(t, srv, token, "/api/disconnect", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("disconnect status = %d", resp.StatusCode)
	}

	mresp, err := srv.Client().Do(localRequest(t, srv, http.MethodGet, "/metrics", ""))
	if err != nil {
		t.Fatal(err)
	}
	defer mresp.Body.Close()
	body, _ := io.ReadAll(mresp.Body)
	for _, s := range []string{
		`btcconnect_prompts_throttled_total{operation="/api/connect"} 1`,
		`btcconnect_operations_total{operation="connect",outcome="rejected",wallet="unisat"} 2`,
	} {
		if !strings.Contains(string(body), s) {
			t.Errorf("metrics missing %q", s)
		}
	}
}

func TestRouter_ServesRelayPage(t *testing.T) {
	srv := setupServer(t, testConfig())

	resp, err := srv.Client().Do(localRequest(t, srv, http.MethodGet, "/", ""))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "relay.js") {
		t.Errorf("index status = %d", resp.StatusCode)
	}
}
