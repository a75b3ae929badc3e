package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hamed0406/poolprobe/internal/agent"
	"github.com/hamed0406/poolprobe/internal/domain"
	"github.com/hamed0406/poolprobe/internal/metrics"
	"github.com/hamed0406/poolprobe/internal/probe"
)

// ---- test helpers ----

type fakeFetcher struct {
	body string
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, username, password string) (string, error) {
	return f.body, f.err
}

func setupRouter(t *testing.T, f probe.Fetcher) (http.Handler, *Server) {
	t.Helper()
	log := zap.NewNop()
	m := metrics.New("test")
	chk := &metrics.ObservedChecker{Inner: probe.NewProber(f, log), Metrics: m}
	srv := NewServer(log, chk, agent.NewRegistry(chk, log), m)
	srv.Diagnose = func(ctx context.Context, host string) probe.DNSStatus {
		return probe.DNSStatus{Host: host, Class: probe.DNSNXDomain}
	}
	// very high rate limits to avoid flakiness in tests
	return srv.Router([]string{"key_test"}, 10_000, 10_000), srv
}

const pingBody = `{"host":"https://appserver","port":"4848","pool":"DerbyPool",` +
	`"pattern":"exit_code.:.(\\w+).,","username":"admin","password":"secret"}`

func postPing(t *testing.T, ts *httptest.Server, body string) (*http.Response, domain.PingResult) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/ping", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "key_test")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()
	var out domain.PingResult
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

// ---- tests ----

func TestPing_HealthyAndUnhealthy(t *testing.T) {
	cases := []struct {
		body string
		want uint64
	}{
		{`{"exit_code":"SUCCESS","message":""}`, 1},
		{`{"exit_code":"FAILED","message":"down"}`, 0},
	}
	for _, c := range cases {
		h, _ := setupRouter(t, &fakeFetcher{body: c.body})
		ts := httptest.NewServer(h)

		resp, out := postPing(t, ts, pingBody)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("want 200, got %d", resp.StatusCode)
		}
		if out.Value == nil || *out.Value != c.want {
			t.Fatalf("want value %d, got %+v", c.want, out)
		}
		if out.RequestID == "" || resp.Header.Get("X-Request-ID") != out.RequestID {
			t.Fatalf("request id not propagated: body=%q header=%q", out.RequestID, resp.Header.Get("X-Request-ID"))
		}
		ts.Close()
	}
}

func TestPing_ErrorStatuses(t *testing.T) {
	transport := &probe.TransportError{URL: "https://appserver:4848/", Err: errors.New("no such host")}
	cases := []struct {
		name     string
		fetcher  *fakeFetcher
		body     string
		want     int
		wantKind string
	}{
		{"empty result", &fakeFetcher{body: "{}"}, pingBody, http.StatusUnprocessableEntity, "empty_result"},
		{"fetch failed", &fakeFetcher{err: transport}, pingBody, http.StatusBadGateway, "fetch_failed"},
		{"missing field", &fakeFetcher{}, `{"host":"https://appserver"}`, http.StatusBadRequest, "invalid_parameters"},
		{"bad pattern", &fakeFetcher{}, strings.Replace(pingBody, `(\\w+)`, `(\\w+`, 1), http.StatusBadRequest, "invalid_pattern"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h, _ := setupRouter(t, c.fetcher)
			ts := httptest.NewServer(h)
			defer ts.Close()

			resp, out := postPing(t, ts, c.body)
			if resp.StatusCode != c.want {
				t.Fatalf("want %d, got %d", c.want, resp.StatusCode)
			}
			if out.ErrorKind != c.wantKind || out.Value != nil {
				t.Fatalf("unexpected result %+v", out)
			}
			if c.wantKind == "fetch_failed" && (out.DNS == nil || out.DNS.Host != "appserver") {
				t.Fatalf("fetch failure should carry a DNS diagnosis, got %+v", out.DNS)
			}
		})
	}
}

func TestPing_BadPayloadAndAuth(t *testing.T) {
	h, _ := setupRouter(t, &fakeFetcher{})
	ts := httptest.NewServer(h)
	defer ts.Close()

	resp, _ := postPing(t, ts, `{"host":`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400 for malformed json, got %d", resp.StatusCode)
	}

	resp2, err := http.Post(ts.URL+"/api/ping", "application/json", strings.NewReader(pingBody))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401 without key, got %d", resp2.StatusCode)
	}
}

func TestItemEndpoints(t *testing.T) {
	h, _ := setupRouter(t, &fakeFetcher{body: `"exit_code":"SUCCESS",`})
	ts := httptest.NewServer(h)
	defer ts.Close()

	get := func(path string) (*http.Response, []byte) {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+path, nil)
		req.Header.Set("Authorization", "Bearer key_test")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return resp, b
	}

	resp, b := get("/api/items")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(b), agent.PingPoolKey) {
		t.Fatalf("items: status=%d body=%s", resp.StatusCode, b)
	}

	key := `glassfish.ping.connection.pool[https://app,4848,DerbyPool,"exit_code.:.(\w+).,",admin,secret]`
	resp, b = get("/api/item?key=" + url.QueryEscape(key))
	var res agent.Result
	if err := json.Unmarshal(b, &res); err != nil {
		t.Fatalf("decode: %v (%s)", err, b)
	}
	if resp.StatusCode != http.StatusOK || !res.OK || res.Value != 1 {
		t.Fatalf("item: status=%d result=%+v", resp.StatusCode, res)
	}

	resp, _ = get("/api/item?key=" + url.QueryEscape("glassfish.ping.connection.pool[a,b]"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400 for wrong arity, got %d", resp.StatusCode)
	}

	resp, _ = get("/api/item?key=" + url.QueryEscape("no.such.key"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400 for unknown key, got %d", resp.StatusCode)
	}

	resp, _ = get("/api/item")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400 without key, got %d", resp.StatusCode)
	}
}

func TestItemEndpoint_StatusFollowsErrorKind(t *testing.T) {
	key := `glassfish.ping.connection.pool[https://app,4848,DerbyPool,"exit_code.:.(\w+).,",admin,secret]`
	transport := &probe.TransportError{URL: "https://app:4848/", Err: errors.New("connection refused")}
	cases := []struct {
		name    string
		fetcher *fakeFetcher
		want    int
	}{
		{"empty result", &fakeFetcher{body: "{}"}, http.StatusUnprocessableEntity},
		{"fetch failed", &fakeFetcher{err: transport}, http.StatusBadGateway},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h, _ := setupRouter(t, c.fetcher)
			ts := httptest.NewServer(h)
			defer ts.Close()

			req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/item?key="+url.QueryEscape(key), nil)
			req.Header.Set("X-API-Key", "key_test")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != c.want {
				t.Fatalf("want %d, got %d", c.want, resp.StatusCode)
			}
		})
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	h, srv := setupRouter(t, &fakeFetcher{body: `"exit_code":"SUCCESS",`})
	ts := httptest.NewServer(h)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz want 200, got %d", resp.StatusCode)
	}

	postPing(t, ts, pingBody)

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(b), `test_probes_total{outcome="healthy"} 1`) {
		t.Fatalf("probe counter missing:\n%s", b)
	}
	if !strings.Contains(string(b), `route="/api/ping"`) {
		t.Fatalf("http request counter missing route label:\n%s", b)
	}
	if srv.Metrics == nil {
		t.Fatalf("server metrics should be set")
	}
}
