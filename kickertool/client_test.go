package kickertool

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kickplan/tournament-mirror/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, baseURL string) Client {
	t.Helper()
	client, err := NewHTTPClient(ClientConfig{
		BaseURL:    baseURL,
		APIKey:     "secret-key",
		Timeout:    2 * time.Second,
		MaxRetries: 2,
	}, testLogger())
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	return client
}

func TestFetchTournamentSendsFlagsAndAuth(t *testing.T) {
	var gotPath, gotAuth string
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"id":"t1","name":"Open","state":"started"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	payload, err := client.FetchTournament(context.Background(), "t1", TournamentQuery{
		IncludeMatches:   true,
		IncludeStandings: false,
		IncludeCourts:    true,
	})
	if err != nil {
		t.Fatalf("FetchTournament: %v", err)
	}

	if gotPath != "/tournaments/t1" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("authorization header = %q", gotAuth)
	}
	for param, want := range map[string]string{
		"includeMatches":   "true",
		"includeStandings": "false",
		"includeCourts":    "true",
	} {
		if got := gotQuery[param]; len(got) != 1 || got[0] != want {
			t.Errorf("query %s = %v, want %s", param, got, want)
		}
	}

	if payload == nil || payload.Name != "Open" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if len(payload.Raw) == 0 {
		t.Errorf("raw snapshot not kept on payload")
	}
}

func TestFetchCourtsOmitsDetailFlagWhenUnset(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`[{"id":"c1","number":1}]`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	courts, err := client.FetchCourts(context.Background(), "t1", CourtsQuery{})
	if err != nil {
		t.Fatalf("FetchCourts: %v", err)
	}
	if len(courts) != 1 || courts[0].ID != "c1" {
		t.Fatalf("unexpected courts: %+v", courts)
	}
	if _, present := gotQuery["includeMatchDetails"]; present {
		t.Errorf("includeMatchDetails should not be sent when false")
	}
}

func TestRetriesTransientServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"id":"m1","state":"done"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	match, err := client.FetchMatch(context.Background(), "m1")
	if err != nil {
		t.Fatalf("FetchMatch after retry: %v", err)
	}
	if match == nil || match.ID != "m1" {
		t.Fatalf("unexpected match: %+v", match)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server called %d times, want 2", got)
	}
}

func TestMetricsUseStaticOperationLabels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"m42","state":"done"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	before := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("match", "ok"))
	if _, err := client.FetchMatch(context.Background(), "m42"); err != nil {
		t.Fatalf("FetchMatch: %v", err)
	}
	after := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("match", "ok"))
	if after-before != 1 {
		t.Errorf("match counter delta = %v, want 1", after-before)
	}

	// Labeling by request path would grow one series per match id.
	if got := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("/matches/m42", "ok")); got != 0 {
		t.Errorf("path-labeled series incremented: %v", got)
	}
}

func TestDoesNotRetryNotFound(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.FetchMatch(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestAuthFailureIsPermanent(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.FetchEntries(context.Background(), "t1")
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestEmptyBodiesMeanNoData(t *testing.T) {
	bodies := []string{"", "null", "[]", "{}"}
	for _, body := range bodies {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))

		client := newTestClient(t, server.URL)

		payload, err := client.FetchTournament(context.Background(), "t1", TournamentQuery{})
		if err != nil {
			t.Errorf("body %q: unexpected error %v", body, err)
		}
		if payload != nil {
			t.Errorf("body %q: payload = %+v, want nil", body, payload)
		}

		entries, err := client.FetchEntries(context.Background(), "t1")
		if err != nil {
			t.Errorf("body %q: entries error %v", body, err)
		}
		if entries != nil {
			t.Errorf("body %q: entries = %+v, want nil", body, entries)
		}

		server.Close()
	}
}

func TestExhaustedRetriesReportUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.FetchEntries(context.Background(), "t1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestConfigValidation(t *testing.T) {
	if _, err := NewHTTPClient(ClientConfig{APIKey: "k"}, testLogger()); err == nil {
		t.Errorf("missing base URL should fail")
	}
	if _, err := NewHTTPClient(ClientConfig{BaseURL: "http://localhost"}, testLogger()); err == nil {
		t.Errorf("missing API key should fail")
	}
}
