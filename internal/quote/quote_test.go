package quote

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPQuoteSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Symbol,Date,Time,Open,High,Low,Close,Volume\nACME.US,2024-01-02,16:00:00,10,11,9,10.5,1000\n"))
	}))
	defer srv.Close()

	h := &HTTPQuoteSource{Endpoint: srv.URL + "/?s=%s"}
	got, err := h.Fetch("acme")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if got != "10.5" {
		t.Errorf("Fetch = %q, want %q", got, "10.5")
	}
}

func TestHTTPQuoteSourceNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := &HTTPQuoteSource{Endpoint: srv.URL + "/?s=%s"}
	if _, err := h.Fetch("acme"); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestHTTPQuoteSourceEscapesSymbol(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte("Symbol,Date,Time,Open,High,Low,Close,Volume\nA.US,2024-01-02,16:00:00,1,1,1,1.0,1\n"))
	}))
	defer srv.Close()

	h := &HTTPQuoteSource{Endpoint: srv.URL + "/?s=%s"}
	if _, err := h.Fetch("a b"); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if !strings.Contains(gotQuery, "A+B") && !strings.Contains(gotQuery, "A%20B") {
		t.Errorf("query = %q, want escaped uppercased symbol", gotQuery)
	}
}
