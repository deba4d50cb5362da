package datasource

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDoGetSetsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("expected default user agent, got %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Referer") != "https://example.test" {
			t.Errorf("expected custom referer, got %q", r.Header.Get("Referer"))
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, status, err := doGet(context.Background(), nil, srv.URL, map[string]string{"Referer": "https://example.test"})
	if err != nil {
		t.Fatalf("doGet() error: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if status != http.StatusOK || string(data) != "ok" {
		t.Errorf("expected 200 ok, got %d %q", status, data)
	}
}

func TestDoGetHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, status, err := doGet(context.Background(), srv.Client(), srv.URL, nil)
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *ErrHTTP, got %v", err)
	}
	if status != http.StatusTooManyRequests || httpErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d / %d", status, httpErr.StatusCode)
	}
	if !strings.Contains(httpErr.Body, "slow down") {
		t.Errorf("expected body in error, got %q", httpErr.Body)
	}
}

func TestDoGetRedactsKey(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := doGet(ctx, nil, "http://127.0.0.1:1/api/x.json?crtfc_key=SECRET123&corp_code=1", nil)
	if err == nil {
		t.Fatal("expected error for cancelled request")
	}
	if strings.Contains(err.Error(), "SECRET123") {
		t.Errorf("expected key redacted, got %v", err)
	}
}

func TestRedact(t *testing.T) {
	got := redact("https://opendart.fss.or.kr/api/a.json?corp_code=00126380&crtfc_key=abc")
	if strings.Contains(got, "abc") || !strings.Contains(got, "corp_code=00126380") {
		t.Errorf("unexpected redaction: %s", got)
	}
	plain := "https://finance.naver.com/item/main.naver?code=005930"
	if redact(plain) != plain {
		t.Errorf("expected URL without key unchanged, got %s", redact(plain))
	}
}
