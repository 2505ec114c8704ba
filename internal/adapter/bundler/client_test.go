package bundler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(bundlerURL, chainURL, priceURL string) *Client {
	c := NewClient(bundlerURL, chainURL, priceURL)
	c.retryDelay = time.Millisecond
	return c
}

func TestSendIntentionRetriesTransientFailures(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hash": "0xdeadbeef"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "", "")
	result, err := c.SendIntention(context.Background(), &SignedIntention{
		Intention: json.RawMessage(`{"to": "0xabc"}`),
		Signature: "0xsig",
		From:      "0xme",
	})
	if err != nil {
		t.Fatalf("SendIntention: %v", err)
	}
	if !strings.Contains(string(result), "0xdeadbeef") {
		t.Fatalf("unexpected result %s", result)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestSendIntentionGivesUpAfterMaxAttempts(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "", "")
	_, err := c.SendIntention(context.Background(), &SignedIntention{Signature: "0xsig"})
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", got)
	}
}

func TestSendIntentionUnconfigured(t *testing.T) {
	c := NewClient("", "", "")
	if _, err := c.SendIntention(context.Background(), &SignedIntention{}); err == nil {
		t.Fatalf("expected error when bundler is not configured")
	}
}

func TestBlockNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/block-number" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"blockNumber": 1234567}`))
	}))
	defer srv.Close()

	c := newTestClient("", srv.URL, "")
	n, err := c.BlockNumber(context.Background())
	if err != nil {
		t.Fatalf("BlockNumber: %v", err)
	}
	if n != 1234567 {
		t.Fatalf("expected 1234567, got %d", n)
	}
}

func TestGetBalancePassesAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/balance/0xabc" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"balance": "100"}`))
	}))
	defer srv.Close()

	c := newTestClient("", srv.URL, "")
	result, err := c.GetBalance(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if !strings.Contains(string(result), "100") {
		t.Fatalf("unexpected result %s", result)
	}
}

func TestGetTokenPricesErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient("", "", srv.URL)
	_, err := c.GetTokenPrices(context.Background())
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status error, got %v", err)
	}
}
