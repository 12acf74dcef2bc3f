package httpclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blackridge-sec/vulnscan-core/internal/plugins/tools/httpclient"
)

func TestClient_GetReturnsResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := httpclient.New(2*time.Second, 3)
	resp, err := c.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "hello" {
		t.Errorf("expected body hello, got %q", body)
	}
}

func TestClient_PostSendsBody(t *testing.T) {
	var received string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		received = string(b)
	}))
	defer srv.Close()

	c := httpclient.New(2*time.Second, 3)
	resp, err := c.Post(context.Background(), srv.URL, nil, []byte("payload"))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	resp.Body.Close()

	if received != "payload" {
		t.Errorf("expected server to receive payload, got %q", received)
	}
}

func TestClient_FailsAfterExhaustingRetries(t *testing.T) {
	c := httpclient.New(100*time.Millisecond, 2)
	_, err := c.Get(context.Background(), "http://127.0.0.1:1/unreachable", nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries against unreachable host")
	}
}

func TestClient_Name(t *testing.T) {
	c := httpclient.New(time.Second, 1)
	if c.Name() != "http_client" {
		t.Errorf("unexpected tool name %q", c.Name())
	}
}
