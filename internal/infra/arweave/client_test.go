package arweave

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ingmarAvocado/abs-worker/internal/core/domain"
)

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tx" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/pdf" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "document bytes" {
			t.Errorf("body = %q", body)
		}
		w.Write([]byte(`{"id":"tx123"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{GatewayURL: srv.URL, APIKey: "secret"})
	locator, err := c.Upload(context.Background(), []byte("document bytes"), "application/pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if locator != srv.URL+"/tx123" {
		t.Errorf("locator = %q", locator)
	}
}

func TestUploadServerErrorIsRetryable(t *testing.T) {
	for _, code := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusTooManyRequests} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", code)
		}))

		c := NewClient(Config{GatewayURL: srv.URL})
		_, err := c.Upload(context.Background(), []byte("x"), "text/plain")
		var ierr *domain.RetryableInfraError
		if !errors.As(err, &ierr) {
			t.Errorf("http %d: got %v, want RetryableInfraError", code, err)
		}
		srv.Close()
	}
}

func TestUploadClientErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	c := NewClient(Config{GatewayURL: srv.URL})
	_, err := c.Upload(context.Background(), []byte("x"), "text/plain")
	if err == nil {
		t.Fatal("expected error")
	}
	var ierr *domain.RetryableInfraError
	if errors.As(err, &ierr) {
		t.Errorf("4xx rejection classified retryable: %v", err)
	}
}

func TestUploadEmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{GatewayURL: srv.URL})
	if _, err := c.Upload(context.Background(), []byte("x"), "text/plain"); err == nil {
		t.Fatal("empty transaction id accepted")
	}
}
