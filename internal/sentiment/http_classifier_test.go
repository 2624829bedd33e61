package sentiment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chatwatch/internal/domain"
)

func TestHTTPClassifier_Classify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req classifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Text != "to the moon" {
			t.Errorf("text mismatch: %q", req.Text)
		}
		json.NewEncoder(w).Encode(classifyResponse{Sentiment: "positive"})
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, time.Second)
	got, err := c.Classify(context.Background(), "to the moon")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got != domain.SentimentPositive {
		t.Errorf("Sentiment mismatch: %s", got)
	}
}

func TestHTTPClassifier_UnknownLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(classifyResponse{Sentiment: "confused"})
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, time.Second)
	if _, err := c.Classify(context.Background(), "whatever"); err == nil {
		t.Fatal("Expected error for unknown label")
	}
}

func TestHTTPClassifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, time.Second)
	if _, err := c.Classify(context.Background(), "whatever"); err == nil {
		t.Fatal("Expected error for 500 response")
	}
}

func TestKeywordClassifier(t *testing.T) {
	c := NewKeywordClassifier()

	got, err := c.Classify(context.Background(), "massive dump, sell everything")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got != domain.SentimentNegative {
		t.Errorf("Sentiment mismatch: %s", got)
	}
}
