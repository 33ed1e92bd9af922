package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mwrenn/research-pipeline/internal/domain"
	"github.com/mwrenn/research-pipeline/internal/testutil"
)

func TestWebhookCapability_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected JSON content type, got %q", got)
		}
		if got := r.Header.Get("X-Api-Key"); got != "secret" {
			t.Errorf("expected configured header, got %q", got)
		}

		var in domain.Message
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode request envelope: %v", err)
		}
		req, ok := in.Payload.(*domain.CollectRequest)
		if !ok {
			t.Errorf("expected CollectRequest, got %T", in.Payload)
		}

		reply := domain.NewMessage("collect", &domain.CollectResult{
			Query:   req.Query,
			Results: []domain.Source{{Title: "remote", URL: "https://example.com/r", Domain: "example.com", Score: 0.7}},
		})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	}))
	defer srv.Close()

	hook := NewWebhookCapability(WebhookConfig{
		Name:    "remote-collect",
		URL:     srv.URL,
		Headers: map[string]string{"X-Api-Key": "secret"},
	})

	out := hook.Invoke(context.Background(), domain.NewMessage(roleOrchestrator, &domain.CollectRequest{Query: "go", MaxResults: 1}))

	res, ok := out.Payload.(*domain.CollectResult)
	if !ok {
		t.Fatalf("expected CollectResult, got %T", out.Payload)
	}
	if res.Query != "go" || len(res.Results) != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestWebhookCapability_Non2xxIsErrorReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream on fire", http.StatusBadGateway)
	}))
	defer srv.Close()

	hook := NewWebhookCapability(WebhookConfig{Name: "remote-collect", URL: srv.URL})
	out := hook.Invoke(context.Background(), domain.NewMessage(roleOrchestrator, &domain.CollectRequest{Query: "go"}))

	if _, ok := out.Payload.(*domain.ErrorResult); !ok {
		t.Fatalf("expected ErrorResult, got %T", out.Payload)
	}
}

func TestWebhookCapability_MalformedReplyIsErrorReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	hook := NewWebhookCapability(WebhookConfig{Name: "remote-collect", URL: srv.URL})
	out := hook.Invoke(context.Background(), domain.NewMessage(roleOrchestrator, &domain.CollectRequest{Query: "go"}))

	if _, ok := out.Payload.(*domain.ErrorResult); !ok {
		t.Fatalf("expected ErrorResult, got %T", out.Payload)
	}
}

func TestWebhookCapability_TransportFailureIsErrorReply(t *testing.T) {
	hook := NewWebhookCapability(WebhookConfig{Name: "remote-collect", URL: "http://127.0.0.1:1"})
	out := hook.Invoke(context.Background(), domain.NewMessage(roleOrchestrator, &domain.CollectRequest{Query: "go"}))

	if _, ok := out.Payload.(*domain.ErrorResult); !ok {
		t.Fatalf("expected ErrorResult, got %T", out.Payload)
	}
}

func TestWebhookCapability_ReplayedFixture(t *testing.T) {
	recorder, cleanup := testutil.NewVCRRecorder(t, "webhook_collect")
	defer cleanup()

	hook := NewWebhookCapability(WebhookConfig{
		Name:   "remote-collect",
		URL:    "https://capabilities.example.com/collect",
		Client: testutil.VCRHTTPClient(recorder),
	})

	out := hook.Invoke(context.Background(), domain.NewMessage(roleOrchestrator, &domain.CollectRequest{Query: "grid storage", MaxResults: 2}))

	res, ok := out.Payload.(*domain.CollectResult)
	if !ok {
		t.Fatalf("expected CollectResult, got %T", out.Payload)
	}
	if res.Query != "grid storage" {
		t.Errorf("unexpected query: %q", res.Query)
	}
	if len(res.Results) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(res.Results))
	}
	if res.Results[0].Domain != "research.example.edu" {
		t.Errorf("unexpected first source: %+v", res.Results[0])
	}
}
