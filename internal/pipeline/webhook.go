package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mwrenn/research-pipeline/internal/domain"
)

// WebhookCapability invokes a stage hosted behind an HTTP endpoint. The
// envelope is posted as JSON and the reply envelope decoded from the
// response body. Transport and protocol failures become ErrorResult replies,
// honoring the contract that no failure crosses the boundary as an error.
type WebhookCapability struct {
	name    string
	url     string
	headers map[string]string
	client  *http.Client
}

// WebhookConfig configures a webhook capability.
type WebhookConfig struct {
	Name    string
	URL     string
	Headers map[string]string
	// Client defaults to a plain http.Client; the stage deadline arrives
	// through the request context, so no client timeout is set.
	Client *http.Client
}

// NewWebhookCapability creates a capability that forwards invocations to an
// external service.
func NewWebhookCapability(cfg WebhookConfig) *WebhookCapability {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &WebhookCapability{
		name:    cfg.Name,
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  client,
	}
}

// Name returns the capability identifier.
func (w *WebhookCapability) Name() string { return w.name }

// Invoke posts the request envelope and decodes the reply.
func (w *WebhookCapability) Invoke(ctx context.Context, in domain.Message) domain.Message {
	body, err := json.Marshal(in)
	if err != nil {
		return domain.NewErrorMessage(w.name, "marshal request envelope: "+err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return domain.NewErrorMessage(w.name, "create request: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return domain.NewErrorMessage(w.name, "webhook request failed: "+err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewErrorMessage(w.name, "read webhook response: "+err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.NewErrorMessage(w.name,
			fmt.Sprintf("webhook returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	var out domain.Message
	if err := json.Unmarshal(respBody, &out); err != nil {
		return domain.NewErrorMessage(w.name, "unmarshal webhook reply: "+err.Error())
	}
	return out
}

var _ Capability = (*WebhookCapability)(nil)
