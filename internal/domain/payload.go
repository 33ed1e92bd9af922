// Package domain provides the canonical types exchanged between the
// orchestrator and stage capabilities: the message envelope, the typed
// per-stage payload schemas, and the run/step result model.
package domain

import (
	"encoding/json"
	"fmt"
)

// PayloadKind identifies the concrete schema carried by an envelope payload.
type PayloadKind string

const (
	KindCollectRequest    PayloadKind = "collect.request"
	KindCollectResult     PayloadKind = "collect.result"
	KindVerifyRequest     PayloadKind = "verify.request"
	KindVerifyResult      PayloadKind = "verify.result"
	KindSynthesizeRequest PayloadKind = "synthesize.request"
	KindSynthesizeResult  PayloadKind = "synthesize.result"
	KindRenderRequest     PayloadKind = "render.request"
	KindRenderResult      PayloadKind = "render.result"
	KindError             PayloadKind = "error"
)

// Payload is the structured body of a Message. Each stage defines its own
// request and result schema; ErrorResult is the shared failure reply.
// A payload is immutable once constructed.
type Payload interface {
	PayloadKind() PayloadKind
}

// CollectRequest asks the collect stage for candidate sources.
type CollectRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// CollectResult is the collect stage's success reply.
type CollectResult struct {
	Query   string   `json:"query"`
	Results []Source `json:"results"`
}

// VerifyRequest asks the verify stage to assess the gathered sources.
type VerifyRequest struct {
	Content string   `json:"content"`
	Sources []Source `json:"sources"`
}

// VerifyResult is the verify stage's success reply.
type VerifyResult struct {
	Verification Verification `json:"verification"`
}

// SynthesizeRequest asks the synthesize stage to merge verified sources.
type SynthesizeRequest struct {
	Topic   string   `json:"topic"`
	Sources []Source `json:"sources"`
}

// SynthesizeResult is the synthesize stage's success reply.
type SynthesizeResult struct {
	Synthesis Synthesis `json:"synthesis"`
}

// RenderRequest asks the render stage to produce the final report.
type RenderRequest struct {
	Synthesis  *Synthesis   `json:"synthesis"`
	Format     OutputFormat `json:"format"`
	IncludeTOC bool         `json:"include_toc"`
}

// RenderResult is the render stage's success reply.
type RenderResult struct {
	Report Artifact `json:"report"`
}

// ErrorResult is the reply a capability returns when it fails. Failures
// travel inside the envelope, never as errors crossing the contract boundary.
type ErrorResult struct {
	Message string `json:"error"`
}

func (*CollectRequest) PayloadKind() PayloadKind    { return KindCollectRequest }
func (*CollectResult) PayloadKind() PayloadKind     { return KindCollectResult }
func (*VerifyRequest) PayloadKind() PayloadKind     { return KindVerifyRequest }
func (*VerifyResult) PayloadKind() PayloadKind      { return KindVerifyResult }
func (*SynthesizeRequest) PayloadKind() PayloadKind { return KindSynthesizeRequest }
func (*SynthesizeResult) PayloadKind() PayloadKind  { return KindSynthesizeResult }
func (*RenderRequest) PayloadKind() PayloadKind     { return KindRenderRequest }
func (*RenderResult) PayloadKind() PayloadKind      { return KindRenderResult }
func (*ErrorResult) PayloadKind() PayloadKind       { return KindError }

// wirePayload is the JSON framing for a payload: a kind tag, a derived
// status field for out-of-process capabilities, and the schema-specific data.
type wirePayload struct {
	Kind   PayloadKind     `json:"kind"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newPayload(kind PayloadKind) (Payload, error) {
	switch kind {
	case KindCollectRequest:
		return &CollectRequest{}, nil
	case KindCollectResult:
		return &CollectResult{}, nil
	case KindVerifyRequest:
		return &VerifyRequest{}, nil
	case KindVerifyResult:
		return &VerifyResult{}, nil
	case KindSynthesizeRequest:
		return &SynthesizeRequest{}, nil
	case KindSynthesizeResult:
		return &SynthesizeResult{}, nil
	case KindRenderRequest:
		return &RenderRequest{}, nil
	case KindRenderResult:
		return &RenderResult{}, nil
	case KindError:
		return &ErrorResult{}, nil
	default:
		return nil, fmt.Errorf("unknown payload kind: %q", kind)
	}
}

// MarshalPayload frames a payload with its kind tag for transport or storage.
func MarshalPayload(p Payload) ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload data: %w", err)
	}
	status := "success"
	if p.PayloadKind() == KindError {
		status = "error"
	}
	return json.Marshal(wirePayload{Kind: p.PayloadKind(), Status: status, Data: data})
}

// UnmarshalPayload decodes a kind-framed payload into its concrete type.
func UnmarshalPayload(b []byte) (Payload, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var w wirePayload
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("unmarshal payload frame: %w", err)
	}
	p, err := newPayload(w.Kind)
	if err != nil {
		return nil, err
	}
	if len(w.Data) > 0 {
		if err := json.Unmarshal(w.Data, p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", w.Kind, err)
		}
	}
	return p, nil
}
