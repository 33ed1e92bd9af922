package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/mwrenn/research-pipeline/internal/domain"
)

func TestRetryExecutor_RetriesUntilSuccess(t *testing.T) {
	attempts := 0
	capability := &mockCapability{name: "collect", fn: func(_ context.Context, in domain.Message) domain.Message {
		attempts++
		if attempts < 3 {
			return domain.NewErrorMessage("collect", "transient backend error")
		}
		return domain.NewMessage("collect", &domain.CollectResult{Query: "q"})
	}}

	exec := NewRetryExecutor(NewExecutor(), 3, 0, nil)
	step := exec.Execute(context.Background(), testDescriptor("collect", time.Second, capability), &Context{Query: "q"})

	if step.Status != domain.StepCompleted {
		t.Fatalf("expected completed after retries, got %s (%s)", step.Status, step.Error)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryExecutor_ExhaustsAttempts(t *testing.T) {
	capability := &mockCapability{name: "collect", fn: func(_ context.Context, in domain.Message) domain.Message {
		return domain.NewErrorMessage("collect", "still broken")
	}}

	exec := NewRetryExecutor(NewExecutor(), 2, 0, nil)
	step := exec.Execute(context.Background(), testDescriptor("collect", time.Second, capability), &Context{Query: "q"})

	if step.Status != domain.StepError {
		t.Fatalf("expected error, got %s", step.Status)
	}
	if capability.callCount() != 2 {
		t.Errorf("expected 2 attempts, got %d", capability.callCount())
	}
	if step.Error != "still broken" {
		t.Errorf("result should be the last attempt's, got %q", step.Error)
	}
}

func TestRetryExecutor_SingleAttemptByDefault(t *testing.T) {
	capability := &mockCapability{name: "collect", fn: func(_ context.Context, in domain.Message) domain.Message {
		return domain.NewErrorMessage("collect", "broken")
	}}

	// Attempts below 1 are clamped to a single attempt.
	exec := NewRetryExecutor(NewExecutor(), 0, 0, nil)
	exec.Execute(context.Background(), testDescriptor("collect", time.Second, capability), &Context{Query: "q"})

	if capability.callCount() != 1 {
		t.Errorf("expected 1 attempt, got %d", capability.callCount())
	}
}

func TestRetryExecutor_StopsOnCancelledContext(t *testing.T) {
	capability := &mockCapability{name: "collect", fn: func(_ context.Context, in domain.Message) domain.Message {
		return domain.NewErrorMessage("collect", "broken")
	}}

	ctx, cancel := context.WithCancel(context.Background())
	exec := NewRetryExecutor(NewExecutor(), 5, time.Hour, nil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	step := exec.Execute(ctx, testDescriptor("collect", time.Second, capability), &Context{Query: "q"})

	if step.Status != domain.StepError {
		t.Fatalf("expected error, got %s", step.Status)
	}
	if capability.callCount() != 1 {
		t.Errorf("cancellation during backoff must stop retries, got %d attempts", capability.callCount())
	}
}
