// Package pipeline provides the stage-pipeline orchestration engine.
//
// A run drives a fixed, ordered sequence of research stages
// (collect → verify → synthesize → render), threading an accumulating
// Context between them. Each stage exposes a single capability and is
// bounded by its own timeout; the executor normalizes success, reported
// errors, timeouts and panics into one StepResult taxonomy so the
// orchestrator never special-cases how a failure arose.
//
// # Capability Contract
//
// A capability implements Invoke(ctx, Message) Message. Failures are
// communicated through the reply payload (an ErrorResult), never through
// errors or panics crossing the contract boundary. Side effects are the
// capability's private concern; the orchestrator observes only the reply.
//
// # Wire Contract
//
// Out-of-process capabilities (see WebhookCapability) receive the envelope
// as JSON and must reply in kind:
//
//	POST <url>
//	Content-Type: application/json
//
//	{
//	  "role": "orchestrator",
//	  "payload": {"kind": "verify.request", "status": "success", "data": {...}},
//	  "metadata": {...}
//	}
//
// Reply payload kinds ending in ".result" carry a stage result; kind
// "error" carries {"error": "..."} and marks the invocation failed.
package pipeline
