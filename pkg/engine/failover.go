package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/dp287517/electrohub-assistant/pkg/api"
	"github.com/dp287517/electrohub-assistant/pkg/observability"
	"github.com/dp287517/electrohub-assistant/pkg/provider"
)

// failoverChat owns the primary and optional secondary provider for one
// request. A quota-classified failure of the (retried) primary switches
// to the secondary for the remainder of the current request only; the
// next request always tries the primary again. Not safe for concurrent
// use; the loop is strictly sequential.
type failoverChat struct {
	primary   provider.Provider
	secondary provider.Provider

	attempts  int
	baseDelay time.Duration
	collector *observability.Collector

	switched bool
}

// active returns the provider serving the rest of this request.
func (f *failoverChat) active() provider.Provider {
	if f.switched && f.secondary != nil {
		return f.secondary
	}
	return f.primary
}

// role reports which configured slot answered, for the response payload.
func (f *failoverChat) role() api.ProviderRole {
	if f.switched && f.secondary != nil {
		return api.ProviderSecondary
	}
	return api.ProviderPrimary
}

// toolCapable reports whether the active provider can continue the
// tool-call loop. After failover to a text-only secondary, the loop
// terminates early on the secondary's plain-text output.
func (f *failoverChat) toolCapable() bool {
	return f.active().Capabilities().ToolCalling
}

// chat performs one retried provider call, failing over to the secondary
// on quota exhaustion.
func (f *failoverChat) chat(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	p := f.active()
	callReq := f.stripToolsIfNeeded(p, req)

	var resp *provider.Response
	err := f.timedCall(ctx, p, func(ctx context.Context) error {
		var callErr error
		resp, callErr = p.Chat(ctx, callReq)
		return callErr
	})
	if err != nil {
		if f.shouldFailover(err) {
			f.failover(err)
			return f.chat(ctx, req)
		}
		return nil, err
	}
	return resp, nil
}

// stream opens one retried provider stream, failing over to the
// secondary on quota exhaustion at stream initiation. Mid-stream
// failures are not retried. The capability check runs on every entry,
// including the post-failover retry, so a non-streaming secondary is
// served through chat instead of a Stream call it cannot handle.
func (f *failoverChat) stream(ctx context.Context, req *provider.Request) (<-chan provider.Event, error) {
	p := f.active()
	if !p.Capabilities().Streaming {
		return f.chatAsStream(ctx, req)
	}
	callReq := f.stripToolsIfNeeded(p, req)

	var ch <-chan provider.Event
	err := f.timedCall(ctx, p, func(ctx context.Context) error {
		var callErr error
		ch, callErr = p.Stream(ctx, callReq)
		return callErr
	})
	if err != nil {
		if f.shouldFailover(err) {
			f.failover(err)
			return f.stream(ctx, req)
		}
		return nil, err
	}
	return ch, nil
}

// chatAsStream serves the active non-streaming provider through chat and
// adapts the response into a completed event channel.
func (f *failoverChat) chatAsStream(ctx context.Context, req *provider.Request) (<-chan provider.Event, error) {
	resp, err := f.chat(ctx, req)
	if err != nil {
		return nil, err
	}

	ch := make(chan provider.Event, len(resp.ToolCalls)+2)
	if resp.Content != "" {
		ch <- provider.Event{Type: provider.EventTextDelta, Delta: resp.Content}
	}
	for i := range resp.ToolCalls {
		tc := resp.ToolCalls[i]
		ch <- provider.Event{Type: provider.EventToolCall, ToolCall: &tc}
	}
	ch <- provider.Event{Type: provider.EventDone}
	close(ch)
	return ch, nil
}

// timedCall wraps one retried provider call with metrics.
func (f *failoverChat) timedCall(ctx context.Context, p provider.Provider, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := withRetry(ctx, f.attempts, f.baseDelay, fn)
	duration := time.Since(start)

	role := string(f.role())
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.ProviderRequestsTotal.WithLabelValues(p.Name(), role, status).Inc()
	observability.ProviderLatency.WithLabelValues(p.Name(), role).Observe(duration.Seconds())

	return err
}

// shouldFailover reports whether the error warrants switching to the
// secondary: quota-classified, secondary configured, not yet switched.
func (f *failoverChat) shouldFailover(err error) bool {
	return !f.switched && f.secondary != nil && provider.IsQuota(err)
}

// failover switches this request to the secondary provider.
func (f *failoverChat) failover(cause error) {
	f.switched = true
	slog.Warn("primary provider quota exhausted, failing over for this request",
		"primary", f.primary.Name(),
		"secondary", f.secondary.Name(),
		"cause", cause.Error(),
	)
	observability.FailoverTotal.Inc()
	if f.collector != nil {
		f.collector.RecordFailover()
	}
}

// stripToolsIfNeeded removes the tool catalog for providers that do not
// support tool calling, so a text-only secondary still produces an
// answer instead of a protocol error.
func (f *failoverChat) stripToolsIfNeeded(p provider.Provider, req *provider.Request) *provider.Request {
	if p.Capabilities().ToolCalling || len(req.Tools) == 0 {
		return req
	}
	stripped := *req
	stripped.Tools = nil
	return &stripped
}
