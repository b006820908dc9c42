package engine

import (
	"context"
	"sync"

	"github.com/dp287517/electrohub-assistant/pkg/provider"
	"github.com/dp287517/electrohub-assistant/pkg/tools"
)

// ToolRunner is the registry surface the loop consumes: the declared
// catalog plus failure-proof execution.
type ToolRunner interface {
	// Definitions returns the declared tool catalog.
	Definitions() []tools.Definition

	// Execute resolves and invokes one call. Implementations never
	// return an error; failures become failed results.
	Execute(ctx context.Context, call tools.Call) *tools.Result
}

// runLoop drives the bounded provider/tool cycle to completion and
// returns the final assistant content.
//
// Each cycle awaits a provider response; a response without tool calls
// finishes the loop, a response with tool calls executes the batch and
// goes around again. When the iteration cap is reached, or the active
// provider lost tool-calling capability through failover, the loop
// finishes with whatever content is available, possibly empty.
func (e *Engine) runLoop(ctx context.Context, fo *failoverChat, sess *session) (string, error) {
	defs := e.runner.Definitions()

	for {
		resp, err := fo.chat(ctx, &provider.Request{
			Messages: sess.messages,
			Tools:    defs,
		})
		if err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 || !fo.toolCapable() {
			return resp.Content, nil
		}
		if sess.iterations >= e.cfg.MaxToolIterations {
			return resp.Content, nil
		}

		results := e.executeBatch(ctx, resp.ToolCalls)
		sess.appendToolRound(resp.ToolCalls, results)
	}
}

// executeBatch invokes all tool calls of one round concurrently and
// returns results in request order. A failing tool never aborts the
// batch; its slot holds a failed result.
func (e *Engine) executeBatch(ctx context.Context, calls []tools.Call) []tools.Result {
	results := make([]tools.Result, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c tools.Call) {
			defer wg.Done()
			results[idx] = *e.runner.Execute(ctx, c)
			e.collector.RecordTool(c.Name)
		}(i, call)
	}
	wg.Wait()

	return results
}
