// Package engine implements the tool-calling orchestration core: the
// bounded provider/tool loop, retry with exponential backoff, per-request
// provider failover, persona-aware response assembly, and the two
// delivery modes (buffered and incremental streaming).
//
// The engine deliberately runs at most one tool round in streaming mode
// while the buffered mode runs the full iteration budget. That asymmetry
// is a latency trade-off for interactive clients, not an oversight.
package engine
