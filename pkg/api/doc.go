// Package api defines the wire types for the ElectroHub assistant
// orchestrator: chat requests and responses, streaming events, the
// structured error taxonomy, and request validation/clamping rules.
//
// The types here are transport-neutral. The HTTP binding lives in
// pkg/transport/http.
package api
