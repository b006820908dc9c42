// Package openaicompat implements provider.Provider against any
// OpenAI-compatible Chat Completions backend (OpenAI, Mistral, vLLM,
// LiteLLM, and friends).
//
// HTTP failures are classified into provider.ErrorKind from status codes
// and backend error codes so the engine's retry and failover policies
// never have to inspect error text.
package openaicompat
