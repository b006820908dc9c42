// Package provider abstracts an LLM inference backend behind a small
// chat-with-tools contract. Adapters handle their own backend protocol;
// the openaicompat subpackage speaks the Chat Completions dialect.
//
// Adapters classify their failures with an ErrorKind so callers can
// pattern-match on transient, quota, and fatal errors instead of
// inspecting error text.
package provider
