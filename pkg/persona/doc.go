// Package persona implements the domain-specialist routing layer: a
// static persona catalog, a deterministic router selecting the active
// persona from equipment context, tool results, and message keywords,
// and a narrator producing the short transition message when the active
// persona changes.
//
// Routing is a pure function of its inputs. Only the handoff wording is
// random, and that randomness is injectable for tests.
package persona
