// Package llm defines the uniform generation contract over heterogeneous
// LLM backends, the provider registry used to select a backend by id, and
// token accounting helpers.
//
// Providers are instance-scoped: each carries its own http.Client and
// configuration, so concurrent sessions never share mutable SDK state.
package llm
