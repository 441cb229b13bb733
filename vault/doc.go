// Package vault stores provider API keys per user, encrypted at rest.
// Secret material is decoupled from agent definitions so one agent can run
// under different users' keys. The resolver reports a missing credential
// as a distinct, expected outcome rather than a transport failure, and
// never logs or returns ciphertext.
package vault
