// Package report renders session analysis reports, plain-text
// transcripts, and AI-generated conversation summaries.
//
// Summaries call the first participating agent's provider. When no
// credential exists for that provider, or the call fails, a degraded
// statistics-only summary is returned instead of an error; the Summary's
// Generated field distinguishes the two.
package report
