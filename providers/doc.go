// Package providers holds shared configuration for the LLM backends.
// Each backend lives in its own subpackage and implements llm.Provider.
package providers
