package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// CountTokens estimates the token count of text for model. Models outside
// the tiktoken tables fall back to the cl100k_base encoding; if even that
// is unavailable a rough bytes/4 estimate is returned so turn accounting
// never blocks persistence.
func CountTokens(model, text string) int {
	if text == "" {
		return 0
	}

	if tk, err := tiktoken.EncodingForModel(model); err == nil {
		return len(tk.Encode(text, nil, nil))
	}

	encOnce.Do(func() {
		enc, _ = tiktoken.GetEncoding(fallbackEncoding)
	})
	if enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return len(text) / 4
}
