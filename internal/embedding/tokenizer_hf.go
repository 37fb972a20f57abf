//go:build cgo && hftokenizers

package embedding

import (
	"fmt"
	"sync"

	"github.com/daulet/tokenizers"
)

// HFTokenizer tokenizes with a Hugging Face tokenizer.json, matching the vocabulary
// the sentence-transformers model was trained with.
type HFTokenizer struct {
	tk *tokenizers.Tokenizer
	mu sync.Mutex
}

// NewHFTokenizer loads a tokenizer.json file.
func NewHFTokenizer(path string) (*HFTokenizer, error) {
	tk, err := tokenizers.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", path, err)
	}
	return &HFTokenizer{tk: tk}, nil
}

// Tokenize encodes text without special tokens and wraps it in [CLS] ... [SEP].
func (t *HFTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	t.mu.Lock()
	raw, _ := t.tk.Encode(text, false)
	t.mu.Unlock()
	ids := make([]int64, len(raw))
	for i, id := range raw {
		ids[i] = int64(id)
	}
	return pad(ids, maxTokens)
}

// Close releases the native tokenizer.
func (t *HFTokenizer) Close() error {
	return t.tk.Close()
}
