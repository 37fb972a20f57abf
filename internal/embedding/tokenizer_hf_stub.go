//go:build !(cgo && hftokenizers)

package embedding

import "errors"

// HFTokenizer stub type when built without the hftokenizers tag (see tokenizer_hf.go).
type HFTokenizer struct{}

// NewHFTokenizer returns an error when built without CGO and the hftokenizers tag.
func NewHFTokenizer(_ string) (*HFTokenizer, error) {
	return nil, errors.New("HF tokenizer requires CGO and the hftokenizers build tag")
}

// Tokenize is never reached on the stub.
func (t *HFTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	return (&SimpleTokenizer{}).Tokenize(text, maxTokens)
}

// Close is a no-op on the stub.
func (t *HFTokenizer) Close() error {
	return nil
}
