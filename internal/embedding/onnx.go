//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"io"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEmbedder runs a sentence-transformers model (all-MiniLM-L6-v2 by default) through
// ONNX Runtime. It requires CGO and the onnxruntime shared library.
type ONNXEmbedder struct {
	session    *ort.DynamicAdvancedSession
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer
	opts       onnxOptions
	mu         sync.Mutex
}

// NewONNXEmbedder creates an ONNX embedder and initializes the ONNX Runtime environment.
// A nil tokenizer falls back to SimpleTokenizer.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens int, tokenizer Tokenizer, opts ...ONNXOption) (*ONNXEmbedder, error) {
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}
	if tokenizer == nil {
		tokenizer = &SimpleTokenizer{}
	}
	o := newONNXOptions(opts)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{o.outputName},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", modelPath, err)
	}

	return &ONNXEmbedder{
		session:    session,
		dimensions: dimensions,
		maxTokens:  maxTokens,
		tokenizer:  tokenizer,
		opts:       o,
	}, nil
}

// Embed returns the unit-length embedding for text.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts with one inference per chunk of at most the configured batch size.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.opts.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+e.opts.batchSize, len(texts))
		vecs, err := e.run(texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("texts %d-%d: %w", start, end-1, err)
		}
		embeddings = append(embeddings, vecs...)
	}
	return embeddings, nil
}

// run executes one inference over texts; e.mu must be held.
func (e *ONNXEmbedder) run(texts []string) ([][]float32, error) {
	inputIDs, attentionMask, tokenTypeIDs := packBatch(e.tokenizer, texts, e.maxTokens)
	shape := ort.NewShape(int64(len(texts)), int64(e.maxTokens))

	idsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typesTensor, err := ort.NewTensor(shape, tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	defer typesTensor.Destroy()

	outputs := []ort.ArbitraryTensor{nil}
	if err := e.session.Run([]ort.ArbitraryTensor{idsTensor, maskTensor, typesTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output %q is not a float32 tensor", e.opts.outputName)
	}
	return poolOutput(out.GetData(), []int64(out.GetShape()), attentionMask, len(texts), e.dimensions)
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and the tokenizer.
func (e *ONNXEmbedder) Close() error {
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if c, ok := e.tokenizer.(io.Closer); ok {
		_ = c.Close()
	}
	return err
}
