package embedding

import (
	"fmt"

	"github.com/hyperjump/postscout/pkg/utils"
)

const (
	// DefaultONNXOutput is the output name of a model exported with pooling built in.
	DefaultONNXOutput = "output"
	// DefaultONNXBatchSize caps the texts sent in one inference call.
	DefaultONNXBatchSize = 32
)

// ONNXOption configures an ONNXEmbedder.
type ONNXOption func(*onnxOptions)

type onnxOptions struct {
	outputName string
	batchSize  int
}

// WithOutputName selects the model output to read. Use "last_hidden_state" for a plain
// transformer export; its token vectors are mean-pooled over the attention mask.
func WithOutputName(name string) ONNXOption {
	return func(o *onnxOptions) {
		if name != "" {
			o.outputName = name
		}
	}
}

// WithBatchSize caps how many texts go into one inference call.
func WithBatchSize(n int) ONNXOption {
	return func(o *onnxOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

func newONNXOptions(opts []ONNXOption) onnxOptions {
	o := onnxOptions{outputName: DefaultONNXOutput, batchSize: DefaultONNXBatchSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// packBatch tokenizes texts into flattened (len(texts), maxTokens) input tensors.
func packBatch(tok Tokenizer, texts []string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	n := len(texts) * maxTokens
	inputIDs = make([]int64, n)
	attentionMask = make([]int64, n)
	tokenTypeIDs = make([]int64, n)
	for i, text := range texts {
		ids, mask, types := tok.Tokenize(text, maxTokens)
		off := i * maxTokens
		copy(inputIDs[off:off+maxTokens], ids)
		copy(attentionMask[off:off+maxTokens], mask)
		copy(tokenTypeIDs[off:off+maxTokens], types)
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// poolOutput turns a model output into one unit-length vector per text.
// A (batch, dims) output is used as is; a (batch, seq, dims) output is mean-pooled
// over the tokens whose attention mask is set.
func poolOutput(data []float32, shape []int64, attentionMask []int64, batch, dims int) ([][]float32, error) {
	out := make([][]float32, batch)
	switch len(shape) {
	case 2:
		if shape[0] != int64(batch) || shape[1] != int64(dims) {
			return nil, fmt.Errorf("output shape %v, want [%d %d]: %w", shape, batch, dims, ErrDimensionMismatch)
		}
		for i := range out {
			v := make([]float32, dims)
			copy(v, data[i*dims:(i+1)*dims])
			utils.NormalizeL2(v)
			out[i] = v
		}
	case 3:
		seq := int(shape[1])
		if shape[0] != int64(batch) || shape[2] != int64(dims) || len(attentionMask) != batch*seq {
			return nil, fmt.Errorf("output shape %v, want [%d seq %d]: %w", shape, batch, dims, ErrDimensionMismatch)
		}
		for i := range out {
			v := make([]float32, dims)
			var count float32
			for t := 0; t < seq; t++ {
				if attentionMask[i*seq+t] == 0 {
					continue
				}
				count++
				row := data[(i*seq+t)*dims : (i*seq+t+1)*dims]
				for d, x := range row {
					v[d] += x
				}
			}
			if count > 0 {
				for d := range v {
					v[d] /= count
				}
			}
			utils.NormalizeL2(v)
			out[i] = v
		}
	default:
		return nil, fmt.Errorf("unsupported output rank %d (shape %v)", len(shape), shape)
	}
	return out, nil
}
