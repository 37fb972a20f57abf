package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultHuggingFaceURL is the Inference API base URL.
const DefaultHuggingFaceURL = "https://api-inference.huggingface.co"

// HuggingFace calls a zero-shot-classification model on the Hugging Face Inference API.
type HuggingFace struct {
	url    string
	token  string
	client *http.Client
}

// NewHuggingFace returns a backend for model (e.g. facebook/bart-large-mnli).
// An empty baseURL uses DefaultHuggingFaceURL.
func NewHuggingFace(baseURL, model, token string) *HuggingFace {
	if baseURL == "" {
		baseURL = DefaultHuggingFaceURL
	}
	return &HuggingFace{
		url:    strings.TrimRight(baseURL, "/") + "/models/" + model,
		token:  token,
		client: &http.Client{},
	}
}

type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
}

type zeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

// Classify posts text and labels and returns label scores sorted by descending score.
func (h *HuggingFace) Classify(ctx context.Context, text string, labels []string) ([]LabelScore, error) {
	body, err := json.Marshal(zeroShotRequest{
		Inputs:     text,
		Parameters: zeroShotParameters{CandidateLabels: labels},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zero-shot request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zero-shot request: status %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(data)), 200))
	}
	return parseScores(data)
}
