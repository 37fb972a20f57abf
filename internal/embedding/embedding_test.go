package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/postscout/internal/config"
	"github.com/hyperjump/postscout/pkg/utils"
)

func TestMockEmbedder_deterministicUnitLength(t *testing.T) {
	e := NewMockEmbedder(32)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "roaming charges")
	b, _ := e.Embed(ctx, "roaming charges")
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text should embed identically")
		}
	}
	if m := utils.Magnitude(a); m < 0.999 || m > 1.001 {
		t.Errorf("magnitude = %v, want 1", m)
	}
	batch, _ := e.EmbedBatch(ctx, []string{"x", "roaming charges"})
	for i := range a {
		if batch[1][i] != a[i] {
			t.Fatal("EmbedBatch should match Embed")
		}
	}
}

func TestMockEmbedder_canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMockEmbedder(4).Embed(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestHTTPEmbedder_EmbedBatch(t *testing.T) {
	var got embedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/embed" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
		out := make([][]float32, len(got.Inputs))
		for i := range out {
			out[i] = []float32{float32(i), 1, 0}
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL+"/", 3, 0)
	defer e.Close()
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Inputs) != 2 || got.Inputs[1] != "b" {
		t.Errorf("server got %+v", got)
	}
	if len(vecs) != 2 || vecs[1][0] != 1 {
		t.Errorf("vecs = %v", vecs)
	}
}

func TestHTTPEmbedder_errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
		is      error
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model loading", http.StatusServiceUnavailable)
			},
			want: "status 503",
		},
		{
			name: "count mismatch",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[[1,0,0]]`))
			},
			want: "got 1 embeddings for 2 inputs",
		},
		{
			name: "dimension mismatch",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[[1,0],[0,1]]`))
			},
			is: ErrDimensionMismatch,
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{`))
			},
			want: "decode",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, err := NewHTTPEmbedder(srv.URL, 3, 0).EmbedBatch(context.Background(), []string{"a", "b"})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("err = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestHTTPEmbedder_emptyBatch(t *testing.T) {
	vecs, err := NewHTTPEmbedder("http://127.0.0.1:0", 3, 0).EmbedBatch(context.Background(), nil)
	if err != nil || len(vecs) != 0 {
		t.Fatalf("vecs=%v err=%v", vecs, err)
	}
}

func TestNew(t *testing.T) {
	e, err := New(config.EmbeddingConfig{Provider: "mock", Dimensions: 8, CacheSize: 4}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*CachedEmbedder); !ok {
		t.Errorf("expected cached embedder, got %T", e)
	}
	if e.Dimensions() != 8 {
		t.Errorf("Dimensions=%d", e.Dimensions())
	}

	e, err = New(config.EmbeddingConfig{Provider: "http", URL: "http://localhost:8080", Dimensions: 8}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*HTTPEmbedder); !ok {
		t.Errorf("expected http embedder, got %T", e)
	}

	if _, err := New(config.EmbeddingConfig{Provider: "word2vec"}, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := New(config.EmbeddingConfig{Provider: "http"}, nil); err == nil {
		t.Error("expected error for http without url")
	}
}
