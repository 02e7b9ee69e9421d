package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragdesk/config"
)

func TestOpenAIEmbedderBatches(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req embeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		assert.Zero(t, req.Dimensions)

		// Answer in reverse order to check index mapping.
		var resp embeddingResponse
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, embeddingData{
				Index:     i,
				Embedding: []float32{float32(len(req.Input[i])), 1},
			})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIOptions{
		APIKey:    "sk-test",
		Model:     "text-embedding-3-small",
		BaseURL:   srv.URL,
		BatchSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 1536, e.Dimension())
	assert.Equal(t, "text-embedding-3-small", e.ModelName())

	vecs, err := e.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float32{1, 1}, vecs[0])
	assert.Equal(t, []float32{2, 1}, vecs[1])
	assert.Equal(t, []float32{3, 1}, vecs[2])
}

func TestOpenAIEmbedderReducedDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 256, req.Dimensions)
		fmt.Fprint(w, `{"data":[{"index":0,"embedding":[0.5]}]}`)
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIOptions{APIKey: "k", Model: "text-embedding-3-large", BaseURL: srv.URL, Dimension: 256})
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
}

func TestOpenAIEmbedderErrors(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIOptions{})
	assert.Error(t, err)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	defer failing.Close()

	e, err := NewOpenAIEmbedder(OpenAIOptions{APIKey: "k", BaseURL: failing.URL})
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	short := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer short.Close()

	e, err = NewOpenAIEmbedder(OpenAIOptions{APIKey: "k", BaseURL: short.URL})
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), []string{"x"})
	assert.Error(t, err)

	vecs, err := e.Embed(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestMockEmbedder(t *testing.T) {
	e := NewMockEmbedder(32)
	vecs, err := e.Embed(context.Background(), []string{"study programs", "Study Programs!", "parking fees"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Len(t, vecs[0], 32)
	assert.Equal(t, vecs[0], vecs[1])
	assert.NotEqual(t, vecs[0], vecs[2])

	empty, err := e.Embed(context.Background(), []string{""})
	require.NoError(t, err)
	assert.Len(t, empty[0], 32)
}

type countingEmbedder struct {
	calls  int
	inputs []string
	fail   bool
}

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.inputs = append(c.inputs, texts...)
	if c.fail {
		return nil, errors.New("boom")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (c *countingEmbedder) Dimension() int    { return 1 }
func (c *countingEmbedder) ModelName() string { return "counting" }

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	e := WithCache(inner, 10, time.Minute, nil)

	vecs, err := e.Embed(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, vecs)

	vecs, err = e.Embed(context.Background(), []string{"bb", "ccc", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}, {3}, {1}}, vecs)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, []string{"a", "bb", "ccc"}, inner.inputs)

	_, err = e.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)

	assert.Equal(t, 1, e.Dimension())
	assert.Equal(t, "counting", e.ModelName())
}

func TestCachedEmbedderDisabledAndErrors(t *testing.T) {
	inner := &countingEmbedder{fail: true}
	assert.Same(t, inner, WithCache(inner, 0, time.Minute, nil))

	e := WithCache(inner, 10, time.Minute, nil)
	_, err := e.Embed(context.Background(), []string{"x"})
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().Embedding
	cfg.Provider = "mock"
	cfg.Dimension = 16

	e, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 16, e.Dimension())
	assert.Equal(t, "mock", e.ModelName())
	_, cached := e.(*CachedEmbedder)
	assert.True(t, cached)

	cfg.Provider = "openai"
	cfg.APIKeyEnv = "RAGDESK_TEST_MISSING_KEY"
	t.Setenv("RAGDESK_TEST_MISSING_KEY", "")
	_, err = New(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg.Provider = "cohere"
	_, err = New(context.Background(), cfg, nil)
	assert.Error(t, err)
}
