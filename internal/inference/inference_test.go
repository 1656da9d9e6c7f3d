package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff() retry.Backoff {
	return retry.WithMaxRetries(2, retry.NewConstant(time.Millisecond))
}

func TestHuggingFaceRecognizeEntities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/ner-vi", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ăn phở 50k", body["inputs"])
		_, _ = w.Write([]byte(`[{"entity_group":"MONEY","word":"50k","score":0.98},{"entity_group":"FOOD","word":"phở"}]`))
	}))
	defer srv.Close()

	hf := NewHuggingFace(srv.URL, "secret", WithBackoff(fastBackoff))
	entities, err := hf.EntityRecognizer("ner-vi").RecognizeEntities(context.Background(), "ăn phở 50k")
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "MONEY", entities[0].Label)
	assert.Equal(t, "50k", entities[0].Text)
}

func TestHuggingFaceGenerateRetriesWhileLoading(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"Model is currently loading"}`))
			return
		}
		var body struct {
			Parameters struct {
				MaxNewTokens int `json:"max_new_tokens"`
			} `json:"parameters"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 10, body.Parameters.MaxNewTokens)
		_, _ = w.Write([]byte(`[{"generated_text":" Tiêu dùng "}]`))
	}))
	defer srv.Close()

	hf := NewHuggingFace(srv.URL, "", WithBackoff(fastBackoff))
	out, err := hf.Generator("gen").Generate(context.Background(), "prompt", 10)
	require.NoError(t, err)
	assert.Equal(t, "Tiêu dùng", out)
	assert.EqualValues(t, 2, calls.Load())
}

func TestHuggingFaceClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad input", http.StatusBadRequest)
	}))
	defer srv.Close()

	hf := NewHuggingFace(srv.URL, "", WithBackoff(fastBackoff))
	_, err := hf.Generator("gen").Generate(context.Background(), "prompt", 10)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	assert.EqualValues(t, 1, calls.Load())
}

func TestHuggingFaceEmptyGeneration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewHuggingFace(srv.URL, "").Generator("gen").Generate(context.Background(), "p", 5)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestOpenAIGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var body struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "small-model", body.Model)
		assert.Equal(t, 100, body.MaxTokens)
		require.Len(t, body.Messages, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Bạn chi tiêu hợp lý."}}]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("key", srv.URL, "small-model")
	out, err := g.Generate(context.Background(), "nhận xét", 100)
	require.NoError(t, err)
	assert.Equal(t, "Bạn chi tiêu hợp lý.", out)
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
	errs  int
}

func (o *recordingObserver) ObserveModelCall(provider, operation string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, provider+"/"+operation)
	if err != nil {
		o.errs++
	}
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, string, int) (string, error) {
	return "", errors.New("boom")
}

func TestNewCapabilities(t *testing.T) {
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		caps, err := New(ctx, Config{Provider: ProviderNone, NERModel: "ner"}, nil, nil)
		require.NoError(t, err)
		assert.Nil(t, caps.Recognizer)
		assert.Nil(t, caps.Category)
		assert.Nil(t, caps.Commentary)
	})

	t.Run("huggingface", func(t *testing.T) {
		caps, err := New(ctx, Config{Provider: ProviderHuggingFace, NERModel: "ner", GenModel: "gen"}, nil, nil)
		require.NoError(t, err)
		assert.NotNil(t, caps.Recognizer)
		assert.Nil(t, caps.Category)
		assert.NotNil(t, caps.Commentary)
	})

	t.Run("openai", func(t *testing.T) {
		caps, err := New(ctx, Config{Provider: ProviderOpenAI, OpenAIAPIKey: "k", OpenAIModel: "m"}, nil, nil)
		require.NoError(t, err)
		assert.Nil(t, caps.Recognizer)
		assert.NotNil(t, caps.Category)
		assert.NotNil(t, caps.Commentary)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := New(ctx, Config{Provider: "llama"}, nil, nil)
		assert.Error(t, err)
	})
}

func TestInstrumentGenerator(t *testing.T) {
	obs := &recordingObserver{}
	g := instrumentGenerator(failingGenerator{}, "openai", "classify", obs)
	_, err := g.Generate(context.Background(), "p", 1)
	require.Error(t, err)
	assert.Equal(t, []string{"openai/classify"}, obs.calls)
	assert.Equal(t, 1, obs.errs)

	assert.Equal(t, failingGenerator{}, instrumentGenerator(failingGenerator{}, "x", "y", nil))
}
