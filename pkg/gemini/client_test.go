package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

func TestGenerateReturnsFirstCandidateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))

		var req wireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hi there"}]}}]}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "k", BaseURL: srv.URL})
	require.True(t, c.Configured())
	text, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", text)
}

func TestGenerateUpstreamErrorAndEmptyAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	_, err := New(Config{APIKey: "k", BaseURL: srv.URL}).Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCandidates)
	assert.Contains(t, err.Error(), "API key not valid")

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer empty.Close()

	_, err = New(Config{APIKey: "k", BaseURL: empty.URL}).Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestGenerateRequiresKey(t *testing.T) {
	c := New(Config{APIKey: "   "})
	assert.False(t, c.Configured())
	_, err := c.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
