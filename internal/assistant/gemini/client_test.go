package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "workboard/pkg/domain-errors"
)

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, ":generateContent")
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestGenerateReturnsJoinedParts(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{
		"candidates": [{"content": {"parts": [{"text": "Hello "}, {"text": "board."}]}}]
	}`)
	defer srv.Close()

	client := New(srv.URL, "test-model", "test-key")
	text, err := client.Generate(context.Background(), "say hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello board.", text)
}

func TestGenerateSendsPrompt(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "test-model", "test-key")
	_, err := client.Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	require.Len(t, got.Contents, 1)
	require.Len(t, got.Contents[0].Parts, 1)
	assert.Equal(t, "the prompt", got.Contents[0].Parts[0].Text)
}

func TestGenerateClassifiesStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		code   dErrors.Code
	}{
		{"unauthorized", http.StatusUnauthorized, dErrors.CodeUnauthorized},
		{"forbidden", http.StatusForbidden, dErrors.CodeUnauthorized},
		{"rate limited", http.StatusTooManyRequests, dErrors.CodeQuotaExceeded},
		{"server error", http.StatusInternalServerError, dErrors.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, tc.status, `{}`)
			defer srv.Close()

			client := New(srv.URL, "test-model", "test-key")
			_, err := client.Generate(context.Background(), "hello")
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tc.code), "expected %s, got %v", tc.code, err)
		})
	}
}

func TestGenerateClassifiesTransportFailure(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{}`)
	srv.Close() // refuse connections

	client := New(srv.URL, "test-model", "test-key")
	_, err := client.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	client := New("http://localhost:0", "test-model", "")
	_, err := client.Generate(context.Background(), "hello")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestGenerateEmptyCandidates(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"candidates": []}`)
	defer srv.Close()

	client := New(srv.URL, "test-model", "test-key")
	_, err := client.Generate(context.Background(), "hello")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
