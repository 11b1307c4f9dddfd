// Package gemini implements the text generator against a Gemini-style
// generateContent HTTP endpoint.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	dErrors "workboard/pkg/domain-errors"
)

// Client calls the generateContent endpoint for one model.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

type Option func(*Client)

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func New(baseURL, model, apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate performs one generateContent call. Failures carry a
// classification code: CodeUnauthorized for rejected credentials,
// CodeQuotaExceeded for rate limits, CodeUnavailable for transport errors.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "no API key configured")
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode request")
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "generate request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read response")
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", dErrors.New(dErrors.CodeUnauthorized, "API key rejected")
	case http.StatusTooManyRequests:
		return "", dErrors.New(dErrors.CodeQuotaExceeded, "quota exceeded")
	default:
		return "", dErrors.New(dErrors.CodeInternal, fmt.Sprintf("generate failed with status %d", resp.StatusCode))
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode response")
	}
	if parsed.Error != nil {
		return "", dErrors.New(dErrors.CodeInternal, parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", dErrors.New(dErrors.CodeInternal, "empty response from model")
	}

	var out strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		out.WriteString(p.Text)
	}
	return out.String(), nil
}
