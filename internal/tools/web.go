package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"demon-cli/internal/util"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

// FetchURLTool retrieves a URL over HTTP(S) with retries.
type FetchURLTool struct {
	client *retryablehttp.Client
}

// NewFetchURLTool constructs the web fetch tool.
func NewFetchURLTool() *FetchURLTool {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	return &FetchURLTool{client: client}
}

func (f *FetchURLTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "fetch_url",
		Description: "Fetch the body of an http(s) URL.",
		Category:    CategoryWeb,
		Parameters: []Parameter{
			{Name: "url", Type: "string", Description: "URL to fetch", Required: true},
			{Name: "max_bytes", Type: "integer", Description: "Maximum body bytes to return"},
		},
	}
}

type fetchInput struct {
	URL      string `json:"url"`
	MaxBytes int    `json:"max_bytes"`
}

func (f *FetchURLTool) Execute(ctx context.Context, input json.RawMessage, meta Meta) (string, error) {
	var args fetchInput
	if err := json.Unmarshal(input, &args); err != nil {
		return "", err
	}
	if strings.TrimSpace(args.URL) == "" {
		return "", errors.New("url is required")
	}
	parsed, err := url.Parse(args.URL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme: %s", parsed.Scheme)
	}

	limit := meta.MaxBytes
	if args.MaxBytes > 0 && args.MaxBytes < limit {
		limit = args.MaxBytes
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(meta.TimeoutSeconds)*time.Second)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, args.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(limit)+1))
	if err != nil {
		return "", err
	}
	truncated := false
	if limit > 0 && len(body) > limit {
		body = body[:limit]
		truncated = true
	}

	out := fmt.Sprintf("HTTP %d %s\n\n%s", resp.StatusCode, resp.Header.Get("Content-Type"), util.RedactSecrets(string(body)))
	if truncated {
		out += "\n[truncated]"
	}
	return out, nil
}
