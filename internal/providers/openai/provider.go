// internal/providers/openai/provider.go
// Package openai provides a BatchProvider backed by the OpenAI files and batches HTTP API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mwiater/bayesbatch/internal/appconfig"
	"github.com/mwiater/bayesbatch/internal/logging"
	"github.com/mwiater/bayesbatch/internal/providers"
)

// APIKeyEnv is the environment variable holding the bearer token.
const APIKeyEnv = "OPENAI_API_KEY"

// Provider implements the providers.BatchProvider interface using the OpenAI HTTP API.
type Provider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	timeout time.Duration
}

// New constructs a Provider configured with the application's base URL and request timeout.
func New(cfg *appconfig.Config, apiKey string) (*Provider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai: %s is not set", APIKeyEnv)
	}
	timeout := cfg.RequestTimeout()
	return &Provider{
		client:  &http.Client{Timeout: timeout},
		baseURL: cfg.BaseURL(),
		apiKey:  apiKey,
		timeout: timeout,
	}, nil
}

// Upload sends a request file as multipart form data.
func (p *Provider) Upload(ctx context.Context, filename string, content []byte, purpose string) (providers.FileRef, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("purpose", purpose); err != nil {
		return providers.FileRef{}, err
	}
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return providers.FileRef{}, err
	}
	if _, err := part.Write(content); err != nil {
		return providers.FileRef{}, err
	}
	if err := form.Close(); err != nil {
		return providers.FileRef{}, err
	}
	logging.LogRequest("BATCH->API", "/v1/files", filename, fmt.Sprintf("purpose=%s bytes=%d", purpose, len(content)))

	var ref providers.FileRef
	if err := p.do(ctx, http.MethodPost, "/v1/files", form.FormDataContentType(), &body, &ref); err != nil {
		return providers.FileRef{}, err
	}
	return ref, nil
}

// SubmitBatch creates a batch over an uploaded request file.
func (p *Provider) SubmitBatch(ctx context.Context, inputFileID, endpoint, completionWindow string) (providers.Batch, error) {
	payload, err := json.Marshal(map[string]string{
		"input_file_id":     inputFileID,
		"endpoint":          endpoint,
		"completion_window": completionWindow,
	})
	if err != nil {
		return providers.Batch{}, err
	}
	logging.LogRequest("BATCH->API", "/v1/batches", inputFileID, payload)

	var batch providers.Batch
	if err := p.do(ctx, http.MethodPost, "/v1/batches", "application/json", bytes.NewReader(payload), &batch); err != nil {
		return providers.Batch{}, err
	}
	return batch, nil
}

// BatchStatus refreshes the remote handle of a batch.
func (p *Provider) BatchStatus(ctx context.Context, batchID string) (providers.Batch, error) {
	if batchID == "" {
		return providers.Batch{}, errors.New("openai: batch id is empty")
	}
	var batch providers.Batch
	if err := p.do(ctx, http.MethodGet, "/v1/batches/"+url.PathEscape(batchID), "", nil, &batch); err != nil {
		return providers.Batch{}, err
	}
	return batch, nil
}

// FetchContent downloads the raw content of a remote file.
func (p *Provider) FetchContent(ctx context.Context, fileID string) ([]byte, error) {
	if fileID == "" {
		return nil, errors.New("openai: file id is empty")
	}
	raw, err := p.send(ctx, http.MethodGet, "/v1/files/"+url.PathEscape(fileID)+"/content", "", nil)
	if err != nil {
		return nil, err
	}
	logging.LogRequest("API->BATCH", "/v1/files/content", fileID, fmt.Sprintf("bytes=%d", len(raw)))
	return raw, nil
}

func (p *Provider) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	raw, err := p.send(ctx, method, path, contentType, body)
	if err != nil {
		return err
	}
	logging.LogRequest("API->BATCH", path, "", raw)
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("openai: decode %s response: %w", path, err)
	}
	return nil
}

func (p *Provider) send(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("openai: %s %s returned %s: %s", method, path, resp.Status, errorMessage(raw))
	}
	return raw, nil
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func errorMessage(raw []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
