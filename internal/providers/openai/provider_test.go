// internal/providers/openai/provider_test.go
package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mwiater/bayesbatch/internal/appconfig"
	"github.com/mwiater/bayesbatch/internal/providers"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := &appconfig.Config{APIBaseURL: server.URL, TimeoutSeconds: 5}
	p, err := New(cfg, "sk-test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func requireBearer(t *testing.T, r *http.Request) {
	t.Helper()
	if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
		t.Errorf("unexpected Authorization header %q", got)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(&appconfig.Config{}, " "); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestUploadSendsMultipartForm(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		if r.Method != http.MethodPost || r.URL.Path != "/v1/files" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("purpose"); got != providers.PurposeBatch {
			t.Errorf("unexpected purpose %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)
		if header.Filename != "requests.jsonl" || string(content) != "{\"a\":1}\n" {
			t.Errorf("unexpected upload %s %q", header.Filename, content)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"file-abc","object":"file","bytes":8,"filename":"requests.jsonl","purpose":"batch","created_at":1700000000,"status":"processed"}`))
	})

	ref, err := p.Upload(context.Background(), "requests.jsonl", []byte("{\"a\":1}\n"), providers.PurposeBatch)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if ref.ID != "file-abc" || ref.Bytes != 8 || ref.Extra["status"] != `"processed"` {
		t.Fatalf("unexpected file ref %+v", ref)
	}
}

func TestSubmitBatchPostsJSON(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		if r.URL.Path != "/v1/batches" || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.URL.Path, r.Header.Get("Content-Type"))
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
		}
		if payload["input_file_id"] != "file-abc" || payload["endpoint"] != "/v1/chat/completions" || payload["completion_window"] != "24h" {
			t.Errorf("unexpected payload %v", payload)
		}
		_, _ = w.Write([]byte(`{"id":"batch_1","object":"batch","endpoint":"/v1/chat/completions","input_file_id":"file-abc","completion_window":"24h","status":"validating","created_at":1700000001,"errors":null,"metadata":{"k":"v"}}`))
	})

	batch, err := p.SubmitBatch(context.Background(), "file-abc", "/v1/chat/completions", "24h")
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if batch.ID != "batch_1" || batch.Status != providers.StatusValidating {
		t.Fatalf("unexpected batch %+v", batch)
	}
	if batch.Extra["metadata"] != `{"k":"v"}` || batch.Extra["errors"] != "null" {
		t.Fatalf("unmodelled fields not preserved: %v", batch.Extra)
	}
}

func TestBatchStatusAndFetchContent(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		switch r.URL.Path {
		case "/v1/batches/batch_1":
			_, _ = w.Write([]byte(`{"id":"batch_1","status":"completed","output_file_id":"file-out","request_counts":{"total":2,"completed":2,"failed":0}}`))
		case "/v1/files/file-out/content":
			_, _ = w.Write([]byte("line1\nline2\n"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	batch, err := p.BatchStatus(context.Background(), "batch_1")
	if err != nil {
		t.Fatalf("BatchStatus: %v", err)
	}
	if batch.Status != providers.StatusCompleted || batch.OutputFileID != "file-out" || batch.RequestCounts.Total != 2 {
		t.Fatalf("unexpected batch %+v", batch)
	}
	content, err := p.FetchContent(context.Background(), batch.OutputFileID)
	if err != nil {
		t.Fatalf("FetchContent: %v", err)
	}
	if string(content) != "line1\nline2\n" {
		t.Fatalf("content must be returned verbatim, got %q", content)
	}
}

func TestErrorResponsesSurfaceAPIMessage(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	})

	_, err := p.BatchStatus(context.Background(), "batch_1")
	if err == nil || !strings.Contains(err.Error(), "Incorrect API key provided") {
		t.Fatalf("expected API error message, got %v", err)
	}
	if _, err := p.FetchContent(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty file id")
	}
}
