package shopify

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/athebyme/shopify-bulk-sync/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePayloadFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestClient_UploadStaged_FieldOrder(t *testing.T) {
	type formPart struct {
		name     string
		filename string
		value    string
	}
	var parts []formPart
	var authHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("X-Shopify-Access-Token")

		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)

		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			value, _ := io.ReadAll(p)
			parts = append(parts, formPart{name: p.FormName(), filename: p.FileName(), value: string(value)})
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	session, err := NewSession("test-store", "shpat_token", "2025-07")
	require.NoError(t, err)
	c := NewClient(session, nopLogger{}, time.Second, 3, time.Millisecond)

	target := &models.StagedUploadTarget{
		URL: srv.URL,
		Parameters: []models.StagedParameter{
			{Name: "key", Value: "tmp/bulk/vars.jsonl"},
			{Name: "policy", Value: "policy-blob"},
			{Name: "signature", Value: "sig"},
		},
	}

	payload := writePayloadFile(t, `{"product":{"handle":"mug"}}`+"\n")
	require.NoError(t, c.UploadStaged(context.Background(), target, payload))

	// form fields follow the staged target order, the file comes last
	require.Len(t, parts, 4)
	assert.Equal(t, "key", parts[0].name)
	assert.Equal(t, "tmp/bulk/vars.jsonl", parts[0].value)
	assert.Equal(t, "policy", parts[1].name)
	assert.Equal(t, "signature", parts[2].name)

	assert.Equal(t, "file", parts[3].name)
	assert.Equal(t, "bulk_op_vars.jsonl", parts[3].filename)
	assert.Equal(t, `{"product":{"handle":"mug"}}`+"\n", parts[3].value)

	// the upload target is pre-signed, no Admin API auth headers
	assert.Empty(t, authHeader)
}

func TestClient_UploadStaged_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("access denied"))
	}))
	defer srv.Close()

	session, err := NewSession("test-store", "shpat_token", "2025-07")
	require.NoError(t, err)
	c := NewClient(session, nopLogger{}, time.Second, 3, time.Millisecond)

	target := &models.StagedUploadTarget{URL: srv.URL}
	payload := writePayloadFile(t, "{}\n")

	err = c.UploadStaged(context.Background(), target, payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "access denied")
}

func TestClient_UploadStaged_MissingFile(t *testing.T) {
	session, err := NewSession("test-store", "shpat_token", "2025-07")
	require.NoError(t, err)
	c := NewClient(session, nopLogger{}, time.Second, 3, time.Millisecond)

	err = c.UploadStaged(context.Background(), &models.StagedUploadTarget{URL: "http://localhost"}, "/nonexistent/payload.jsonl")
	assert.Error(t, err)
}
