package shopify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/athebyme/shopify-bulk-sync/internal/domain/models"
)

// UploadStaged выполняет multipart-загрузку файла на выданную цель.
// Поля формы пишутся строго в порядке, выданном stagedUploadsCreate,
// файл всегда последним полем: хранилище отклоняет иной порядок.
func (c *Client) UploadStaged(ctx context.Context, target *models.StagedUploadTarget, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open payload file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, param := range target.Parameters {
		if err := writer.WriteField(param.Name, param.Value); err != nil {
			return fmt.Errorf("failed to write form field %s: %w", param.Name, err)
		}
	}

	part, err := writer.CreateFormFile("file", "bulk_op_vars.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create file field: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy payload into form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	// Цель загрузки не требует авторизационных заголовков Admin API
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("staged upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("staged upload rejected with status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
