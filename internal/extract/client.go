package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/duclunn/form-extractor/constants"
	"github.com/duclunn/form-extractor/internal/entity"
)

// ErrUnreachable marks connectivity-class failures: the request never reached
// the endpoint at all, as opposed to the endpoint answering with an error.
// The orchestrator fail-fasts on this class and keeps going on everything
// else.
var ErrUnreachable = errors.New("extraction server unreachable")

// Client posts queued documents to the external extraction service and
// decodes its JSON responses into raw records.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: httpClient, logger: logger}
}

// Extract sends one file to the endpoint as a multipart form (fields "file"
// and "mode") and returns the decoded record array. A single-object response
// is normalized to a one-element array. Transport failures are wrapped in
// ErrUnreachable; a non-2xx status is an ordinary per-file error.
func (c *Client) Extract(ctx context.Context, endpoint string, file *entity.UploadedFile, mode constants.Mode) ([]map[string]any, error) {
	reqID := uuid.New().String()
	start := time.Now()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("write file part: %w", err)
	}
	if err := mw.WriteField("mode", string(mode)); err != nil {
		return nil, fmt.Errorf("write mode field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	c.logger.Info("extract.http.request",
		"req_id", reqID,
		"url", endpoint,
		"file", file.Name,
		"mode", string(mode),
		"bytes", len(file.Data),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("extract.http.send_error",
			"req_id", reqID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("extract.http.body_close_error", "req_id", reqID, "error", err)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)

	c.logger.Info("extract.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	records, err := decodePayload(raw, c.logger, reqID)
	if err != nil {
		return nil, err
	}

	if mode == constants.ModeStandard {
		c.checkSchemaDrift(records, reqID)
	}
	return records, nil
}

// Healthy reports whether the extraction server answers at all. The /extract
// suffix is swapped for the root path; any resolved response counts as
// healthy regardless of status code.
func (c *Client) Healthy(ctx context.Context, endpoint string) bool {
	root := strings.Replace(endpoint, "/extract", "/", 1)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, root, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return true
}

// decodePayload accepts {"data": ...} wrappers, bare arrays, and bare single
// objects, and returns a flat record slice. Non-object array elements are
// skipped with a warning rather than failing the file.
func decodePayload(raw []byte, logger *slog.Logger, reqID string) ([]map[string]any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if obj, ok := v.(map[string]any); ok {
		if data, present := obj["data"]; present {
			v = data
		}
	}

	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}, nil
	case []any:
		records := make([]map[string]any, 0, len(t))
		for i, e := range t {
			rec, ok := e.(map[string]any)
			if !ok {
				logger.Warn("extract.decode.skip_element", "req_id", reqID, "index", i)
				continue
			}
			records = append(records, rec)
		}
		return records, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected response shape %T", v)
	}
}

// checkSchemaDrift validates raw standard records against the lenient record
// schema and logs mismatches. It never rejects a record; the standardizer
// downstream is total.
func (c *Client) checkSchemaDrift(records []map[string]any, reqID string) {
	schema := BuildStandardRecordSchema()
	for i, rec := range records {
		if err := ValidateAgainstSchema(schema, rec); err != nil {
			c.logger.Warn("extract.schema.drift", "req_id", reqID, "index", i, "error", err)
		}
	}
}
