package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/duclunn/form-extractor/constants"
	"github.com/duclunn/form-extractor/internal/common"
	"github.com/duclunn/form-extractor/internal/entity"
	"github.com/duclunn/form-extractor/internal/extract"
	"github.com/duclunn/form-extractor/internal/normalize"
)

// User-visible messages, matching the tone of the original Vietnamese UI.
const (
	MsgNoFiles       = "Vui lòng tải lên ít nhất một tệp tin"
	MsgUnreachable   = "Không thể kết nối đến máy chủ trích xuất. Hãy kiểm tra máy chủ đang chạy trong Cài đặt."
	MsgNoData        = "Máy chủ không trả về dữ liệu nào."
	DefaultListName  = "Bảng kê"
	fieldListName    = "list_name"
	fieldOrderNumber = "order_number"
	fieldNestedData  = "data"
)

// EndpointSource yields the extraction endpoint for each run; the persisted
// settings store satisfies it.
type EndpointSource interface {
	ServerURL() string
}

// Service runs the extraction pipeline over the queued files and merges the
// outcome into the store.
type Service struct {
	store    *Store
	client   *extract.Client
	endpoint EndpointSource
	logger   *slog.Logger
}

func NewService(store *Store, client *extract.Client, endpoint EndpointSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, client: client, endpoint: endpoint, logger: logger}
}

// RunResult reports what one extraction run produced and which failure
// classes it hit. None of them is fatal; the table reflects whatever was
// merged.
type RunResult struct {
	Mode        constants.Mode
	Produced    int
	Errors      []string
	Unreachable bool
	NoData      bool
}

// Run processes the upload queue sequentially: one multipart request per
// file, responses routed through expansion and standardization (standard
// mode) or wrapped into history entries (grouped-list mode), the batch merged
// into the active mode's collection under the append-or-replace policy.
//
// A per-file failure records a message and moves on; a connectivity failure
// aborts the remaining queue. The queue is cleared after every run. Replace
// mode clears the active collection before the first request so the table
// empties immediately.
func (s *Service) Run(ctx context.Context, mode constants.Mode, appendMode bool) (RunResult, error) {
	res := RunResult{Mode: mode}

	files := s.store.Files()
	if len(files) == 0 {
		s.store.SetError(MsgNoFiles)
		return res, common.NewAppError("NO_FILES", MsgNoFiles, common.ErrValidation)
	}

	runID := uuid.New().String()
	start := time.Now()
	endpoint := s.endpoint.ServerURL()

	s.logger.Info("session.run.start",
		"run_id", runID,
		"mode", string(mode),
		"files", len(files),
		"append", appendMode,
		"endpoint", endpoint,
	)

	s.store.SetError("")
	defer s.store.SetStatus("")

	if !appendMode {
		s.store.ClearMode(mode)
	}

	var batchRows []entity.Row
	var batchEntries []entity.HistoryEntry

	for i, file := range files {
		s.store.SetStatus(fmt.Sprintf("Đang xử lý tệp %d/%d: %s...", i+1, len(files), file.Name))

		records, err := s.client.Extract(ctx, endpoint, file, mode)
		if err != nil {
			if errors.Is(err, extract.ErrUnreachable) {
				s.logger.Error("session.run.unreachable", "run_id", runID, "file", file.Name, "error", err)
				res.Unreachable = true
				break
			}
			s.logger.Error("session.run.file_error", "run_id", runID, "file", file.Name, "error", err)
			res.Errors = append(res.Errors, fmt.Sprintf("Lỗi khi xử lý %s: %v", file.Name, err))
			continue
		}

		if mode == constants.ModeMaterialList {
			batchEntries = append(batchEntries, buildEntries(records, file)...)
			continue
		}

		var fileRows []entity.Row
		for _, rec := range records {
			fileRows = append(fileRows, normalize.Expand(rec, file)...)
		}
		batchRows = append(batchRows, normalize.Standardize(fileRows)...)
	}

	if mode == constants.ModeMaterialList {
		res.Produced = len(batchEntries)
		if appendMode {
			s.store.AppendEntries(batchEntries)
		} else {
			s.store.ReplaceEntries(batchEntries)
		}
	} else {
		res.Produced = len(batchRows)
		if appendMode {
			s.store.AppendRows(batchRows)
		} else {
			s.store.ReplaceRows(batchRows)
		}
	}

	// The queue never survives a run, whatever happened to its files.
	s.store.ClearFiles()

	switch {
	case res.Unreachable:
		s.store.SetError(MsgUnreachable)
	case res.Produced == 0 && len(res.Errors) == 0:
		res.NoData = true
		s.store.SetError(MsgNoData)
	default:
		s.store.SetError(strings.Join(res.Errors, "\n"))
	}

	s.logger.Info("session.run.done",
		"run_id", runID,
		"produced", res.Produced,
		"errors", len(res.Errors),
		"unreachable", res.Unreachable,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// buildEntries wraps one grouped-list response into history entries. Each
// element bearing a list name becomes its own entry with the nested data
// carried verbatim. A response without the list_name marker is treated as a
// single untitled list.
func buildEntries(records []map[string]any, file *entity.UploadedFile) []entity.HistoryEntry {
	if len(records) == 0 {
		return nil
	}

	if _, grouped := records[0][fieldListName]; !grouped {
		return []entity.HistoryEntry{newEntry(file, DefaultListName, "", records)}
	}

	entries := make([]entity.HistoryEntry, 0, len(records))
	for _, rec := range records {
		listName := stringField(rec, fieldListName)
		if listName == "" {
			listName = DefaultListName
		}
		entries = append(entries, newEntry(file, listName, stringField(rec, fieldOrderNumber), nestedRows(rec)))
	}
	return entries
}

func newEntry(file *entity.UploadedFile, listName, orderNumber string, rows []map[string]any) entity.HistoryEntry {
	return entity.HistoryEntry{
		ID:          uuid.New().String(),
		File:        file,
		SourceFile:  file.Name,
		ListName:    listName,
		OrderNumber: orderNumber,
		Rows:        rows,
	}
}

func stringField(rec map[string]any, key string) string {
	if v, ok := rec[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func nestedRows(rec map[string]any) []map[string]any {
	data, ok := rec[fieldNestedData].([]any)
	if !ok {
		return nil
	}
	rows := make([]map[string]any, 0, len(data))
	for _, e := range data {
		if m, ok := e.(map[string]any); ok {
			rows = append(rows, m)
		}
	}
	return rows
}
