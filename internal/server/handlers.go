package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/duclunn/form-extractor/constants"
	"github.com/duclunn/form-extractor/internal/common"
	"github.com/duclunn/form-extractor/internal/entity"
	"github.com/duclunn/form-extractor/internal/export"
)

// User-visible upload messages.
const (
	MsgNoValidFiles = "Không tìm thấy tệp hợp lệ. Chỉ chấp nhận PDF và Hình ảnh."
	MsgSomeSkipped  = "Một số tệp đã bị bỏ qua vì không đúng định dạng. Chỉ chấp nhận PDF và Hình ảnh."
)

type fileInfo struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Size int    `json:"size"`
}

type entryInfo struct {
	ID          string           `json:"id"`
	SourceFile  string           `json:"source_file"`
	ListName    string           `json:"list_name"`
	OrderNumber string           `json:"order_number"`
	Rows        []map[string]any `json:"rows"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("http.encode_error", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, common.HTTPStatus(err), map[string]string{"error": common.UserMessage(err)})
}

func (s *Server) fileInfos() []fileInfo {
	files := s.store.Files()
	infos := make([]fileInfo, 0, len(files))
	for _, f := range files {
		infos = append(infos, fileInfo{Name: f.Name, MIME: f.MIME, Size: len(f.Data)})
	}
	return infos
}

func (s *Server) rowFields() []map[string]any {
	rows := s.store.Rows()
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Fields)
	}
	return out
}

func (s *Server) entryInfos() []entryInfo {
	entries := s.store.Entries()
	out := make([]entryInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryInfo{
			ID:          e.ID,
			SourceFile:  e.SourceFile,
			ListName:    e.ListName,
			OrderNumber: e.OrderNumber,
			Rows:        e.Rows,
		})
	}
	return out
}

// handleUploadFiles accepts a multipart batch under the "files" field. Files
// that are neither PDFs nor images are skipped with a visible message; a batch
// with nothing acceptable is rejected outright.
func (s *Server) handleUploadFiles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		s.logger.Error("http.upload.parse_error", "error", err)
		s.writeError(w, common.NewAppError("UPLOAD_PARSE", "Không thể đọc dữ liệu tải lên.", common.ErrInvalidInput))
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		s.writeError(w, common.NewAppError("NO_FILES", MsgNoValidFiles, common.ErrInvalidInput))
		return
	}

	var accepted []*entity.UploadedFile
	skipped := 0
	for _, h := range headers {
		mime := h.Header.Get("Content-Type")
		if mime == "" || mime == "application/octet-stream" {
			mime = constants.MIMEForExtension(filepath.Ext(h.Filename))
		}
		if !constants.AllowedMIMEType(mime) {
			s.logger.Warn("http.upload.skip", "file", h.Filename, "mime", mime)
			skipped++
			continue
		}

		f, err := h.Open()
		if err != nil {
			s.logger.Error("http.upload.open_error", "file", h.Filename, "error", err)
			skipped++
			continue
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			s.logger.Error("http.upload.read_error", "file", h.Filename, "error", err)
			skipped++
			continue
		}
		accepted = append(accepted, &entity.UploadedFile{Name: h.Filename, MIME: mime, Data: data})
	}

	if len(accepted) == 0 {
		s.store.SetError(MsgNoValidFiles)
		s.writeError(w, common.NewAppError("NO_VALID_FILES", MsgNoValidFiles, common.ErrInvalidInput))
		return
	}

	s.store.AddFiles(accepted...)
	message := ""
	if skipped > 0 {
		message = MsgSomeSkipped
		s.store.SetError(MsgSomeSkipped)
	}

	s.logger.Info("http.upload.ok", "accepted", len(accepted), "skipped", skipped)
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"added":   len(accepted),
		"skipped": skipped,
		"message": message,
		"files":   s.fileInfos(),
	})
}

// handleDeleteFile removes one queued upload by position.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.writeError(w, common.NewAppError("BAD_INDEX", "invalid file index", common.ErrInvalidInput))
		return
	}
	s.store.RemoveFile(index)
	s.writeJSON(w, http.StatusOK, map[string]any{"files": s.fileInfos()})
}

// handleFileContent streams one queued upload back for preview.
func (s *Server) handleFileContent(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.writeError(w, common.NewAppError("BAD_INDEX", "invalid file index", common.ErrInvalidInput))
		return
	}
	files := s.store.Files()
	if index < 0 || index >= len(files) {
		s.writeError(w, common.NewAppError("FILE_NOT_FOUND", "file not found", common.ErrNotFound))
		return
	}
	f := files[index]
	w.Header().Set("Content-Type", f.MIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", f.Name))
	_, _ = w.Write(f.Data)
}

// handleExtract runs the pipeline over the queued files. The call is
// synchronous; progress is visible through GET /api/state while it runs.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode   string `json:"mode"`
		Append bool   `json:"append"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, common.NewAppError("BAD_REQUEST", "invalid request body", common.ErrInvalidInput))
		return
	}
	mode, ok := constants.ParseMode(req.Mode)
	if req.Mode != "" && !ok {
		s.writeError(w, common.NewAppError("BAD_MODE", fmt.Sprintf("unknown mode %q", req.Mode), common.ErrInvalidInput))
		return
	}

	res, err := s.runner.Run(r.Context(), mode, req.Append)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"mode":        string(res.Mode),
		"produced":    res.Produced,
		"errors":      res.Errors,
		"unreachable": res.Unreachable,
		"no_data":     res.NoData,
		"error_text":  s.store.ErrorText(),
	})
}

// handleState returns the whole session snapshot the front end renders from.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"files":   s.fileInfos(),
		"rows":    s.rowFields(),
		"entries": s.entryInfos(),
		"error":   s.store.ErrorText(),
		"status":  s.store.Status(),
	})
}

func (s *Server) handleListRows(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"rows": s.rowFields()})
}

// handleUpdateCell replaces one field on one row. Out-of-range indexes are a
// no-op, matching the grid's behavior when a row vanished under the editor.
func (s *Server) handleUpdateCell(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.writeError(w, common.NewAppError("BAD_INDEX", "invalid row index", common.ErrInvalidInput))
		return
	}
	var req struct {
		Field string `json:"field"`
		Value any    `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Field == "" {
		s.writeError(w, common.NewAppError("BAD_REQUEST", "field name required", common.ErrInvalidInput))
		return
	}
	s.store.UpdateCell(index, req.Field, req.Value)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.writeError(w, common.NewAppError("BAD_INDEX", "invalid row index", common.ErrInvalidInput))
		return
	}
	s.store.DeleteRow(index)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddBlankRow(w http.ResponseWriter, r *http.Request) {
	s.store.AddBlankRow()
	s.writeJSON(w, http.StatusCreated, map[string]any{"rows": s.rowFields()})
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"entries": s.entryInfos()})
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	s.store.DeleteEntry(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleReset clears the queue, both tables, and all messages.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.store.ResetAll()
	s.logger.Info("http.reset")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"server_url": s.settings.ServerURL()})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ServerURL string `json:"server_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, common.NewAppError("BAD_REQUEST", "invalid request body", common.ErrInvalidInput))
		return
	}
	if err := s.settings.SetServerURL(req.ServerURL); err != nil {
		s.logger.Error("http.settings.save_error", "error", err)
		s.writeError(w, common.WrapError(err, "saving settings"))
		return
	}
	s.logger.Info("http.settings.saved", "server_url", req.ServerURL)
	s.writeJSON(w, http.StatusOK, map[string]string{"server_url": s.settings.ServerURL()})
}

// handleHealth probes the extraction server's root path.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	endpoint := s.settings.ServerURL()
	ok := s.client.Healthy(r.Context(), endpoint)
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": ok, "endpoint": endpoint})
}

// handleExportXLSX downloads the standard table as an XLSX workbook, one sheet
// per document-type group.
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	data, err := s.exporter.Workbook(s.store.Rows())
	if err != nil {
		s.logger.Error("http.export.xlsx_error", "error", err)
		s.writeError(w, common.WrapError(err, "building workbook"))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.WorkbookStem+".xlsx"))
	_, _ = w.Write(data)
}

// handleExportCSV downloads the standard table as one flat CSV.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	data, err := s.exporter.CSV(s.store.Rows())
	if err != nil {
		s.logger.Error("http.export.csv_error", "error", err)
		s.writeError(w, common.WrapError(err, "building csv"))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.WorkbookStem+".csv"))
	_, _ = w.Write(data)
}

// handleExportEntry downloads one grouped-list entry as its own workbook.
func (s *Server) handleExportEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.store.Entry(r.PathValue("id"))
	if !ok {
		s.writeError(w, common.NewAppError("ENTRY_NOT_FOUND", "entry not found", common.ErrNotFound))
		return
	}
	name, data, err := s.exporter.EntryWorkbook(entry)
	if err != nil {
		s.logger.Error("http.export.entry_error", "entry_id", entry.ID, "error", err)
		s.writeError(w, common.WrapError(err, "building workbook"))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = w.Write(data)
}
