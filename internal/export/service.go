package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/duclunn/form-extractor/constants"
	"github.com/duclunn/form-extractor/internal/entity"
	"github.com/duclunn/form-extractor/internal/normalize"
)

// WorkbookStem is the filename stem of the combined exports.
const WorkbookStem = "ket-qua-trich-xuat"

// ExportColumns is the flat column order of exported sheets: the sequence
// number first, then the standard schema.
var ExportColumns = append([]string{entity.FieldSequence}, entity.StandardFields...)

// Service turns the current row set into downloadable spreadsheet bytes.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// Group is one named bucket of export-ready records bound for a workbook
// sheet.
type Group struct {
	Name string
	Rows []map[string]any
}

// BuildGroups prepares rows for serialization and partitions them by
// canonical document type. Each row gets a 1-based sequence number scoped to
// the whole set before partitioning, numeric display strings are parsed back
// to true numbers, and the file back-reference is left behind (it is a
// client-only aid). Rows with an unrecognized doc_type land in the catch-all
// bucket; when no bucket ends up non-empty a single sheet holding everything
// is emitted instead.
func BuildGroups(rows []entity.Row) []Group {
	buckets := make(map[constants.DocType][]map[string]any, len(constants.ExportBuckets))
	all := make([]map[string]any, 0, len(rows))

	for i, r := range rows {
		rec := exportRecord(r, i+1)
		all = append(all, rec)

		docType := constants.DocTypeOther
		for _, b := range constants.ExportBuckets {
			if rec[entity.FieldDocType] == string(b) {
				docType = b
				break
			}
		}
		buckets[docType] = append(buckets[docType], rec)
	}

	groups := make([]Group, 0, len(constants.ExportBuckets))
	for _, b := range constants.ExportBuckets {
		if len(buckets[b]) > 0 {
			groups = append(groups, Group{Name: string(b), Rows: buckets[b]})
		}
	}
	if len(groups) == 0 {
		groups = append(groups, Group{Name: constants.CatchAllSheet, Rows: all})
	}
	return groups
}

// exportRecord flattens one row for serialization: sequence number injected,
// numeric fields as numbers, everything else as extracted.
func exportRecord(r entity.Row, seq int) map[string]any {
	rec := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		rec[k] = v
	}
	for _, k := range entity.NumericFields {
		if v, ok := rec[k]; ok {
			rec[k] = normalize.ParseLoose(v)
		}
	}
	rec[entity.FieldSequence] = seq
	return rec
}

// Workbook renders the standard-mode table as an XLSX workbook, one sheet
// per non-empty document-type group.
func (s *Service) Workbook(rows []entity.Row) ([]byte, error) {
	start := time.Now()
	groups := BuildGroups(rows)

	f := excelize.NewFile()
	for i, g := range groups {
		sheet := sheetName(g.Name)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("new sheet %q: %w", sheet, err)
		}
		if err := writeSheet(f, sheet, ExportColumns, g.Rows); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"sheets", len(groups),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// CSV renders the whole standard-mode table as one flat comma-delimited
// sheet, UTF-8 with a byte-order marker so spreadsheet tools pick up the
// Vietnamese text.
func (s *Service) CSV(rows []entity.Row) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\uFEFF")

	w := csv.NewWriter(&buf)
	if err := w.Write(ExportColumns); err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	for i, r := range rows {
		rec := exportRecord(r, i+1)
		line := make([]string, len(ExportColumns))
		for j, col := range ExportColumns {
			line[j] = cellString(rec[col])
		}
		if err := w.Write(line); err != nil {
			return nil, fmt.Errorf("csv row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv flush: %w", err)
	}

	s.logger.Info("export.csv.ok", "rows", len(rows))
	return buf.Bytes(), nil
}

// EntryWorkbook renders one grouped-list history entry as its own workbook.
// The download name combines the source filename with the sanitized
// order-number tag. Column order follows first appearance across the nested
// rows.
func (s *Service) EntryWorkbook(e entity.HistoryEntry) (string, []byte, error) {
	f := excelize.NewFile()
	sheet := sheetName(e.ListName)
	if sheet == "" {
		sheet = "Sheet1"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return "", nil, fmt.Errorf("rename sheet: %w", err)
	}

	cols := entryColumns(e.Rows)
	if err := writeSheet(f, sheet, cols, e.Rows); err != nil {
		return "", nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", nil, fmt.Errorf("xlsx write: %w", err)
	}

	stem := strings.TrimSuffix(e.SourceFile, filepath.Ext(e.SourceFile))
	if stem == "" {
		stem = WorkbookStem
	}
	name := stem
	if tag := SanitizeFilename(e.OrderNumber); tag != "" {
		name += "_" + tag
	}

	s.logger.Info("export.entry.ok", "entry_id", e.ID, "rows", len(e.Rows))
	return name + ".xlsx", buf.Bytes(), nil
}

// SanitizeFilename replaces the characters that are unsafe in download names
// with "-".
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '?', '%', '*', ':', '|', '"', '<', '>':
			return '-'
		}
		return r
	}, name)
}

func writeSheet(f *excelize.File, sheet string, cols []string, rows []map[string]any) error {
	for i, col := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return fmt.Errorf("header %q: %w", col, err)
		}
	}
	for rowIdx, rec := range rows {
		for colIdx, col := range cols {
			v, ok := rec[col]
			if !ok {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("cell %s: %w", cell, err)
			}
		}
	}
	return nil
}

// materialListColumns is the column order the service's material-list prompt
// produces. Keys outside this set are appended alphabetically so the sheet
// stays deterministic whatever the service invents.
var materialListColumns = []string{
	"STT", "Tên vật tư", "Quy cách", "ĐVT",
	"Định mức", "Thực lĩnh", "Chênh lệch", "Ghi chú",
}

// entryColumns decides the column set of a grouped-list sheet: the known
// material-list columns that actually occur, in their documented order, then
// any extra keys sorted.
func entryColumns(rows []map[string]any) []string {
	present := make(map[string]struct{})
	for _, r := range rows {
		for k := range r {
			present[k] = struct{}{}
		}
	}

	var cols []string
	for _, k := range materialListColumns {
		if _, ok := present[k]; ok {
			cols = append(cols, k)
			delete(present, k)
		}
	}
	extra := make([]string, 0, len(present))
	for k := range present {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

// sheetName trims a display name to the 31 characters Excel allows and
// strips the characters sheet names reject.
func sheetName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	runes := []rune(cleaned)
	if len(runes) > 31 {
		return string(runes[:31])
	}
	return cleaned
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}
