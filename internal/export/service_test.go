package export_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/duclunn/form-extractor/internal/entity"
	"github.com/duclunn/form-extractor/internal/export"
)

func docRow(docType, id string) entity.Row {
	return entity.Row{
		Fields: map[string]any{
			entity.FieldDocType:    docType,
			entity.FieldID:         id,
			entity.FieldUnitPrice:  "1.250.000",
			entity.FieldTotalPrice: "1.250.000",
		},
		File: &entity.UploadedFile{Name: "src.pdf"},
	}
}

func TestBuildGroupsPartitionsByDocType(t *testing.T) {
	rows := []entity.Row{
		docRow("Hoá đơn", "r1"),
		docRow("Phiếu nhập kho", "r2"),
		docRow("Phiếu xuất kho", "r3"),
		docRow("Biên bản", "r4"), // unmatched label
	}

	groups := export.BuildGroups(rows)
	require.Len(t, groups, 4)

	names := make([]string, 0, 4)
	for _, g := range groups {
		names = append(names, g.Name)
		require.Len(t, g.Rows, 1)
	}
	assert.Equal(t, []string{"Hoá đơn", "Phiếu nhập kho", "Phiếu xuất kho", "Khác"}, names)

	// sequence numbers are scoped to the whole export, not per bucket
	var seqs []int
	for _, g := range groups {
		seqs = append(seqs, g.Rows[0][entity.FieldSequence].(int))
	}
	assert.Equal(t, []int{1, 2, 3, 4}, seqs)
}

func TestBuildGroupsParsesNumbersBack(t *testing.T) {
	groups := export.BuildGroups([]entity.Row{docRow("Hoá đơn", "r1")})
	require.Len(t, groups, 1)
	assert.Equal(t, float64(1250000), groups[0].Rows[0][entity.FieldUnitPrice], "export holds numbers, not display strings")
}

func TestBuildGroupsEmptySetEmitsCatchAll(t *testing.T) {
	groups := export.BuildGroups(nil)
	require.Len(t, groups, 1)
	assert.Equal(t, "Tất cả", groups[0].Name)
	assert.Empty(t, groups[0].Rows)
}

func TestBuildGroupsSkipsEmptyBuckets(t *testing.T) {
	groups := export.BuildGroups([]entity.Row{docRow("Hoá đơn", "r1"), docRow("Hoá đơn", "r2")})
	require.Len(t, groups, 1)
	assert.Equal(t, "Hoá đơn", groups[0].Name)
	assert.Len(t, groups[0].Rows, 2)
}

func TestWorkbookSheets(t *testing.T) {
	svc := export.NewService(nil)
	data, err := svc.Workbook([]entity.Row{
		docRow("Hoá đơn", "r1"),
		docRow("Khác gì đó", "r2"),
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Hoá đơn", "Khác"}, f.GetSheetList())

	cell, err := f.GetCellValue("Hoá đơn", "A1")
	require.NoError(t, err)
	assert.Equal(t, "stt", cell, "sequence column comes first")
}

func TestCSVHasBOMAndHeader(t *testing.T) {
	svc := export.NewService(nil)
	data, err := svc.CSV([]entity.Row{docRow("Hoá đơn", "r1")})
	require.NoError(t, err)

	require.True(t, bytes.HasPrefix(data, []byte("\uFEFF")), "UTF-8 BOM prefix")

	lines := strings.Split(strings.TrimPrefix(string(data), "\uFEFF"), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.True(t, strings.HasPrefix(lines[0], "stt,source_file,doc_type"), "header: %s", lines[0])
	assert.Contains(t, lines[1], "1250000", "numeric fields exported as plain numbers")
}

func TestEntryWorkbookNameAndContent(t *testing.T) {
	svc := export.NewService(nil)
	entry := entity.HistoryEntry{
		ID:          "e1",
		SourceFile:  "bang-ke-q1.pdf",
		ListName:    "Bảng kê vật tư Q1",
		OrderNumber: `DH/01:2024?`,
		Rows: []map[string]any{
			{"STT": "1", "Tên vật tư": "Tôn TU", "Định mức": "20.5"},
			{"STT": "2", "Tên vật tư": "Tôn TI"},
		},
	}

	name, data, err := svc.EntryWorkbook(entry)
	require.NoError(t, err)
	assert.Equal(t, "bang-ke-q1_DH-01-2024-.xlsx", name, "unsafe characters replaced with dashes")

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, []string{"STT", "Tên vật tư", "Định mức"}, rows[0], "known columns in documented order")
	assert.Equal(t, "Tôn TU", rows[1][1])
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a-b-c-d-e-f-g-h-i-j-k", export.SanitizeFilename(`a/b\c?d%e*f:g|h"i<j>k`))
	assert.Equal(t, "plain", export.SanitizeFilename("plain"))
}
