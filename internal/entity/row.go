package entity

import "maps"

// Field keys of the standard extraction schema. These are the wire names the
// extraction service returns; they double as the editable column ids.
const (
	FieldDocType        = "doc_type"
	FieldDate           = "date"
	FieldID             = "id"
	FieldName           = "name"
	FieldDescription    = "description"
	FieldOrderNumbers   = "order_numbers"
	FieldCode           = "code"
	FieldUnit           = "unit"
	FieldQuantityDoc    = "quantity_doc"
	FieldQuantityActual = "quantity_actual"
	FieldUnitPrice      = "unitprice"
	FieldTotalPrice     = "totalprice"
	FieldSourceFile     = "source_file"
	FieldSequence       = "stt"
)

// StandardFields lists the standard-mode schema in column order, source file
// first the way the grid shows it. The sequence number is injected at export
// time and is not part of the editable schema.
var StandardFields = []string{
	FieldSourceFile,
	FieldDocType,
	FieldDate,
	FieldID,
	FieldName,
	FieldDescription,
	FieldOrderNumbers,
	FieldCode,
	FieldUnit,
	FieldQuantityDoc,
	FieldQuantityActual,
	FieldUnitPrice,
	FieldTotalPrice,
}

// NumericFields are the standard-mode fields that carry amounts. They are the
// only fields the standardizer formats and the exporter parses back to
// numbers.
var NumericFields = []string{
	FieldQuantityDoc,
	FieldQuantityActual,
	FieldUnitPrice,
	FieldTotalPrice,
}

// UploadedFile is one queued document: the filename and MIME type reported by
// the upload plus the raw payload forwarded to the extraction service.
type UploadedFile struct {
	Name string
	MIME string
	Data []byte
}

// Row is one editable line of the standard-mode table. Fields holds the raw
// field-name to value mapping after standardization; unknown fields returned
// by the service are kept as-is. File is a back-reference to the originating
// upload used only for preview and is never exported.
type Row struct {
	Fields map[string]any
	File   *UploadedFile
}

// Clone returns a copy of the row with its own field map. The file
// back-reference is shared; it is immutable after the upload.
func (r Row) Clone() Row {
	c := Row{Fields: make(map[string]any, len(r.Fields)), File: r.File}
	maps.Copy(c.Fields, r.Fields)
	return c
}

// BlankRow returns a row with every standard schema field set to the empty
// string and no file back-reference.
func BlankRow() Row {
	fields := make(map[string]any, len(StandardFields))
	for _, f := range StandardFields {
		fields[f] = ""
	}
	return Row{Fields: fields}
}

// HistoryEntry is one grouped-list extraction result: a named material list
// with its nested rows carried verbatim from the service.
type HistoryEntry struct {
	ID          string
	File        *UploadedFile
	SourceFile  string
	ListName    string
	OrderNumber string
	Rows        []map[string]any
}
