package constants

import "strings"

// DocType is the canonical document-type label shown in the grid and used for
// export sheet grouping.
type DocType string

const (
	DocTypeInvoice DocType = "Hoá đơn"
	DocTypeImport  DocType = "Phiếu nhập kho"
	DocTypeExport  DocType = "Phiếu xuất kho"
	DocTypeOther   DocType = "Khác"
)

// ExportBuckets is the fixed sheet order for the workbook export. Rows whose
// doc_type matches none of the canonical labels land in DocTypeOther.
var ExportBuckets = []DocType{
	DocTypeInvoice,
	DocTypeImport,
	DocTypeExport,
	DocTypeOther,
}

// CatchAllSheet names the single sheet emitted when the row set produced no
// non-empty bucket.
const CatchAllSheet = "Tất cả"

// TranslateDocType maps the raw doc_type returned by the extraction service
// onto the canonical label set. Matching is a case-insensitive substring
// check; unmatched values pass through unchanged so the user can still see
// and correct whatever the service produced.
func TranslateDocType(input string) string {
	if input == "" {
		return ""
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	switch {
	case strings.Contains(normalized, "export"):
		return string(DocTypeExport)
	case strings.Contains(normalized, "import"):
		return string(DocTypeImport)
	case strings.Contains(normalized, "invoice"):
		return string(DocTypeInvoice)
	}

	return input
}
