package session

import (
	"slices"
	"sync"

	"github.com/duclunn/form-extractor/constants"
	"github.com/duclunn/form-extractor/internal/entity"
)

// Store owns the mode-partitioned table state behind the editable grid: the
// upload queue, the standard-mode rows, the grouped-list history entries, and
// the error/status text shown to the user.
//
// A single mutex guards everything. Each mutation swaps the affected
// collection in one assignment, so a concurrent reader always observes a
// complete before- or after-state, never a partial one. Row order is
// insertion order throughout; nothing here sorts.
type Store struct {
	mu      sync.Mutex
	files   []*entity.UploadedFile
	rows    []entity.Row
	entries []entity.HistoryEntry
	errText string
	status  string
}

func NewStore() *Store {
	return &Store{}
}

// AddFiles appends uploads to the queue in the order given.
func (s *Store) AddFiles(files ...*entity.UploadedFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(slices.Clone(s.files), files...)
}

// RemoveFile drops one queued upload. Out-of-range indexes are ignored.
func (s *Store) RemoveFile(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.files) {
		return
	}
	s.files = append(slices.Clone(s.files[:index]), s.files[index+1:]...)
}

// Files returns a snapshot of the upload queue.
func (s *Store) Files() []*entity.UploadedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.files)
}

// ClearFiles empties the upload queue.
func (s *Store) ClearFiles() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = nil
}

// Rows returns a snapshot of the standard-mode table.
func (s *Store) Rows() []entity.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rows)
}

// Entries returns a snapshot of the grouped-list history.
func (s *Store) Entries() []entity.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// AppendRows concatenates a batch after the existing standard-mode rows.
func (s *Store) AppendRows(rows []entity.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(slices.Clone(s.rows), rows...)
}

// ReplaceRows discards the standard-mode table and installs the batch.
func (s *Store) ReplaceRows(rows []entity.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = slices.Clone(rows)
}

// AppendEntries concatenates a batch after the existing history entries.
func (s *Store) AppendEntries(entries []entity.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(slices.Clone(s.entries), entries...)
}

// ReplaceEntries discards the history and installs the batch.
func (s *Store) ReplaceEntries(entries []entity.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = slices.Clone(entries)
}

// ClearMode resets the collection owned by one mode, leaving the other mode
// untouched.
func (s *Store) ClearMode(mode constants.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == constants.ModeMaterialList {
		s.entries = nil
		return
	}
	s.rows = nil
}

// UpdateCell replaces one field on one standard-mode row. Every other row and
// field is untouched and row identity/position is preserved. Out-of-range
// indexes are ignored.
func (s *Store) UpdateCell(index int, field string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.rows) {
		return
	}
	rows := slices.Clone(s.rows)
	row := rows[index].Clone()
	row.Fields[field] = value
	rows[index] = row
	s.rows = rows
}

// DeleteRow removes exactly one standard-mode row; the rest keep their data
// and relative order. Out-of-range indexes are ignored.
func (s *Store) DeleteRow(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.rows) {
		return
	}
	s.rows = append(slices.Clone(s.rows[:index]), s.rows[index+1:]...)
}

// AddBlankRow appends a row with every standard schema field set to the
// empty string.
func (s *Store) AddBlankRow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(slices.Clone(s.rows), entity.BlankRow())
}

// DeleteEntry removes one history entry by id.
func (s *Store) DeleteEntry(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = slices.DeleteFunc(slices.Clone(s.entries), func(e entity.HistoryEntry) bool {
		return e.ID == id
	})
}

// Entry looks up one history entry by id.
func (s *Store) Entry(id string) (entity.HistoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return entity.HistoryEntry{}, false
}

// ResetAll clears the queue, both mode collections, and the error and status
// text.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = nil
	s.rows = nil
	s.entries = nil
	s.errText = ""
	s.status = ""
}

// SetError replaces the visible error text.
func (s *Store) SetError(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errText = text
}

// ErrorText returns the visible error text.
func (s *Store) ErrorText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errText
}

// SetStatus replaces the progress status line.
func (s *Store) SetStatus(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = text
}

// Status returns the progress status line.
func (s *Store) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
