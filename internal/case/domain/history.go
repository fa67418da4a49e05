package domain

import "time"

// Default notes recorded when the caller supplies none.
const (
	HistoryNoteCreated      = "Case registered in the system"
	HistoryNoteStatusChange = "Clinical status update"
)

// HistoryEntry is one immutable record of a status transition. Entries are
// only ever appended: the sequence for a case, ordered by creation time,
// reconstructs its full status timeline.
type HistoryEntry struct {
	ID     int64 `json:"id"`
	CaseID int64 `json:"case_id"`
	UserID int64 `json:"user_id"`

	// PreviousStatus is nil only for the entry written at case creation.
	PreviousStatus *CaseStatus `json:"previous_status"`
	NewStatus      CaseStatus  `json:"new_status"`

	Notes     string    `json:"notes"`
	UserName  string    `json:"user_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewHistoryEntry builds the ledger entry for a status transition.
func NewHistoryEntry(caseID, userID int64, previous *CaseStatus, next CaseStatus, notes string) *HistoryEntry {
	return &HistoryEntry{
		CaseID:         caseID,
		UserID:         userID,
		PreviousStatus: previous,
		NewStatus:      next,
		Notes:          notes,
		CreatedAt:      time.Now(),
	}
}
