package library

import "time"

// Book represents metadata and current lending status of one book in the
// catalog. JSON field names match the persisted collection format, so a
// region written by an older build deserializes unchanged.
type Book struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	ISBN        string     `json:"isbn,omitempty"`
	Edition     string     `json:"edition,omitempty"`
	Category    string     `json:"category"`
	Description string     `json:"description,omitempty"`
	IsBorrowed  bool       `json:"is_borrowed"`
	BorrowedBy  string     `json:"borrowed_by,omitempty"`
	BorrowedAt  *time.Time `json:"borrowed_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewBookInput carries the caller-supplied fields for AddBook. ID and
// CreatedAt are assigned by the catalog.
type NewBookInput struct {
	Title       string
	Author      string
	ISBN        string
	Edition     string
	Category    string
	Description string
}

// Backend identifies which store satisfied an action.
type Backend string

const (
	BackendLocal  Backend = "local"
	BackendLedger Backend = "ledger"
)

// Receipt reports the terminal outcome of a borrow or return action.
// Degraded is true when the ledger path failed and the action was satisfied
// by the local catalog instead; Reason then carries the ledger failure.
type Receipt struct {
	TxID     string
	Backend  Backend
	Degraded bool
	Reason   error
}
