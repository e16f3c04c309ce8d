package library

import (
	"context"
	"log"

	"book-vault/ledger"
)

// LedgerGateway is what the manager needs from the chain side: submit a lend
// or return intent and learn the classified outcome.
type LedgerGateway interface {
	SubmitLend(ctx context.Context, owner, bookID string) (ledger.TransactionResult, error)
	SubmitReturn(ctx context.Context, owner, bookID string) (ledger.TransactionResult, error)
}

// LibraryManager decides which backend satisfies each lend/return intent.
// With the ledger mode off it is a thin façade over the catalog. With it on,
// the ledger is tried first; successes are mirrored into the catalog for
// display, failures fall back to the catalog and are reported as degraded.
//
// Toggling the mode never resynchronizes the two stores; records that
// diverged while the other backend was authoritative stay diverged.
type LibraryManager struct {
	catalog    *Catalog
	gateway    LedgerGateway
	ledgerMode bool
	logger     *log.Logger
}

// ManagerOptionFunc is a type that represents functions that modify the manager config
type ManagerOptionFunc func(*LibraryManager)

// WithGateway specifies the ledger gateway used when ledger mode is enabled.
func WithGateway(gateway LedgerGateway) ManagerOptionFunc {
	return func(lm *LibraryManager) {
		lm.gateway = gateway
	}
}

// WithLedgerMode specifies whether lend/return intents try the ledger first.
func WithLedgerMode(enabled bool) ManagerOptionFunc {
	return func(lm *LibraryManager) {
		lm.ledgerMode = enabled
	}
}

// WithManagerLogger specifies the logger for mirror failures.
func WithManagerLogger(logger *log.Logger) ManagerOptionFunc {
	return func(lm *LibraryManager) {
		lm.logger = logger
	}
}

func NewLibraryManager(catalog *Catalog, options ...ManagerOptionFunc) *LibraryManager {
	lm := &LibraryManager{
		catalog: catalog,
		logger:  log.Default(),
	}
	for _, option := range options {
		option(lm)
	}
	return lm
}

// SetLedgerMode toggles which backend is authoritative for new actions.
func (lm *LibraryManager) SetLedgerMode(enabled bool) { lm.ledgerMode = enabled }

// LedgerMode reports whether the ledger path is currently tried first.
func (lm *LibraryManager) LedgerMode() bool { return lm.ledgerMode && lm.gateway != nil }

// ------------------ Catalog pass-through ------------------

func (lm *LibraryManager) AddBook(in NewBookInput) (string, error) { return lm.catalog.AddBook(in) }
func (lm *LibraryManager) GetBook(id string) (*Book, error)        { return lm.catalog.GetBook(id) }
func (lm *LibraryManager) AllBooks() ([]Book, error)               { return lm.catalog.AllBooks() }
func (lm *LibraryManager) AvailableBooks() ([]Book, error)         { return lm.catalog.AvailableBooks() }

func (lm *LibraryManager) BorrowedBooks(borrower string) ([]Book, error) {
	return lm.catalog.BorrowedBooks(borrower)
}

func (lm *LibraryManager) SearchBooks(q string) ([]Book, error) { return lm.catalog.SearchBooks(q) }
func (lm *LibraryManager) Categories() ([]string, error)        { return lm.catalog.Categories() }

func (lm *LibraryManager) BooksByCategory(category string) ([]Book, error) {
	return lm.catalog.BooksByCategory(category)
}

// ------------------ Circulation ------------------

// Borrow lends the book to borrower. Only an available book may be lent;
// a book the catalog does not know is ErrBookNotFound and a book already
// lent is ErrAlreadyBorrowed, with no mutation in either backend.
func (lm *LibraryManager) Borrow(ctx context.Context, bookID, borrower string) (Receipt, error) {
	book, err := lm.catalog.GetBook(bookID)
	if err != nil {
		return Receipt{}, err
	}
	if book == nil {
		return Receipt{}, ErrBookNotFound
	}
	if book.IsBorrowed {
		return Receipt{}, ErrAlreadyBorrowed
	}

	if lm.LedgerMode() {
		res, ledgerErr := lm.gateway.SubmitLend(ctx, borrower, bookID)
		if ledgerErr == nil {
			// Mirror for display only; the ledger's effect stands either way.
			if ok, err := lm.catalog.LendBook(bookID, borrower); err != nil || !ok {
				lm.logger.Printf("WARN: ledger lend confirmed (%s) but local mirror failed: ok=%t err=%v",
					res.TransactionID, ok, err)
			}
			return Receipt{TxID: res.TransactionID, Backend: BackendLedger}, nil
		}
		ok, err := lm.catalog.LendBook(bookID, borrower)
		if err == nil && ok {
			return Receipt{Backend: BackendLocal, Degraded: true, Reason: ledgerErr}, nil
		}
		return Receipt{}, ledgerErr
	}

	ok, err := lm.catalog.LendBook(bookID, borrower)
	if err != nil {
		return Receipt{}, err
	}
	if !ok {
		return Receipt{}, ErrAlreadyBorrowed
	}
	return Receipt{Backend: BackendLocal}, nil
}

// Return gives the book back. Only the current borrower may return it; any
// other state is ErrBookNotFound or ErrNotBorrowedByCaller, with no mutation
// in either backend.
func (lm *LibraryManager) Return(ctx context.Context, bookID, borrower string) (Receipt, error) {
	book, err := lm.catalog.GetBook(bookID)
	if err != nil {
		return Receipt{}, err
	}
	if book == nil {
		return Receipt{}, ErrBookNotFound
	}
	if !book.IsBorrowed || book.BorrowedBy != borrower {
		return Receipt{}, ErrNotBorrowedByCaller
	}

	if lm.LedgerMode() {
		res, ledgerErr := lm.gateway.SubmitReturn(ctx, borrower, bookID)
		if ledgerErr == nil {
			if ok, err := lm.catalog.ReleaseBook(bookID, borrower); err != nil || !ok {
				lm.logger.Printf("WARN: ledger return confirmed (%s) but local mirror failed: ok=%t err=%v",
					res.TransactionID, ok, err)
			}
			return Receipt{TxID: res.TransactionID, Backend: BackendLedger}, nil
		}
		ok, err := lm.catalog.ReleaseBook(bookID, borrower)
		if err == nil && ok {
			return Receipt{Backend: BackendLocal, Degraded: true, Reason: ledgerErr}, nil
		}
		return Receipt{}, ledgerErr
	}

	ok, err := lm.catalog.ReleaseBook(bookID, borrower)
	if err != nil {
		return Receipt{}, err
	}
	if !ok {
		return Receipt{}, ErrNotBorrowedByCaller
	}
	return Receipt{Backend: BackendLocal}, nil
}
