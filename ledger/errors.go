package ledger

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAgentUnavailable  = errors.New("no signing agent connected")
	ErrUserRejected      = errors.New("transaction was rejected by user")
	ErrInsufficientFunds = errors.New("insufficient funds for transaction")
)

// Abort codes raised by the library program.
const (
	AbortBookNotFound        = 1001
	AbortBookAlreadyBorrowed = 1002
	AbortBookNotBorrowed     = 1003
)

// RemoteError is a ledger-reported failure that is not one of the classified
// agent failures. Code is the program abort code when the failure came from
// the program, zero otherwise.
type RemoteError struct {
	Code    uint64
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("ledger abort %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("ledger error: %s", e.Message)
}

// NewAbortError builds a RemoteError carrying the human-readable message for
// a program abort code.
func NewAbortError(code uint64) *RemoteError {
	return &RemoteError{Code: code, Message: AbortMessage(code)}
}

// AbortMessage translates a program abort code to a human-readable message.
func AbortMessage(code uint64) string {
	switch code {
	case AbortBookNotFound:
		return "Book not found in the library"
	case AbortBookAlreadyBorrowed:
		return "Book is already borrowed"
	case AbortBookNotBorrowed:
		return "Book is not currently borrowed"
	default:
		return "Unknown contract error"
	}
}

// classify maps an error surfaced by the signing agent or the node into the
// gateway's failure taxonomy. Already-classified errors pass through; wallet
// bridges report rejection and balance failures as bare messages, so those
// are matched on the message text.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAgentUnavailable) || errors.Is(err, ErrUserRejected) || errors.Is(err, ErrInsufficientFunds) {
		return err
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rejected"):
		return fmt.Errorf("%w: %v", ErrUserRejected, err)
	case strings.Contains(msg, "insufficient"):
		return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	default:
		return &RemoteError{Message: err.Error()}
	}
}
