package ledger

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/sha3"
)

// SimLedger is an in-process ledger running the library program. It stands in
// for a remote network during development and tests: the wallet submits real
// signed transactions to it and the client's views read from it, with the
// same abort codes the deployed program raises.
type SimLedger struct {
	mu        sync.Mutex
	libraries map[string]*simLibrary
	balances  map[string]uint64
	confirmed map[string]bool
}

type simLibrary struct {
	books  []BookView
	nextID uint64
}

func NewSimLedger() *SimLedger {
	return &SimLedger{
		libraries: make(map[string]*simLibrary),
		balances:  make(map[string]uint64),
		confirmed: make(map[string]bool),
	}
}

// Fund credits the address with enough balance for amount transactions.
// Unfunded accounts cannot submit.
func (s *SimLedger) Fund(address string, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[address] += amount
}

// Balance reports the remaining transaction budget of address.
func (s *SimLedger) Balance(address string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[address]
}

func (s *SimLedger) SubmitTransaction(ctx context.Context, signed SignedTransaction) (string, error) {
	raw, err := DecodeRawTransaction(signed.Raw)
	if err != nil {
		return "", err
	}
	if len(signed.PublicKey) != ed25519.PublicKeySize ||
		!ed25519.Verify(ed25519.PublicKey(signed.PublicKey), signed.Raw, signed.Signature) {
		return "", &RemoteError{Message: "invalid transaction signature"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.balances[raw.Sender] == 0 {
		return "", fmt.Errorf("insufficient balance to pay gas for %s", raw.Sender)
	}
	s.balances[raw.Sender]--

	if err := s.execute(raw.Sender, raw.Payload); err != nil {
		return "", err
	}

	digest := sha3.Sum256(signed.Raw)
	hash := "0x" + hex.EncodeToString(digest[:])
	s.confirmed[hash] = true
	return hash, nil
}

func (s *SimLedger) WaitForTransaction(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.confirmed[hash] {
		return &RemoteError{Message: "transaction not found: " + hash}
	}
	return nil
}

// execute runs one entry function against program state. Callers hold s.mu.
func (s *SimLedger) execute(sender string, payload EntryFunctionPayload) error {
	switch functionName(payload.Function) {
	case "init_library":
		if _, ok := s.libraries[sender]; !ok {
			s.libraries[sender] = &simLibrary{}
		}
		return nil

	case "add_book":
		if len(payload.Arguments) != 4 {
			return &RemoteError{Message: "add_book expects 4 arguments"}
		}
		lib, ok := s.libraries[sender]
		if !ok {
			return &RemoteError{Message: "no library published under " + sender}
		}
		lib.books = append(lib.books, BookView{
			ID:          strconv.FormatUint(lib.nextID, 10),
			Title:       payload.Arguments[0],
			Author:      payload.Arguments[1],
			Category:    payload.Arguments[2],
			Description: payload.Arguments[3],
		})
		lib.nextID++
		return nil

	case "borrow_book":
		if len(payload.Arguments) != 1 {
			return &RemoteError{Message: "borrow_book expects 1 argument"}
		}
		book, err := s.findBook(sender, payload.Arguments[0])
		if err != nil {
			return err
		}
		if book.IsBorrowed {
			return NewAbortError(AbortBookAlreadyBorrowed)
		}
		book.IsBorrowed = true
		book.BorrowedBy = sender
		return nil

	case "return_book":
		if len(payload.Arguments) != 1 {
			return &RemoteError{Message: "return_book expects 1 argument"}
		}
		book, err := s.findBook(sender, payload.Arguments[0])
		if err != nil {
			return err
		}
		if !book.IsBorrowed || book.BorrowedBy != sender {
			return NewAbortError(AbortBookNotBorrowed)
		}
		book.IsBorrowed = false
		book.BorrowedBy = ""
		return nil

	default:
		return &RemoteError{Message: "unknown entry function: " + payload.Function}
	}
}

func (s *SimLedger) findBook(owner, id string) (*BookView, error) {
	lib, ok := s.libraries[owner]
	if !ok {
		return nil, &RemoteError{Message: "no library published under " + owner}
	}
	for i := range lib.books {
		if lib.books[i].ID == id {
			return &lib.books[i], nil
		}
	}
	return nil, NewAbortError(AbortBookNotFound)
}

func (s *SimLedger) View(ctx context.Context, req ViewRequest) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch functionName(req.Function) {
	case "get_book_count":
		if len(req.Arguments) != 1 {
			return nil, &RemoteError{Message: "get_book_count expects 1 argument"}
		}
		var count uint64
		if lib, ok := s.libraries[req.Arguments[0]]; ok {
			count = uint64(len(lib.books))
		}
		return s.viewValues(count)

	case "get_book":
		if len(req.Arguments) != 2 {
			return nil, &RemoteError{Message: "get_book expects 2 arguments"}
		}
		lib, ok := s.libraries[req.Arguments[0]]
		if !ok {
			return nil, NewAbortError(AbortBookNotFound)
		}
		for _, b := range lib.books {
			if b.ID == req.Arguments[1] {
				return s.viewValues(b)
			}
		}
		return nil, NewAbortError(AbortBookNotFound)

	case "library_exists":
		if len(req.Arguments) != 1 {
			return nil, &RemoteError{Message: "library_exists expects 1 argument"}
		}
		_, ok := s.libraries[req.Arguments[0]]
		return s.viewValues(ok)

	default:
		return nil, &RemoteError{Message: "unknown view function: " + req.Function}
	}
}

func (s *SimLedger) viewValues(values ...any) ([][]byte, error) {
	out := make([][]byte, 0, len(values))
	for _, v := range values {
		data, err := cbor.Marshal(v)
		if err != nil {
			return nil, &RemoteError{Message: "encode view value: " + err.Error()}
		}
		out = append(out, data)
	}
	return out, nil
}

func functionName(function string) string {
	if i := strings.LastIndex(function, "::"); i >= 0 {
		return function[i+2:]
	}
	return function
}
