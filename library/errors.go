package library

import "errors"

var (
	ErrValidation          = errors.New("missing required field")
	ErrBookNotFound        = errors.New("book not found")
	ErrAlreadyBorrowed     = errors.New("book is already borrowed")
	ErrNotBorrowedByCaller = errors.New("book is not borrowed by caller")
)
