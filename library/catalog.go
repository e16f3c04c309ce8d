package library

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Storage keys of the catalog's key-value region. The borrowed index is part
// of the persisted format but nothing reads it back yet.
const (
	booksKey    = "library_books"
	borrowedKey = "borrowed_books"
)

// Catalog is the local store of record for books. Every mutation deserializes
// the whole collection, changes it, and writes it back; there is no partial
// update. The surrounding event loop is the only writer.
type Catalog struct {
	storage Storage
	clock   Clock
}

// NewCatalog wraps the given storage region. When the region holds no book
// collection yet, it is seeded with the demonstration catalog so a first run
// is never empty.
func NewCatalog(storage Storage, clk Clock) (*Catalog, error) {
	c := &Catalog{storage: storage, clock: clk}

	_, ok, err := storage.Get(booksKey)
	if err != nil {
		return nil, fmt.Errorf("probe catalog: %w", err)
	}
	if !ok {
		if err := c.save(c.seedBooks()); err != nil {
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
		if err := storage.Put(borrowedKey, []byte("[]")); err != nil {
			return nil, fmt.Errorf("seed borrowed index: %w", err)
		}
	}
	return c, nil
}

func (c *Catalog) load() ([]Book, error) {
	raw, ok, err := c.storage.Get(booksKey)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var books []Book
	if err := json.Unmarshal(raw, &books); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return books, nil
}

func (c *Catalog) save(books []Book) error {
	raw, err := json.Marshal(books)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := c.storage.Put(booksKey, raw); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}

// AllBooks returns every record in insertion order.
func (c *Catalog) AllBooks() ([]Book, error) {
	return c.load()
}

// AvailableBooks returns the records that are not currently borrowed.
func (c *Catalog) AvailableBooks() ([]Book, error) {
	books, err := c.load()
	if err != nil {
		return nil, err
	}
	out := make([]Book, 0, len(books))
	for _, b := range books {
		if !b.IsBorrowed {
			out = append(out, b)
		}
	}
	return out, nil
}

// BorrowedBooks returns the records currently lent to borrower. An empty
// borrower returns every borrowed record regardless of attribution.
func (c *Catalog) BorrowedBooks(borrower string) ([]Book, error) {
	books, err := c.load()
	if err != nil {
		return nil, err
	}
	out := make([]Book, 0, len(books))
	for _, b := range books {
		if !b.IsBorrowed {
			continue
		}
		if borrower == "" || b.BorrowedBy == borrower {
			out = append(out, b)
		}
	}
	return out, nil
}

// GetBook returns the record with the given id, or nil when no such record exists.
func (c *Catalog) GetBook(id string) (*Book, error) {
	books, err := c.load()
	if err != nil {
		return nil, err
	}
	for i := range books {
		if books[i].ID == id {
			b := books[i]
			return &b, nil
		}
	}
	return nil, nil
}

// AddBook validates the input, assigns a fresh id and creation time, persists
// the record, and returns the new id.
func (c *Catalog) AddBook(in NewBookInput) (string, error) {
	if strings.TrimSpace(in.Title) == "" {
		return "", fmt.Errorf("%w: title", ErrValidation)
	}
	if strings.TrimSpace(in.Author) == "" {
		return "", fmt.Errorf("%w: author", ErrValidation)
	}
	if strings.TrimSpace(in.Category) == "" {
		return "", fmt.Errorf("%w: category", ErrValidation)
	}

	books, err := c.load()
	if err != nil {
		return "", err
	}

	book := Book{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Author:      in.Author,
		ISBN:        in.ISBN,
		Edition:     in.Edition,
		Category:    in.Category,
		Description: in.Description,
		CreatedAt:   c.clock.Now(),
	}
	books = append(books, book)
	if err := c.save(books); err != nil {
		return "", err
	}
	return book.ID, nil
}

// LendBook marks the book as borrowed by borrower. It returns false without
// mutating anything when the book does not exist, is already borrowed, or
// borrower is empty: a borrowed record always names its borrower.
func (c *Catalog) LendBook(id, borrower string) (bool, error) {
	if borrower == "" {
		return false, nil
	}
	books, err := c.load()
	if err != nil {
		return false, err
	}
	idx := findBook(books, id)
	if idx == -1 || books[idx].IsBorrowed {
		return false, nil
	}

	now := c.clock.Now()
	books[idx].IsBorrowed = true
	books[idx].BorrowedBy = borrower
	books[idx].BorrowedAt = &now
	if err := c.save(books); err != nil {
		return false, err
	}
	return true, nil
}

// ReleaseBook clears the lending fields of the book currently borrowed by
// borrower. It returns false when the book does not exist, is not borrowed,
// or is borrowed by someone else.
func (c *Catalog) ReleaseBook(id, borrower string) (bool, error) {
	books, err := c.load()
	if err != nil {
		return false, err
	}
	idx := findBook(books, id)
	if idx == -1 || !books[idx].IsBorrowed || books[idx].BorrowedBy != borrower {
		return false, nil
	}

	books[idx].IsBorrowed = false
	books[idx].BorrowedBy = ""
	books[idx].BorrowedAt = nil
	if err := c.save(books); err != nil {
		return false, err
	}
	return true, nil
}

// SearchBooks matches query case-insensitively against title, author,
// category, and ISBN, preserving collection order.
func (c *Catalog) SearchBooks(query string) ([]Book, error) {
	books, err := c.load()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	out := make([]Book, 0, len(books))
	for _, b := range books {
		if strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) ||
			strings.Contains(strings.ToLower(b.Category), q) ||
			strings.Contains(strings.ToLower(b.ISBN), q) {
			out = append(out, b)
		}
	}
	return out, nil
}

// BooksByCategory returns the records whose category equals category,
// ignoring case.
func (c *Catalog) BooksByCategory(category string) ([]Book, error) {
	books, err := c.load()
	if err != nil {
		return nil, err
	}
	out := make([]Book, 0, len(books))
	for _, b := range books {
		if strings.EqualFold(b.Category, category) {
			out = append(out, b)
		}
	}
	return out, nil
}

// Categories returns the distinct categories across all records,
// lexicographically sorted.
func (c *Catalog) Categories() ([]string, error) {
	books, err := c.load()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, b := range books {
		if !seen[b.Category] {
			seen[b.Category] = true
			out = append(out, b.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func findBook(books []Book, id string) int {
	for i := range books {
		if books[i].ID == id {
			return i
		}
	}
	return -1
}

// seedBooks is the demonstration catalog written on first run.
func (c *Catalog) seedBooks() []Book {
	now := c.clock.Now()
	seed := []Book{
		{
			Title:       "The Art of Computer Programming",
			Author:      "Donald Knuth",
			ISBN:        "978-0-201-89683-1",
			Edition:     "3rd Edition",
			Category:    "Computer Science",
			Description: "A comprehensive monograph written by Donald Knuth that covers many kinds of programming algorithms.",
		},
		{
			Title:       "Clean Code",
			Author:      "Robert C. Martin",
			ISBN:        "978-0-13-235088-4",
			Edition:     "1st Edition",
			Category:    "Programming",
			Description: "A handbook of agile software craftsmanship.",
		},
		{
			Title:       "Design Patterns",
			Author:      "Gang of Four",
			ISBN:        "978-0-201-63361-0",
			Edition:     "1st Edition",
			Category:    "Software Engineering",
			Description: "Elements of Reusable Object-Oriented Software.",
		},
		{
			Title:       "Introduction to Algorithms",
			Author:      "Thomas H. Cormen",
			ISBN:        "978-0-262-03384-8",
			Edition:     "3rd Edition",
			Category:    "Computer Science",
			Description: "A comprehensive textbook on computer algorithms.",
		},
		{
			Title:       "System Design Interview",
			Author:      "Alex Xu",
			ISBN:        "978-1-736049-12-4",
			Edition:     "1st Edition",
			Category:    "System Design",
			Description: "An insider's guide to system design interviews.",
		},
		{
			Title:       "Blockchain Basics",
			Author:      "Daniel Drescher",
			ISBN:        "978-1-4842-2604-9",
			Edition:     "1st Edition",
			Category:    "Blockchain",
			Description: "A non-technical introduction in 25 steps.",
		},
	}
	for i := range seed {
		seed[i].ID = uuid.NewString()
		seed[i].CreatedAt = now
	}
	return seed
}
