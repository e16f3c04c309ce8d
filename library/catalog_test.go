package library

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

var testTime = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(NewMemoryStorage(), FixedClock(testTime))
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	return c
}

// emptyCatalog builds a catalog over a region that already holds an empty
// collection, so the demonstration seed is skipped.
func emptyCatalog(t *testing.T) *Catalog {
	t.Helper()
	storage := NewMemoryStorage()
	if err := storage.Put(booksKey, []byte("[]")); err != nil {
		t.Fatalf("prime storage: %v", err)
	}
	c, err := NewCatalog(storage, FixedClock(testTime))
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	return c
}

func TestSeedOnFirstRun(t *testing.T) {
	storage := NewMemoryStorage()
	c, err := NewCatalog(storage, FixedClock(testTime))
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}

	books, err := c.AllBooks()
	if err != nil {
		t.Fatalf("all books: %v", err)
	}
	if len(books) != 6 {
		t.Fatalf("want 6 seeded books, got %d", len(books))
	}
	for _, b := range books {
		if b.IsBorrowed {
			t.Fatalf("seeded book %q must be available", b.Title)
		}
		if b.ID == "" {
			t.Fatalf("seeded book %q has no id", b.Title)
		}
	}

	// The borrowed index key is written too, as an empty list.
	raw, ok, err := storage.Get(borrowedKey)
	if err != nil || !ok || string(raw) != "[]" {
		t.Fatalf("borrowed index: raw=%q ok=%t err=%v", raw, ok, err)
	}

	// Reopening over the same region must not seed again.
	c2, err := NewCatalog(storage, FixedClock(testTime))
	if err != nil {
		t.Fatalf("reopen catalog: %v", err)
	}
	books, _ = c2.AllBooks()
	if len(books) != 6 {
		t.Fatalf("want 6 books after reopen, got %d", len(books))
	}
}

func TestAddBookValidation(t *testing.T) {
	c := testCatalog(t)

	cases := []NewBookInput{
		{Author: "A", Category: "C"},
		{Title: "T", Category: "C"},
		{Title: "T", Author: "A"},
		{Title: "   ", Author: "A", Category: "C"},
	}
	for _, in := range cases {
		if _, err := c.AddBook(in); !errors.Is(err, ErrValidation) {
			t.Fatalf("input %+v: want ErrValidation, got %v", in, err)
		}
	}

	before, _ := c.AllBooks()
	if len(before) != 6 {
		t.Fatalf("rejected adds must not persist, got %d books", len(before))
	}
}

func TestAddBookIntoEmptyStore(t *testing.T) {
	c := emptyCatalog(t)

	id, err := c.AddBook(NewBookInput{Title: "X", Author: "Y", Category: "Fiction"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id == "" {
		t.Fatal("empty id")
	}

	available, err := c.AvailableBooks()
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(available) != 1 || available[0].ID != id || available[0].IsBorrowed {
		t.Fatalf("want exactly the new available book, got %+v", available)
	}
	if available[0].CreatedAt != testTime {
		t.Fatalf("created_at = %v", available[0].CreatedAt)
	}

	borrowed, _ := c.BorrowedBooks("")
	if len(borrowed) != 0 {
		t.Fatalf("new book must not be borrowed, got %+v", borrowed)
	}
}

func TestLendAndReleaseRoundTrip(t *testing.T) {
	c := emptyCatalog(t)
	id, _ := c.AddBook(NewBookInput{Title: "T", Author: "A", Category: "C", ISBN: "i", Edition: "e"})

	before, _ := c.GetBook(id)

	ok, err := c.LendBook(id, "addr1")
	if err != nil || !ok {
		t.Fatalf("lend: ok=%t err=%v", ok, err)
	}
	lent, _ := c.GetBook(id)
	if !lent.IsBorrowed || lent.BorrowedBy != "addr1" || lent.BorrowedAt == nil {
		t.Fatalf("lending fields not set as a unit: %+v", lent)
	}

	ok, err = c.ReleaseBook(id, "addr1")
	if err != nil || !ok {
		t.Fatalf("release: ok=%t err=%v", ok, err)
	}
	after, _ := c.GetBook(id)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("lend+release must restore the record\nbefore=%+v\nafter=%+v", before, after)
	}
}

func TestLendNegatives(t *testing.T) {
	c := emptyCatalog(t)
	id, _ := c.AddBook(NewBookInput{Title: "T", Author: "A", Category: "C"})

	// Nonexistent id: no mutation, collection size unchanged.
	ok, err := c.LendBook("42", "addr1")
	if err != nil || ok {
		t.Fatalf("lend unknown id: ok=%t err=%v", ok, err)
	}
	books, _ := c.AllBooks()
	if len(books) != 1 {
		t.Fatalf("collection size changed: %d", len(books))
	}

	// Empty borrower: a borrowed record must always name its borrower.
	ok, err = c.LendBook(id, "")
	if err != nil || ok {
		t.Fatalf("lend with empty borrower: ok=%t err=%v", ok, err)
	}
	if b, _ := c.GetBook(id); b.IsBorrowed {
		t.Fatalf("rejected lend mutated state: %+v", b)
	}

	if ok, _ := c.LendBook(id, "addr1"); !ok {
		t.Fatal("first lend must succeed")
	}

	// Second lend by a different borrower fails and leaves state unchanged.
	ok, err = c.LendBook(id, "addr2")
	if err != nil || ok {
		t.Fatalf("double lend: ok=%t err=%v", ok, err)
	}
	b, _ := c.GetBook(id)
	if b.BorrowedBy != "addr1" {
		t.Fatalf("borrower clobbered: %+v", b)
	}
}

func TestReleaseNegatives(t *testing.T) {
	c := emptyCatalog(t)
	id, _ := c.AddBook(NewBookInput{Title: "T", Author: "A", Category: "C"})

	// Not borrowed at all.
	if ok, _ := c.ReleaseBook(id, "addr1"); ok {
		t.Fatal("release of an available book must fail")
	}

	c.LendBook(id, "addr1")

	// Wrong borrower: no partial mutation.
	if ok, _ := c.ReleaseBook(id, "addr2"); ok {
		t.Fatal("release by non-borrower must fail")
	}
	b, _ := c.GetBook(id)
	if !b.IsBorrowed || b.BorrowedBy != "addr1" {
		t.Fatalf("state changed by rejected release: %+v", b)
	}

	if ok, _ := c.ReleaseBook("42", "addr1"); ok {
		t.Fatal("release of unknown id must fail")
	}
}

func TestSearchBooks(t *testing.T) {
	c := testCatalog(t)

	cases := []struct {
		query string
		want  int
	}{
		{"knuth", 1},            // author, case-insensitive
		{"CLEAN", 1},            // title
		{"computer science", 2}, // category
		{"978-1-4842-2604-9", 1},
		{"no such thing", 0},
	}
	for _, tc := range cases {
		got, err := c.SearchBooks(tc.query)
		if err != nil {
			t.Fatalf("search %q: %v", tc.query, err)
		}
		if got == nil {
			t.Fatalf("search %q returned nil, want empty slice", tc.query)
		}
		if len(got) != tc.want {
			t.Fatalf("search %q: want %d, got %d", tc.query, tc.want, len(got))
		}
	}
}

func TestBorrowedBooksFilter(t *testing.T) {
	c := testCatalog(t)
	books, _ := c.AllBooks()

	c.LendBook(books[0].ID, "addr1")
	c.LendBook(books[1].ID, "addr2")

	all, _ := c.BorrowedBooks("")
	if len(all) != 2 {
		t.Fatalf("want 2 borrowed, got %d", len(all))
	}
	mine, _ := c.BorrowedBooks("addr1")
	if len(mine) != 1 || mine[0].ID != books[0].ID {
		t.Fatalf("filter by borrower: %+v", mine)
	}

	avail, _ := c.AvailableBooks()
	if len(avail) != 4 {
		t.Fatalf("want 4 available, got %d", len(avail))
	}
}

func TestCategories(t *testing.T) {
	c := testCatalog(t)

	got, err := c.Categories()
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	want := []string{"Blockchain", "Computer Science", "Programming", "Software Engineering", "System Design"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}

	byCat, _ := c.BooksByCategory("blockchain")
	if len(byCat) != 1 || byCat[0].Title != "Blockchain Basics" {
		t.Fatalf("category match must ignore case: %+v", byCat)
	}
}
