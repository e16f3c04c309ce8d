// Command seed_catalog resets the local storage region and re-seeds it with
// the demonstration catalog.
package main

import (
	"fmt"
	"os"

	"book-vault/library"
)

const storageFile = "library.db"

func main() {
	// Clean up any existing database files.
	fmt.Println("Cleaning up existing database files...")
	dbFiles := []string{storageFile, storageFile + "-shm", storageFile + "-wal"}
	for _, file := range dbFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
		}
	}

	storage, err := library.OpenSQLiteStorage(storageFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
		os.Exit(1)
	}
	defer storage.Close()

	catalog, err := library.NewCatalog(storage, library.SystemClock())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding catalog: %v\n", err)
		os.Exit(1)
	}

	books, err := catalog.AllBooks()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading catalog: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Seeded %d books into %s\n\n", len(books), storageFile)
	fmt.Printf("%-36s %-40s %-25s %s\n", "ID", "Title", "Author", "Category")
	for _, b := range books {
		fmt.Printf("%-36s %-40s %-25s %s\n", b.ID, truncateString(b.Title, 40), truncateString(b.Author, 25), b.Category)
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
