package main

import (
	"fmt"
	"os"

	"epustaka/library"
)

// seed wipes the local database and loads the initial catalog, roster, and
// loan set, so a fresh deployment starts with known data.
func main() {
	cfg, err := library.LoadConfig("epustaka.yml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Cleaning up existing database files...")
	dbFiles := []string{cfg.DatabasePath, cfg.DatabasePath + "-shm", cfg.DatabasePath + "-wal"}
	for _, file := range dbFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
		}
	}

	store, err := library.NewStore(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	books := library.SeedBooks()
	members := library.SeedMembers()
	loans := library.SeedLoans()

	if err := store.SaveBooks(books); err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding books: %v\n", err)
		os.Exit(1)
	}
	if err := store.SaveMembers(members); err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding members: %v\n", err)
		os.Exit(1)
	}
	if err := store.SaveLoans(loans); err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding loans: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nSeed complete!\n")
	fmt.Printf("Books:   %d\n", len(books))
	fmt.Printf("Members: %d\n", len(members))
	fmt.Printf("Loans:   %d\n", len(loans))

	fmt.Printf("\n%-4s %-6s %-40s %-25s\n", "ID", "Code", "Title", "Author")
	for _, b := range books {
		fmt.Printf("%-4s %-6s %-40s %-25s\n", b.ID, b.Code, b.Title, b.Author)
	}
}
