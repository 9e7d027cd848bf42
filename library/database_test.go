package library

import (
	"fmt"
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSeedDefaultsWhenEmpty(t *testing.T) {
	store := tempStore(t)

	books, err := store.Books()
	if err != nil {
		t.Fatalf("books: %v", err)
	}
	if len(books) != len(SeedBooks()) {
		t.Fatalf("want seed catalog, got %d books", len(books))
	}

	members, err := store.Members()
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) == 0 || members[0].ID != "M001" {
		t.Fatalf("want seed roster, got %+v", members)
	}

	loans, err := store.Loans()
	if err != nil {
		t.Fatalf("loans: %v", err)
	}
	if len(loans) != 1 || loans[0].Status != StatusBorrowed {
		t.Fatalf("want seed loan, got %+v", loans)
	}
}

func TestCollectionRoundTrip(t *testing.T) {
	store := tempStore(t)

	books := []Book{
		{ID: "9", Code: "B009", Title: "Sejarah Indonesia", Author: "Tim Penulis", Publisher: "Erlangga", Year: 2019, Category: "Sejarah", Count: 3, Available: 2},
	}
	if err := store.SaveBooks(books); err != nil {
		t.Fatalf("save books: %v", err)
	}

	got, err := store.Books()
	if err != nil {
		t.Fatalf("books: %v", err)
	}
	if len(got) != 1 || got[0] != books[0] {
		t.Fatalf("round-trip mismatch: %+v", got)
	}

	loans := []Loan{
		{ID: "L007", MemberID: "M001", MemberName: "Budi", BookID: "9", BookTitle: "Sejarah Indonesia",
			LoanDate: "2024-01-02", DueDate: "2024-01-09", ReturnDate: "2024-01-08", Status: StatusReturned, Fine: 0},
	}
	if err := store.SaveLoans(loans); err != nil {
		t.Fatalf("save loans: %v", err)
	}
	gotLoans, err := store.Loans()
	if err != nil {
		t.Fatalf("loans: %v", err)
	}
	if len(gotLoans) != 1 || gotLoans[0] != loans[0] {
		t.Fatalf("loan round-trip mismatch: %+v", gotLoans)
	}
}

func TestSaveEmptyCollectionDistinctFromUnwritten(t *testing.T) {
	store := tempStore(t)

	if err := store.SaveBooks([]Book{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	books, err := store.Books()
	if err != nil {
		t.Fatalf("books: %v", err)
	}
	if len(books) != 0 {
		t.Fatalf("explicitly emptied catalog must not fall back to seeds, got %d", len(books))
	}
}

func TestReportHistoryCap(t *testing.T) {
	store := tempStore(t)

	for i := 1; i <= 60; i++ {
		_, err := store.AppendReport(Report{
			Timestamp: fmt.Sprintf("2024-01-01 00:00:%02d", i),
			Librarian: "Admin",
			Filter:    "Periode: Semua Waktu, Kategori: Semua Kategori",
			Content:   fmt.Sprintf("laporan %d", i),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	reports, err := store.Reports()
	if err != nil {
		t.Fatalf("reports: %v", err)
	}
	if len(reports) != MaxReportHistory {
		t.Fatalf("want %d reports, got %d", MaxReportHistory, len(reports))
	}
	if reports[0].Content != "laporan 60" {
		t.Fatalf("newest first: got %q", reports[0].Content)
	}
	if reports[len(reports)-1].Content != "laporan 11" {
		t.Fatalf("oldest evicted: tail is %q", reports[len(reports)-1].Content)
	}
}

func TestNextIDMonotonic(t *testing.T) {
	store := tempStore(t)

	for want := int64(1); want <= 3; want++ {
		got, err := store.NextID(counterLoans)
		if err != nil {
			t.Fatalf("next id: %v", err)
		}
		if got != want {
			t.Fatalf("want %d, got %d", want, got)
		}
	}

	if err := store.EnsureCounter(counterLoans, 10); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	got, err := store.NextID(counterLoans)
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if got != 11 {
		t.Fatalf("after ensure(10) want 11, got %d", got)
	}

	// Ensure never lowers the counter.
	if err := store.EnsureCounter(counterLoans, 2); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	got, err = store.NextID(counterLoans)
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if got != 12 {
		t.Fatalf("want 12, got %d", got)
	}
}
