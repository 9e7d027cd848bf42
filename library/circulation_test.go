package library

import (
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func TestEffectiveStatusTenDaysLate(t *testing.T) {
	loan := Loan{ID: "L001", DueDate: "2024-03-01", Status: StatusBorrowed}
	now := mustDate(t, "2024-03-11")

	status, fine := EffectiveStatus(loan, now, 500)
	if status != StatusOverdue {
		t.Fatalf("want Overdue, got %s", status)
	}
	if fine != 5000 {
		t.Fatalf("want fine 5000, got %d", fine)
	}
}

func TestEffectiveStatusDueExactlyNow(t *testing.T) {
	loan := Loan{ID: "L001", DueDate: "2024-03-01", Status: StatusBorrowed}
	now := mustDate(t, "2024-03-01")

	status, fine := EffectiveStatus(loan, now, 500)
	if status != StatusBorrowed {
		t.Fatalf("loan due exactly now must not be overdue, got %s", status)
	}
	if fine != 0 {
		t.Fatalf("want fine 0, got %d", fine)
	}
}

func TestEffectiveStatusPartialDayRoundsUp(t *testing.T) {
	loan := Loan{ID: "L001", DueDate: "2024-03-01", Status: StatusBorrowed}
	// One minute past the due instant already counts as a full day.
	now := mustDate(t, "2024-03-01").Add(time.Minute)

	status, fine := EffectiveStatus(loan, now, 500)
	if status != StatusOverdue || fine != 500 {
		t.Fatalf("want Overdue/500, got %s/%d", status, fine)
	}
}

func TestEffectiveStatusReturnedUntouched(t *testing.T) {
	loan := Loan{ID: "L001", DueDate: "2024-03-01", ReturnDate: "2024-03-05", Status: StatusReturned, Fine: 2000}
	now := mustDate(t, "2024-06-01")

	status, fine := EffectiveStatus(loan, now, 500)
	if status != StatusReturned || fine != 2000 {
		t.Fatalf("returned loan must keep stored status/fine, got %s/%d", status, fine)
	}
}

func TestEffectiveLoansDoesNotMutate(t *testing.T) {
	loans := []Loan{{ID: "L001", DueDate: "2024-03-01", Status: StatusBorrowed, Fine: 0}}
	now := mustDate(t, "2024-03-20")

	views := EffectiveLoans(loans, now, 500)
	if views[0].Status != StatusOverdue || views[0].Fine == 0 {
		t.Fatalf("view not derived: %+v", views[0])
	}
	if loans[0].Status != StatusBorrowed || loans[0].Fine != 0 {
		t.Fatalf("stored loan mutated: %+v", loans[0])
	}
}

func TestCheckAvailability(t *testing.T) {
	books := []Book{
		{ID: "1", Title: "A", Count: 5, Available: 4},
		{ID: "2", Title: "B", Count: 2, Available: 2},
	}
	loans := []Loan{
		{ID: "L001", BookID: "1", Status: StatusBorrowed},
		{ID: "L002", BookID: "1", Status: StatusReturned},
		{ID: "L003", BookID: "2", Status: StatusOverdue},
	}

	mismatches := CheckAvailability(books, loans)
	if len(mismatches) != 1 {
		t.Fatalf("want 1 mismatch, got %d", len(mismatches))
	}
	m := mismatches[0]
	if m.BookID != "2" || m.Stored != 2 || m.Derived != 1 {
		t.Fatalf("unexpected mismatch: %+v", m)
	}

	repaired := RepairAvailability(books, loans)
	if repaired[0].Available != 4 || repaired[1].Available != 1 {
		t.Fatalf("repair wrong: %+v", repaired)
	}
	// Originals untouched.
	if books[1].Available != 2 {
		t.Fatalf("input mutated")
	}
}

func TestRepairAvailabilityClamps(t *testing.T) {
	books := []Book{{ID: "1", Count: 1, Available: 1}}
	loans := []Loan{
		{ID: "L001", BookID: "1", Status: StatusBorrowed},
		{ID: "L002", BookID: "1", Status: StatusBorrowed},
	}
	repaired := RepairAvailability(books, loans)
	if repaired[0].Available != 0 {
		t.Fatalf("availability must clamp at 0, got %d", repaired[0].Available)
	}
}
