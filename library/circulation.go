package library

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the YYYY-MM-DD format loans store their dates in.
const DateLayout = "2006-01-02"

const (
	// DefaultFinePerDay is the late fee in rupiah per whole day overdue.
	DefaultFinePerDay = 500

	// DefaultLoanPeriodDays is the standard loan term.
	DefaultLoanPeriodDays = 7
)

// EffectiveStatus evaluates the display-time overdue rule: a Borrowed loan
// whose due date has passed is presented as Overdue with a fine of
// ceil(whole days late) * finePerDay. Any positive elapsed time past the
// due instant rounds up to a full day. Loans that are Returned, or not yet
// due, keep their stored status and fine unchanged.
func EffectiveStatus(loan Loan, now time.Time, finePerDay int) (LoanStatus, int) {
	if loan.Status != StatusBorrowed {
		return loan.Status, loan.Fine
	}
	due, err := time.Parse(DateLayout, loan.DueDate)
	if err != nil || !now.After(due) {
		return loan.Status, loan.Fine
	}
	days := int(math.Ceil(now.Sub(due).Hours() / 24))
	return StatusOverdue, days * finePerDay
}

// EffectiveLoans returns a copy of loans with the overdue rule applied for
// display. The originals are never mutated; recomputed status and fine are
// transient and only persisted by an explicit return.
func EffectiveLoans(loans []Loan, now time.Time, finePerDay int) []Loan {
	out := make([]Loan, len(loans))
	for i, l := range loans {
		status, fine := EffectiveStatus(l, now, finePerDay)
		l.Status = status
		l.Fine = fine
		out[i] = l
	}
	return out
}

// OpenLoanCount counts loans of the given book that have not been returned.
func OpenLoanCount(loans []Loan, bookID string) int {
	n := 0
	for _, l := range loans {
		if l.BookID == bookID && l.Status != StatusReturned {
			n++
		}
	}
	return n
}

// AvailabilityMismatch records a book whose incrementally maintained
// Available value disagrees with the value derived from open loans.
type AvailabilityMismatch struct {
	BookID  string
	Title   string
	Stored  int
	Derived int
}

func (m AvailabilityMismatch) String() string {
	return fmt.Sprintf("book %s (%s): stored available %d, derived %d", m.BookID, m.Title, m.Stored, m.Derived)
}

// CheckAvailability recomputes each book's availability from first
// principles (count minus open loans) and reports every disagreement with
// the stored value.
func CheckAvailability(books []Book, loans []Loan) []AvailabilityMismatch {
	var mismatches []AvailabilityMismatch
	for _, b := range books {
		derived := b.Count - OpenLoanCount(loans, b.ID)
		if derived < 0 {
			derived = 0
		}
		if derived != b.Available {
			mismatches = append(mismatches, AvailabilityMismatch{
				BookID:  b.ID,
				Title:   b.Title,
				Stored:  b.Available,
				Derived: derived,
			})
		}
	}
	return mismatches
}

// RepairAvailability returns a copy of books with Available recomputed from
// open loans, clamped to [0, Count].
func RepairAvailability(books []Book, loans []Loan) []Book {
	out := make([]Book, len(books))
	for i, b := range books {
		derived := b.Count - OpenLoanCount(loans, b.ID)
		if derived < 0 {
			derived = 0
		}
		if derived > b.Count {
			derived = b.Count
		}
		b.Available = derived
		out[i] = b
	}
	return out
}
