package library

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrMemberNotFound  = errors.New("member not found")
	ErrBookUnavailable = errors.New("no copies of the book are available")
	ErrHasOpenLoans    = errors.New("record has open loans")
)

// Manager owns the in-memory collections and applies domain operations to
// them. Every mutation writes the whole affected collection to the store
// and fires a best-effort mirror push. All access is single-threaded; the
// only concurrency is inside the mirror's fire-and-forget pushes.
type Manager struct {
	cfg    *Config
	store  *Store
	mirror *Mirror
	log    *zap.Logger

	books   []Book
	members []Member
	loans   []Loan
}

// NewManager loads the collections from the store (seed defaults when the
// store is empty) and raises the ID counters above anything already loaded.
func NewManager(cfg *Config, store *Store, mirror *Mirror, log *zap.Logger) (*Manager, error) {
	m := &Manager{cfg: cfg, store: store, mirror: mirror, log: log}

	var err error
	if m.books, err = store.Books(); err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	if m.members, err = store.Members(); err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	if m.loans, err = store.Loans(); err != nil {
		return nil, fmt.Errorf("load loans: %w", err)
	}

	if err := m.raiseCounters(); err != nil {
		return nil, err
	}
	return m, nil
}

// SyncFromCloud performs the one-shot startup pull. Collections present in
// the remote snapshot fully replace both memory and the local copy; a
// failed pull is logged and the local data stands.
func (m *Manager) SyncFromCloud(ctx context.Context) error {
	if !m.mirror.Enabled() {
		return nil
	}
	snap, err := m.mirror.Pull(ctx)
	if err != nil {
		m.log.Warn("cloud pull failed, keeping local data", zap.Error(err))
		return err
	}

	if snap.Books != nil {
		m.books = snap.Books
		if err := m.store.SaveBooks(m.books); err != nil {
			return err
		}
	}
	if snap.Members != nil {
		m.members = snap.Members
		if err := m.store.SaveMembers(m.members); err != nil {
			return err
		}
	}
	if snap.Loans != nil {
		m.loans = snap.Loans
		if err := m.store.SaveLoans(m.loans); err != nil {
			return err
		}
	}

	if err := m.raiseCounters(); err != nil {
		return err
	}
	m.log.Info("cloud pull applied",
		zap.Int("books", len(m.books)),
		zap.Int("members", len(m.members)),
		zap.Int("loans", len(m.loans)))
	return nil
}

// ------------------ Accessors ------------------

func (m *Manager) Books() []Book     { return m.books }
func (m *Manager) Members() []Member { return m.members }

// Loans returns the loans as persisted, without overdue recomputation.
func (m *Manager) Loans() []Loan { return m.loans }

// LoanViews returns the loans with the overdue rule applied at now. The
// recomputed status/fine are transient and not written back.
func (m *Manager) LoanViews() []Loan {
	return EffectiveLoans(m.loans, time.Now(), m.cfg.Circulation.FinePerDay)
}

// Stats summarizes the collections for the dashboard.
func (m *Manager) Stats() DashboardStats {
	var total, available int
	for _, b := range m.books {
		total += b.Count
		available += b.Available
	}
	return DashboardStats{
		TotalBooks:     total,
		AvailableBooks: available,
		BorrowedBooks:  total - available,
		TotalMembers:   len(m.members),
	}
}

// ------------------ Catalog ------------------

// AddBook assigns an ID, sets Available = Count, and appends to the catalog.
func (m *Manager) AddBook(b Book) (Book, error) {
	n, err := m.store.NextID(counterBooks)
	if err != nil {
		return Book{}, err
	}
	b.ID = strconv.FormatInt(n, 10)
	b.Available = b.Count
	m.books = append(m.books, b)
	if err := m.saveBooks(); err != nil {
		return Book{}, err
	}
	m.log.Info("book added", zap.String("id", b.ID), zap.String("title", b.Title))
	return b, nil
}

// EditBook replaces the stored fields of the book with updated.ID's record.
// Available is re-derived from open loans so a changed Count stays
// consistent. Loan snapshots of the old title are left untouched.
func (m *Manager) EditBook(updated Book) error {
	for i, b := range m.books {
		if b.ID != updated.ID {
			continue
		}
		updated.Available = updated.Count - OpenLoanCount(m.loans, b.ID)
		if updated.Available < 0 {
			updated.Available = 0
		}
		m.books[i] = updated
		return m.saveBooks()
	}
	return ErrBookNotFound
}

// DeleteBook removes the book by ID. Deletion is refused while the book has
// open loans; loans already closed keep their denormalized title snapshot.
func (m *Manager) DeleteBook(id string) error {
	idx := -1
	for i, b := range m.books {
		if b.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrBookNotFound
	}
	if OpenLoanCount(m.loans, id) > 0 {
		return fmt.Errorf("delete book %s: %w", id, ErrHasOpenLoans)
	}
	m.books = append(m.books[:idx], m.books[idx+1:]...)
	return m.saveBooks()
}

// ------------------ Roster ------------------

// AddMember assigns a prefixed ID and appends to the roster.
func (m *Manager) AddMember(mem Member) (Member, error) {
	n, err := m.store.NextID(counterMembers)
	if err != nil {
		return Member{}, err
	}
	mem.ID = fmt.Sprintf("M%03d", n)
	m.members = append(m.members, mem)
	if err := m.saveMembers(); err != nil {
		return Member{}, err
	}
	m.log.Info("member added", zap.String("id", mem.ID), zap.String("name", mem.Name))
	return mem, nil
}

// EditMember replaces the stored fields of the member with updated.ID's
// record. Loan snapshots of the old name are left untouched.
func (m *Manager) EditMember(updated Member) error {
	for i, mem := range m.members {
		if mem.ID == updated.ID {
			m.members[i] = updated
			return m.saveMembers()
		}
	}
	return ErrMemberNotFound
}

// DeleteMember removes the member by ID, refusing while they hold open
// loans.
func (m *Manager) DeleteMember(id string) error {
	idx := -1
	for i, mem := range m.members {
		if mem.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrMemberNotFound
	}
	for _, l := range m.loans {
		if l.MemberID == id && l.Status != StatusReturned {
			return fmt.Errorf("delete member %s: %w", id, ErrHasOpenLoans)
		}
	}
	m.members = append(m.members[:idx], m.members[idx+1:]...)
	return m.saveMembers()
}

// FindMember returns the member with the given ID.
func (m *Manager) FindMember(id string) (*Member, error) {
	for i := range m.members {
		if m.members[i].ID == id {
			return &m.members[i], nil
		}
	}
	return nil, ErrMemberNotFound
}

// FindBook returns the book with the given ID.
func (m *Manager) FindBook(id string) (*Book, error) {
	for i := range m.books {
		if m.books[i].ID == id {
			return &m.books[i], nil
		}
	}
	return nil, ErrBookNotFound
}

// ------------------ Circulation ------------------

// OpenLoan creates a Borrowed loan for the member and book, snapshotting
// their current name and title, and takes one copy off the shelf. Empty
// dates default to today and today plus the configured loan period. A book
// with no available copies is refused.
func (m *Manager) OpenLoan(memberID, bookID, loanDate, dueDate string) (Loan, error) {
	member, err := m.FindMember(memberID)
	if err != nil {
		return Loan{}, err
	}
	book, err := m.FindBook(bookID)
	if err != nil {
		return Loan{}, err
	}
	if book.Available <= 0 {
		return Loan{}, fmt.Errorf("open loan for book %s: %w", bookID, ErrBookUnavailable)
	}

	now := time.Now()
	if loanDate == "" {
		loanDate = now.Format(DateLayout)
	}
	if dueDate == "" {
		dueDate = now.AddDate(0, 0, m.cfg.Circulation.LoanPeriodDays).Format(DateLayout)
	}

	n, err := m.store.NextID(counterLoans)
	if err != nil {
		return Loan{}, err
	}
	loan := Loan{
		ID:         fmt.Sprintf("L%03d", n),
		MemberID:   member.ID,
		MemberName: member.Name,
		BookID:     book.ID,
		BookTitle:  book.Title,
		LoanDate:   loanDate,
		DueDate:    dueDate,
		Status:     StatusBorrowed,
		Fine:       0,
	}

	m.loans = append(m.loans, loan)
	if err := m.saveLoans(); err != nil {
		return Loan{}, err
	}

	book.Available--
	if err := m.saveBooks(); err != nil {
		return Loan{}, err
	}

	m.log.Info("loan opened",
		zap.String("loan", loan.ID),
		zap.String("member", member.ID),
		zap.String("book", book.ID))
	return loan, nil
}

// ReturnLoan closes the loan: status Returned, return date today, and one
// copy back on the shelf (clamped at the owned count). The fine is
// finalized from the overdue rule evaluated now, so the persisted value
// matches what the member was shown at the desk. An unknown loan ID is a
// no-op.
func (m *Manager) ReturnLoan(loanID string) error {
	idx := -1
	for i, l := range m.loans {
		if l.ID == loanID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	loan := &m.loans[idx]
	if loan.Status == StatusReturned {
		return nil
	}

	now := time.Now()
	_, fine := EffectiveStatus(*loan, now, m.cfg.Circulation.FinePerDay)
	loan.Status = StatusReturned
	loan.ReturnDate = now.Format(DateLayout)
	loan.Fine = fine
	if err := m.saveLoans(); err != nil {
		return err
	}

	for i := range m.books {
		if m.books[i].ID == loan.BookID {
			if m.books[i].Available < m.books[i].Count {
				m.books[i].Available++
			}
			if err := m.saveBooks(); err != nil {
				return err
			}
			break
		}
	}

	m.log.Info("loan returned", zap.String("loan", loan.ID), zap.Int("fine", loan.Fine))
	return nil
}

// ReconcileInventory recomputes every book's availability from open loans.
// When the incremental bookkeeping has drifted, the mismatches are
// reported, the corrected values persisted.
func (m *Manager) ReconcileInventory() ([]AvailabilityMismatch, error) {
	mismatches := CheckAvailability(m.books, m.loans)
	if len(mismatches) == 0 {
		return nil, nil
	}
	m.books = RepairAvailability(m.books, m.loans)
	if err := m.saveBooks(); err != nil {
		return mismatches, err
	}
	for _, mm := range mismatches {
		m.log.Warn("availability repaired", zap.String("detail", mm.String()))
	}
	return mismatches, nil
}

// ------------------ Reports ------------------

// SaveReport appends the report to the capped history and mirrors the
// updated history to the Reports sheet.
func (m *Manager) SaveReport(r Report) error {
	updated, err := m.store.AppendReport(r)
	if err != nil {
		return err
	}
	m.mirror.PushAsync(SheetReports, ReportRows(updated))
	return nil
}

// ReportHistory returns the stored reports, newest first.
func (m *Manager) ReportHistory() ([]Report, error) { return m.store.Reports() }

// MirrorStats reports how many cloud pushes were attempted and how many failed.
func (m *Manager) MirrorStats() (attempted, failed int64) { return m.mirror.Stats() }

// PushAll mirrors every collection now. Used by the sync command.
func (m *Manager) PushAll(ctx context.Context) error {
	if !m.mirror.Enabled() {
		return fmt.Errorf("script URL not configured")
	}
	pushes := []struct {
		sheet string
		rows  [][]string
	}{
		{SheetBooks, BookRows(m.books)},
		{SheetMembers, MemberRows(m.members)},
		{SheetLoans, LoanRows(m.loans)},
	}
	for _, p := range pushes {
		if err := m.mirror.Push(ctx, p.sheet, p.rows); err != nil {
			return err
		}
	}
	return nil
}

// ------------------ Persistence helpers ------------------

func (m *Manager) saveBooks() error {
	if err := m.store.SaveBooks(m.books); err != nil {
		return err
	}
	m.mirror.PushAsync(SheetBooks, BookRows(m.books))
	return nil
}

func (m *Manager) saveMembers() error {
	if err := m.store.SaveMembers(m.members); err != nil {
		return err
	}
	m.mirror.PushAsync(SheetMembers, MemberRows(m.members))
	return nil
}

func (m *Manager) saveLoans() error {
	if err := m.store.SaveLoans(m.loans); err != nil {
		return err
	}
	m.mirror.PushAsync(SheetLoans, LoanRows(m.loans))
	return nil
}

// raiseCounters lifts the ID counters above the IDs already present so new
// IDs never collide with seeded or pulled records.
func (m *Manager) raiseCounters() error {
	var maxBook, maxMember, maxLoan int64
	for _, b := range m.books {
		if n, err := strconv.ParseInt(b.ID, 10, 64); err == nil && n > maxBook {
			maxBook = n
		}
	}
	for _, mem := range m.members {
		if n := prefixedID(mem.ID, "M"); n > maxMember {
			maxMember = n
		}
	}
	for _, l := range m.loans {
		if n := prefixedID(l.ID, "L"); n > maxLoan {
			maxLoan = n
		}
	}
	if err := m.store.EnsureCounter(counterBooks, maxBook); err != nil {
		return err
	}
	if err := m.store.EnsureCounter(counterMembers, maxMember); err != nil {
		return err
	}
	return m.store.EnsureCounter(counterLoans, maxLoan)
}

func prefixedID(id, prefix string) int64 {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
