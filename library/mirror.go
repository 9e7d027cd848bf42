package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Sheet names on the remote spreadsheet, one per collection.
const (
	SheetBooks   = "Books"
	SheetMembers = "Members"
	SheetLoans   = "Loans"
	SheetReports = "Reports"
)

// Mirror pushes collection snapshots to the remote spreadsheet endpoint,
// best effort. Pushes are fire-and-forget: failures are logged and never
// retried; local state remains the source of truth for the session.
type Mirror struct {
	url    string
	client *http.Client
	log    *zap.Logger

	attempted atomic.Int64
	failed    atomic.Int64
}

// NewMirror creates a mirror client for the given endpoint. An empty URL
// disables syncing.
func NewMirror(url string, timeout time.Duration, log *zap.Logger) *Mirror {
	return &Mirror{
		url:    url,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Enabled reports whether a sync endpoint is configured.
func (m *Mirror) Enabled() bool { return m.url != "" }

// Stats returns how many pushes were attempted and how many failed since
// startup.
func (m *Mirror) Stats() (attempted, failed int64) {
	return m.attempted.Load(), m.failed.Load()
}

// PushAsync sends the rows to the named sheet on a background goroutine.
// The result is observable only through Stats and the log.
func (m *Mirror) PushAsync(sheet string, rows [][]string) {
	if !m.Enabled() {
		m.log.Warn("cloud sync skipped: script URL not configured", zap.String("sheet", sheet))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.client.Timeout)
		defer cancel()
		if err := m.Push(ctx, sheet, rows); err != nil {
			m.log.Warn("cloud sync failed", zap.String("sheet", sheet), zap.Error(err))
		}
	}()
}

// Push sends {sheetName, data} to the endpoint. The response body is
// discarded; the remote provides no acknowledgment worth reading.
func (m *Mirror) Push(ctx context.Context, sheet string, rows [][]string) error {
	m.attempted.Add(1)

	payload, err := json.Marshal(map[string]any{
		"sheetName": sheet,
		"data":      rows,
	})
	if err != nil {
		m.failed.Add(1)
		return fmt.Errorf("encode %s payload: %w", sheet, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(payload))
	if err != nil {
		m.failed.Add(1)
		return fmt.Errorf("build %s request: %w", sheet, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		m.failed.Add(1)
		return fmt.Errorf("push %s: %w", sheet, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	m.log.Debug("cloud sync ok", zap.String("sheet", sheet), zap.Int("rows", len(rows)))
	return nil
}

// CloudSnapshot is the result of a full remote pull. Nil slices mean the
// corresponding field was absent or not an array and must be ignored.
type CloudSnapshot struct {
	Books   []Book
	Members []Member
	Loans   []Loan
}

// Pull fetches the full remote state once. Fields that fail to decode as
// arrays of the expected shape are dropped, not errors; whatever local data
// stands in for them.
func (m *Mirror) Pull(ctx context.Context) (*CloudSnapshot, error) {
	if !m.Enabled() {
		return nil, fmt.Errorf("script URL not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch cloud data: %w", err)
	}
	defer resp.Body.Close()

	var raw struct {
		Books   json.RawMessage `json:"Books"`
		Members json.RawMessage `json:"Members"`
		Loans   json.RawMessage `json:"Loans"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode cloud data: %w", err)
	}

	snap := &CloudSnapshot{}
	if len(raw.Books) > 0 {
		var books []Book
		if err := json.Unmarshal(raw.Books, &books); err == nil {
			snap.Books = books
		}
	}
	if len(raw.Members) > 0 {
		var members []Member
		if err := json.Unmarshal(raw.Members, &members); err == nil {
			snap.Members = members
		}
	}
	if len(raw.Loans) > 0 {
		var loans []Loan
		if err := json.Unmarshal(raw.Loans, &loans); err == nil {
			snap.Loans = loans
		}
	}
	return snap, nil
}

// ---------------------------------------------------------------------------
// Row encoding
// ---------------------------------------------------------------------------

// The mirror sheet expects a header row of field names followed by one row
// per record, field order fixed per collection.

// BookRows encodes the catalog for the Books sheet.
func BookRows(books []Book) [][]string {
	rows := [][]string{{"id", "code", "title", "author", "publisher", "year", "category", "count", "available"}}
	for _, b := range books {
		rows = append(rows, []string{
			b.ID, b.Code, b.Title, b.Author, b.Publisher,
			strconv.Itoa(b.Year), b.Category,
			strconv.Itoa(b.Count), strconv.Itoa(b.Available),
		})
	}
	return rows
}

// MemberRows encodes the roster for the Members sheet.
func MemberRows(members []Member) [][]string {
	rows := [][]string{{"id", "nomorInduk", "name", "className", "type"}}
	for _, m := range members {
		rows = append(rows, []string{m.ID, m.RegistrationNo, m.Name, m.ClassName, string(m.Type)})
	}
	return rows
}

// LoanRows encodes the loans for the Loans sheet.
func LoanRows(loans []Loan) [][]string {
	rows := [][]string{{"id", "memberId", "memberName", "bookId", "bookTitle", "loanDate", "dueDate", "returnDate", "status", "fine"}}
	for _, l := range loans {
		rows = append(rows, []string{
			l.ID, l.MemberID, l.MemberName, l.BookID, l.BookTitle,
			l.LoanDate, l.DueDate, l.ReturnDate, string(l.Status),
			strconv.Itoa(l.Fine),
		})
	}
	return rows
}

// ReportRows encodes the report history for the Reports sheet.
func ReportRows(reports []Report) [][]string {
	rows := [][]string{{"timestamp", "librarian", "filter", "content"}}
	for _, r := range reports {
		rows = append(rows, []string{r.Timestamp, r.Librarian, r.Filter, r.Content})
	}
	return rows
}
