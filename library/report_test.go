package library

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func reportFixtures() ([]Book, []Loan) {
	books := []Book{
		{ID: "1", Title: "Laskar Pelangi", Category: "Fiksi", Count: 5},
		{ID: "2", Title: "IPA Terpadu", Category: "Sains", Count: 40},
	}
	loans := []Loan{
		{ID: "L001", BookID: "1", BookTitle: "Laskar Pelangi", LoanDate: "2024-03-10", DueDate: "2024-03-17", Status: StatusBorrowed},
		{ID: "L002", BookID: "1", BookTitle: "Laskar Pelangi", LoanDate: "2024-02-01", DueDate: "2024-02-08", Status: StatusBorrowed},
		{ID: "L003", BookID: "2", BookTitle: "IPA Terpadu", LoanDate: "2024-03-12", DueDate: "2024-03-19", ReturnDate: "2024-03-18", Status: StatusReturned},
	}
	return books, loans
}

func TestBuildReportStats(t *testing.T) {
	books, loans := reportFixtures()
	now := mustDate(t, "2024-03-14")

	stats := BuildReportStats(books, loans, now, FilterAll, "all", 500)
	if stats.TotalBooks != 45 {
		t.Fatalf("total books: want 45, got %d", stats.TotalBooks)
	}
	if stats.TotalLoans != 3 {
		t.Fatalf("total loans: want 3, got %d", stats.TotalLoans)
	}
	// Only L002 is past due at now: 35 days late.
	if stats.TotalLate != 1 {
		t.Fatalf("late: want 1, got %d", stats.TotalLate)
	}
	if stats.TotalFines != 35*500 {
		t.Fatalf("fines: want %d, got %d", 35*500, stats.TotalFines)
	}
	if stats.PopularBook != "Laskar Pelangi" {
		t.Fatalf("popular: got %s", stats.PopularBook)
	}
	if len(stats.TopBooks) != 2 || stats.TopBooks[0].Count != 2 {
		t.Fatalf("top books wrong: %+v", stats.TopBooks)
	}
}

func TestBuildReportStatsCategoryFilter(t *testing.T) {
	books, loans := reportFixtures()
	now := mustDate(t, "2024-03-14")

	stats := BuildReportStats(books, loans, now, FilterAll, "Sains", 500)
	if stats.TotalBooks != 40 {
		t.Fatalf("category total books: want 40, got %d", stats.TotalBooks)
	}
	if stats.TotalLoans != 1 || stats.PopularBook != "IPA Terpadu" {
		t.Fatalf("category loans wrong: %+v", stats)
	}
}

func TestFilterLoansByDate(t *testing.T) {
	books, loans := reportFixtures()
	now := mustDate(t, "2024-03-14")

	weekly := FilterLoans(loans, books, now, FilterWeekly, "all")
	if len(weekly) != 2 {
		t.Fatalf("weekly: want 2, got %d", len(weekly))
	}

	monthly := FilterLoans(loans, books, now, FilterMonthly, "all")
	if len(monthly) != 2 {
		t.Fatalf("monthly: want 2, got %d", len(monthly))
	}

	daily := FilterLoans(loans, books, now, FilterDaily, "all")
	if len(daily) != 0 {
		t.Fatalf("daily: want 0, got %d", len(daily))
	}
}

func TestFilterDescription(t *testing.T) {
	got := FilterDescription(FilterAll, "all")
	if got != "Periode: Semua Waktu, Kategori: Semua Kategori" {
		t.Fatalf("got %q", got)
	}
	got = FilterDescription(FilterMonthly, "Fiksi")
	if got != "Periode: Bulan Ini, Kategori: Fiksi" {
		t.Fatalf("got %q", got)
	}
}

type stubGenerator struct {
	prompt string
	text   string
	err    error
}

func (s *stubGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.text, s.err
}

func TestGenerateCleansMarkdown(t *testing.T) {
	stub := &stubGenerator{text: "**LAPORAN RESMI**\n\n# Pendahuluan\nNarasi *penting* di sini."}
	gen := &ReportGenerator{gen: stub, log: zap.NewNop(), appName: "UPT SMPN 4 Mappedeceng"}

	stats := ReportStats{TotalBooks: 45, TotalLoans: 3, TotalLate: 1, TotalFines: 17500, PopularBook: "Laskar Pelangi"}
	text, err := gen.Generate(context.Background(), "Ibu Ani", "Periode: Semua Waktu, Kategori: Semua Kategori", stats)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if strings.ContainsAny(text, "*#") {
		t.Fatalf("markdown not stripped: %q", text)
	}

	// Prompt carries the aggregated statistics and the filter.
	for _, want := range []string{"Ibu Ani", "Total Koleksi Buku: 45", "Laskar Pelangi", "Rp 17500", "Periode: Semua Waktu"} {
		if !strings.Contains(stub.prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, stub.prompt)
		}
	}
}

func TestGenerateEmptyResponse(t *testing.T) {
	gen := &ReportGenerator{gen: &stubGenerator{text: "  "}, log: zap.NewNop(), appName: "X"}
	if _, err := gen.Generate(context.Background(), "Ani", "f", ReportStats{}); err == nil {
		t.Fatalf("expected error on empty response")
	}
}

func TestGeneratePropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	gen := &ReportGenerator{gen: &stubGenerator{err: wantErr}, log: zap.NewNop(), appName: "X"}
	if _, err := gen.Generate(context.Background(), "Ani", "f", ReportStats{}); !errors.Is(err, wantErr) {
		t.Fatalf("want %v, got %v", wantErr, err)
	}
}

func TestClassifyReportError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{errors.New("googleapi: Error 400: API_KEY_INVALID"), "API Key"},
		{errors.New("API key not valid. Please pass a valid API key."), "API Key"},
		{errors.New("rpc error: RESOURCE_EXHAUSTED"), "Kuota"},
		{errors.New("quota exceeded for requests"), "Kuota"},
		{errors.New("connection reset by peer"), "sibuk"},
	}
	for _, c := range cases {
		got := ClassifyReportError(c.err)
		if !strings.Contains(got, c.want) {
			t.Fatalf("classify(%v): want substring %q, got %q", c.err, c.want, got)
		}
	}
	if ClassifyReportError(nil) != "" {
		t.Fatalf("nil error must classify to empty message")
	}
}
