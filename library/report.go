package library

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DateFilter selects which loans a report covers.
type DateFilter string

const (
	FilterAll     DateFilter = "all"
	FilterDaily   DateFilter = "daily"
	FilterWeekly  DateFilter = "weekly"
	FilterMonthly DateFilter = "monthly"
)

// TopBook is one entry in the most-borrowed ranking.
type TopBook struct {
	Title string
	Count int
}

// ReportStats aggregates the circulation data fed to the narrative report.
type ReportStats struct {
	TotalBooks  int
	TotalLoans  int
	TotalLate   int
	TotalFines  int
	PopularBook string
	TopBooks    []TopBook
}

// FilterLoans applies the date and category filters to the loans. Category
// filtering goes through the books' category labels; the empty string or
// "all" selects everything.
func FilterLoans(loans []Loan, books []Book, now time.Time, df DateFilter, category string) []Loan {
	result := loans

	if category != "" && category != "all" {
		inCategory := make(map[string]bool)
		for _, b := range books {
			if b.Category == category {
				inCategory[b.ID] = true
			}
		}
		filtered := make([]Loan, 0, len(result))
		for _, l := range result {
			if inCategory[l.BookID] {
				filtered = append(filtered, l)
			}
		}
		result = filtered
	}

	switch df {
	case FilterDaily:
		today := now.Format(DateLayout)
		result = filterByDate(result, func(d time.Time, s string) bool { return s == today })
	case FilterWeekly:
		cutoff := now.AddDate(0, 0, -7)
		result = filterByDate(result, func(d time.Time, s string) bool { return !d.Before(cutoff) })
	case FilterMonthly:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		result = filterByDate(result, func(d time.Time, s string) bool { return !d.Before(first) })
	}
	return result
}

func filterByDate(loans []Loan, keep func(time.Time, string) bool) []Loan {
	out := make([]Loan, 0, len(loans))
	for _, l := range loans {
		d, err := time.Parse(DateLayout, l.LoanDate)
		if err != nil {
			continue
		}
		if keep(d, l.LoanDate) {
			out = append(out, l)
		}
	}
	return out
}

// BuildReportStats computes the aggregates for the filtered loans. Late
// counts and fines come from the display-time overdue rule, so an open
// overdue loan contributes its current computed fine.
func BuildReportStats(books []Book, loans []Loan, now time.Time, df DateFilter, category string, finePerDay int) ReportStats {
	filtered := EffectiveLoans(FilterLoans(loans, books, now, df, category), now, finePerDay)

	var stats ReportStats
	for _, b := range books {
		if category == "" || category == "all" || b.Category == category {
			stats.TotalBooks += b.Count
		}
	}
	stats.TotalLoans = len(filtered)

	counts := make(map[string]*TopBook)
	for _, l := range filtered {
		if l.Status == StatusOverdue {
			stats.TotalLate++
			stats.TotalFines += l.Fine
		}
		if tb, ok := counts[l.BookID]; ok {
			tb.Count++
		} else {
			counts[l.BookID] = &TopBook{Title: l.BookTitle, Count: 1}
		}
	}

	top := make([]TopBook, 0, len(counts))
	for _, tb := range counts {
		top = append(top, *tb)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Title < top[j].Title
	})
	if len(top) > 5 {
		top = top[:5]
	}
	stats.TopBooks = top

	stats.PopularBook = "Belum ada data"
	if len(top) > 0 {
		stats.PopularBook = top[0].Title
	}
	return stats
}

// FilterDescription renders the active filters the way they appear in the
// report header and the stored history.
func FilterDescription(df DateFilter, category string) string {
	period := "Semua Waktu"
	switch df {
	case FilterDaily:
		period = "Hari Ini"
	case FilterWeekly:
		period = "7 Hari Terakhir"
	case FilterMonthly:
		period = "Bulan Ini"
	}
	if category == "" || category == "all" {
		category = "Semua Kategori"
	}
	return fmt.Sprintf("Periode: %s, Kategori: %s", period, category)
}

// textGenerator abstracts the text-generation backend so tests can stub it.
type textGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type genaiGenerator struct {
	client *genai.Client
	model  string
}

func newGenaiGenerator(ctx context.Context, apiKey, model string) (*genaiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &genaiGenerator{client: client, model: model}, nil
}

func (g *genaiGenerator) close() error {
	// google.golang.org/genai's Client holds no resources that need
	// explicit cleanup and exposes no Close method.
	return nil
}

func (g *genaiGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// ReportGenerator produces the formal narrative circulation report.
type ReportGenerator struct {
	gen     textGenerator
	log     *zap.Logger
	appName string
}

// NewReportGenerator builds a generator backed by the Gemini API.
func NewReportGenerator(ctx context.Context, cfg *Config, log *zap.Logger) (*ReportGenerator, error) {
	if cfg.Report.APIKey == "" {
		return nil, errors.New("API Key tidak ditemukan. Setel GEMINI_API_KEY atau isi report.api_key pada konfigurasi")
	}
	gen, err := newGenaiGenerator(ctx, cfg.Report.APIKey, cfg.Report.Model)
	if err != nil {
		return nil, err
	}
	return &ReportGenerator{gen: gen, log: log, appName: cfg.AppName}, nil
}

// Close releases the underlying API client, when there is one.
func (r *ReportGenerator) Close() error {
	if c, ok := r.gen.(*genaiGenerator); ok {
		return c.close()
	}
	return nil
}

// Generate renders the prompt for the given stats, calls the model, and
// returns the cleaned plain-text narrative.
func (r *ReportGenerator) Generate(ctx context.Context, librarian, filterDesc string, stats ReportStats) (string, error) {
	prompt := buildReportPrompt(r.appName, librarian, filterDesc, stats)
	r.log.Debug("generating report", zap.String("filter", filterDesc))

	text, err := r.gen.GenerateText(ctx, prompt)
	if err != nil {
		return "", err
	}
	clean := CleanNarrative(text)
	if clean == "" {
		return "", errors.New("AI mengembalikan respon kosong")
	}
	return clean, nil
}

func buildReportPrompt(appName, librarian, filterDesc string, stats ReportStats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Buatlah laporan naratif formal untuk Perpustakaan %s.\n\n", appName)
	sb.WriteString("DATA STATISTIK:\n")
	fmt.Fprintf(&sb, "- Nama Petugas: %s\n", librarian)
	fmt.Fprintf(&sb, "- Periode Laporan: %s\n", filterDesc)
	fmt.Fprintf(&sb, "- Total Koleksi Buku: %d\n", stats.TotalBooks)
	fmt.Fprintf(&sb, "- Total Transaksi Peminjaman: %d\n", stats.TotalLoans)
	fmt.Fprintf(&sb, "- Buku Paling Banyak Dipinjam: %s\n", stats.PopularBook)
	fmt.Fprintf(&sb, "- Jumlah Siswa Terlambat Mengembalikan: %d\n", stats.TotalLate)
	fmt.Fprintf(&sb, "- Total Akumulasi Denda: Rp %d\n\n", stats.TotalFines)
	sb.WriteString("INSTRUKSI KHUSUS:\n")
	sb.WriteString("1. Gunakan bahasa Indonesia yang sangat formal, sopan, dan profesional (gaya surat resmi kedinasan).\n")
	sb.WriteString("2. Tuliskan dalam bentuk paragraf deskriptif yang mengalir, bukan daftar poin.\n")
	sb.WriteString("3. JANGAN GUNAKAN simbol markdown seperti bintang (**), pagar (#), atau strip (-) di awal kalimat. Teks harus benar-benar polos (plain text).\n")
	fmt.Fprintf(&sb, "4. Berikan judul: LAPORAN RESMI SIRKULASI PERPUSTAKAAN %s.\n", strings.ToUpper(appName))
	sb.WriteString("5. Sertakan analisis singkat mengenai minat baca siswa berdasarkan data tersebut di akhir narasi.\n")
	return sb.String()
}

// CleanNarrative strips leftover markdown markers the model sometimes emits
// despite the prompt instructions.
func CleanNarrative(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "*", "")
	s = strings.ReplaceAll(s, "#", "")
	return strings.TrimSpace(s)
}

// ClassifyReportError maps a generation failure to the user-facing message:
// credential problems, exhausted quota, or a generic retry-later note.
func ClassifyReportError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return "API Key Anda tidak valid. Silakan periksa kembali di Google AI Studio."
		case 429:
			return "Kuota penggunaan AI gratis Anda telah habis untuk saat ini."
		}
	}

	switch {
	case strings.Contains(msg, "API_KEY_INVALID"), strings.Contains(msg, "API key not valid"):
		return "API Key Anda tidak valid. Silakan periksa kembali di Google AI Studio."
	case strings.Contains(msg, "quota"), strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return "Kuota penggunaan AI gratis Anda telah habis untuk saat ini."
	default:
		return "Maaf, sistem AI sedang sibuk atau tidak merespons."
	}
}
