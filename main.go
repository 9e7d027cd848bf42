package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"epustaka/library"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

var (
	cfgPath string
	debug   bool

	logger *zap.Logger
	cfg    *library.Config
	store  *library.Store
	mgr    *library.Manager

	currentUser *library.User
)

var rootCmd = &cobra.Command{
	Use:   "epustaka",
	Short: "School library circulation manager",
	Long:  "epustaka manages the book catalog, member roster, and loan circulation,\nwith a local SQLite store mirrored best-effort to a cloud spreadsheet.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if debug {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		if logger, err = zapCfg.Build(); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if cfg, err = library.LoadConfig(cfgPath); err != nil {
			return err
		}
		if store, err = library.NewStore(cfg.DatabasePath); err != nil {
			return err
		}
		mirror := library.NewMirror(cfg.Mirror.ScriptURL, cfg.MirrorTimeout(), logger)
		if mgr, err = library.NewManager(cfg, store, mirror, logger); err != nil {
			store.Close()
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			store.Close()
		}
		if logger != nil {
			logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Local data first, then a one-shot cloud pull; pull failure is
		// logged inside SyncFromCloud and the local data stands.
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.MirrorTimeout())
		mgr.SyncFromCloud(ctx)
		cancel()
		return runShell()
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the AI narrative circulation report",
	RunE: func(cmd *cobra.Command, args []string) error {
		librarian, _ := cmd.Flags().GetString("librarian")
		period, _ := cmd.Flags().GetString("period")
		category, _ := cmd.Flags().GetString("category")
		return generateReport(cmd.Context(), librarian, library.DateFilter(period), category)
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull the cloud snapshot, then push every collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.MirrorTimeout())
		defer cancel()
		if err := mgr.SyncFromCloud(ctx); err != nil {
			fmt.Printf("Pull failed (%v), pushing local data anyway.\n", err)
		}
		if err := mgr.PushAll(ctx); err != nil {
			return err
		}
		fmt.Println("Sync complete.")
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute book availability from open loans",
	RunE: func(cmd *cobra.Command, args []string) error {
		mismatches, err := mgr.ReconcileInventory()
		if err != nil {
			return err
		}
		if len(mismatches) == 0 {
			fmt.Println("Inventory consistent: availability matches open loans.")
			return nil
		}
		for _, m := range mismatches {
			fmt.Println("repaired:", m)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collection totals",
	Run: func(cmd *cobra.Command, args []string) {
		printStats()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "epustaka.yml", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	reportCmd.Flags().String("librarian", "Admin Perpustakaan", "reporting librarian's name")
	reportCmd.Flags().String("period", "all", "date filter: all, daily, weekly, monthly")
	reportCmd.Flags().String("category", "all", "book category filter")

	rootCmd.AddCommand(reportCmd, syncCmd, reconcileCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Interactive shell
// ---------------------------------------------------------------------------

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}

func login(sc *bufio.Scanner) bool {
	for attempts := 0; attempts < 3; attempts++ {
		fmt.Print("Username: ")
		if !sc.Scan() {
			return false
		}
		username := strings.TrimSpace(sc.Text())

		password, err := readPassword("Password: ")
		if err != nil {
			fmt.Printf("Error reading password: %v\n", err)
			return false
		}

		user, err := library.Authenticate(username, password)
		if err != nil {
			fmt.Printf("Login gagal: %v\n", err)
			continue
		}
		currentUser = user
		fmt.Printf("Selamat datang, %s (%s)\n", user.Name, user.Role)
		return true
	}
	return false
}

func requireAdmin() bool {
	if currentUser == nil || currentUser.Role != library.RoleAdmin {
		fmt.Println("Perintah ini hanya untuk admin.")
		return false
	}
	return true
}

func runShell() error {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Printf("Welcome to %s\n", cfg.AppName)
	if !login(scanner) {
		return errors.New("login failed")
	}

	fmt.Println()
	fmt.Println("Available commands:")
	fmt.Println("  Books: add book, list books, edit book, delete book")
	fmt.Println("  Members: add member, list members, delete member")
	fmt.Println("  Circulation: loan, return, list loans, reconcile")
	fmt.Println("  Reports: report, history, stats")
	fmt.Println("  System: sync, exit")

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		cmd := strings.TrimSpace(scanner.Text())

		switch cmd {
		case "add book":
			if requireAdmin() {
				handleAddBook(scanner)
			}
		case "list books":
			handleListBooks()
		case "edit book":
			if requireAdmin() {
				handleEditBook(scanner)
			}
		case "delete book":
			if requireAdmin() {
				handleDeleteBook(scanner)
			}
		case "add member":
			if requireAdmin() {
				handleAddMember(scanner)
			}
		case "list members":
			if requireAdmin() {
				handleListMembers()
			}
		case "delete member":
			if requireAdmin() {
				handleDeleteMember(scanner)
			}
		case "loan":
			if requireAdmin() {
				handleOpenLoan(scanner)
			}
		case "return":
			if requireAdmin() {
				handleReturn(scanner)
			}
		case "list loans":
			handleListLoans()
		case "reconcile":
			if requireAdmin() {
				handleReconcile()
			}
		case "report":
			if requireAdmin() {
				handleReport(scanner)
			}
		case "history":
			if requireAdmin() {
				handleReportHistory()
			}
		case "stats":
			printStats()
		case "sync":
			if requireAdmin() {
				handleSync()
			}
		case "exit":
			fmt.Println("Sampai jumpa!")
			return nil
		case "":
		default:
			fmt.Println("Unknown command. Type one of the available commands listed above.")
		}
	}
	return nil
}

func ask(sc *bufio.Scanner, prompt string) (string, bool) {
	fmt.Print(prompt)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func askInt(sc *bufio.Scanner, prompt string) (int, bool) {
	s, ok := ask(sc, prompt)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		fmt.Printf("Invalid number: %s\n", s)
		return 0, false
	}
	return n, true
}

func handleAddBook(sc *bufio.Scanner) {
	var b library.Book
	var ok bool
	if b.Code, ok = ask(sc, "Code: "); !ok {
		return
	}
	if b.Title, ok = ask(sc, "Title: "); !ok {
		return
	}
	if b.Author, ok = ask(sc, "Author: "); !ok {
		return
	}
	if b.Publisher, ok = ask(sc, "Publisher: "); !ok {
		return
	}
	if b.Year, ok = askInt(sc, "Year: "); !ok {
		return
	}
	if b.Category, ok = ask(sc, "Category: "); !ok {
		return
	}
	if b.Count, ok = askInt(sc, "Copies: "); !ok {
		return
	}
	if b.Title == "" || b.Code == "" {
		fmt.Println("Code and title are required.")
		return
	}

	added, err := mgr.AddBook(b)
	if err != nil {
		fmt.Printf("Error adding book: %v\n", err)
		return
	}
	fmt.Printf("Added book %s (ID %s), %d copies.\n", added.Title, added.ID, added.Count)
}

func handleListBooks() {
	books := mgr.Books()
	if len(books) == 0 {
		fmt.Println("No books in library.")
		return
	}
	fmt.Printf("%-5s %-6s %-35s %-22s %-12s %6s %6s %6s\n", "ID", "Code", "Title", "Author", "Category", "Year", "Total", "Avail")
	fmt.Println(strings.Repeat("-", 105))
	for _, b := range books {
		fmt.Printf("%-5s %-6s %-35s %-22s %-12s %6d %6d %6d\n",
			b.ID, b.Code, truncate(b.Title, 35), truncate(b.Author, 22), truncate(b.Category, 12), b.Year, b.Count, b.Available)
	}
}

func handleEditBook(sc *bufio.Scanner) {
	id, ok := ask(sc, "Book ID: ")
	if !ok {
		return
	}
	book, err := mgr.FindBook(id)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	updated := *book

	if v, ok := ask(sc, fmt.Sprintf("Title [%s]: ", book.Title)); ok && v != "" {
		updated.Title = v
	}
	if v, ok := ask(sc, fmt.Sprintf("Author [%s]: ", book.Author)); ok && v != "" {
		updated.Author = v
	}
	if v, ok := ask(sc, fmt.Sprintf("Category [%s]: ", book.Category)); ok && v != "" {
		updated.Category = v
	}
	if v, ok := ask(sc, fmt.Sprintf("Copies [%d]: ", book.Count)); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fmt.Printf("Invalid number: %s\n", v)
			return
		}
		updated.Count = n
	}

	if err := mgr.EditBook(updated); err != nil {
		fmt.Printf("Error updating book: %v\n", err)
		return
	}
	fmt.Printf("Book %s updated.\n", id)
}

func handleDeleteBook(sc *bufio.Scanner) {
	id, ok := ask(sc, "Book ID: ")
	if !ok {
		return
	}
	if err := mgr.DeleteBook(id); err != nil {
		fmt.Printf("Error deleting book: %v\n", err)
		return
	}
	fmt.Printf("Book %s deleted.\n", id)
}

func handleAddMember(sc *bufio.Scanner) {
	var m library.Member
	var ok bool
	if m.RegistrationNo, ok = ask(sc, "Registration number: "); !ok {
		return
	}
	if m.Name, ok = ask(sc, "Name: "); !ok {
		return
	}
	if m.ClassName, ok = ask(sc, "Class/position: "); !ok {
		return
	}
	typ, ok := ask(sc, "Type (siswa/guru): ")
	if !ok {
		return
	}
	switch strings.ToLower(typ) {
	case "guru":
		m.Type = library.MemberTeacher
	default:
		m.Type = library.MemberStudent
	}
	if m.Name == "" {
		fmt.Println("Name is required.")
		return
	}

	added, err := mgr.AddMember(m)
	if err != nil {
		fmt.Printf("Error adding member: %v\n", err)
		return
	}
	fmt.Printf("Added member '%s' with ID %s\n", added.Name, added.ID)
}

func handleListMembers() {
	members := mgr.Members()
	if len(members) == 0 {
		fmt.Println("No members registered.")
		return
	}
	fmt.Printf("%-6s %-12s %-28s %-14s %-8s\n", "ID", "Reg. No", "Name", "Class", "Type")
	fmt.Println(strings.Repeat("-", 72))
	for _, m := range members {
		fmt.Printf("%-6s %-12s %-28s %-14s %-8s\n", m.ID, m.RegistrationNo, truncate(m.Name, 28), truncate(m.ClassName, 14), m.Type)
	}
}

func handleDeleteMember(sc *bufio.Scanner) {
	id, ok := ask(sc, "Member ID: ")
	if !ok {
		return
	}
	if err := mgr.DeleteMember(id); err != nil {
		fmt.Printf("Error deleting member: %v\n", err)
		return
	}
	fmt.Printf("Member %s deleted.\n", id)
}

func handleOpenLoan(sc *bufio.Scanner) {
	memberID, ok := ask(sc, "Member ID: ")
	if !ok {
		return
	}
	bookID, ok := ask(sc, "Book ID: ")
	if !ok {
		return
	}
	loanDate, ok := ask(sc, "Loan date (YYYY-MM-DD, empty = today): ")
	if !ok {
		return
	}
	dueDate, ok := ask(sc, fmt.Sprintf("Due date (YYYY-MM-DD, empty = +%d days): ", cfg.Circulation.LoanPeriodDays))
	if !ok {
		return
	}

	loan, err := mgr.OpenLoan(memberID, bookID, loanDate, dueDate)
	if err != nil {
		fmt.Printf("Error opening loan: %v\n", err)
		return
	}
	fmt.Printf("Loan %s: '%s' to %s, due %s.\n", loan.ID, loan.BookTitle, loan.MemberName, loan.DueDate)
}

func handleReturn(sc *bufio.Scanner) {
	id, ok := ask(sc, "Loan ID: ")
	if !ok {
		return
	}
	if err := mgr.ReturnLoan(id); err != nil {
		fmt.Printf("Error returning loan: %v\n", err)
		return
	}
	for _, l := range mgr.Loans() {
		if l.ID == id {
			if l.Fine > 0 {
				fmt.Printf("Loan %s returned. Fine: Rp %d\n", id, l.Fine)
			} else {
				fmt.Printf("Loan %s returned, no fine.\n", id)
			}
			return
		}
	}
	fmt.Printf("Loan %s not found, nothing to do.\n", id)
}

func handleListLoans() {
	loans := mgr.LoanViews()
	if len(loans) == 0 {
		fmt.Println("No loans recorded.")
		return
	}
	fmt.Printf("%-6s %-22s %-30s %-11s %-11s %-11s %-10s %10s\n",
		"ID", "Member", "Book", "Loaned", "Due", "Returned", "Status", "Fine")
	fmt.Println(strings.Repeat("-", 118))
	for _, l := range loans {
		fine := "-"
		if l.Fine > 0 {
			fine = fmt.Sprintf("Rp %d", l.Fine)
		}
		fmt.Printf("%-6s %-22s %-30s %-11s %-11s %-11s %-10s %10s\n",
			l.ID, truncate(l.MemberName, 22), truncate(l.BookTitle, 30),
			l.LoanDate, l.DueDate, l.ReturnDate, l.Status, fine)
	}
}

func handleReconcile() {
	mismatches, err := mgr.ReconcileInventory()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(mismatches) == 0 {
		fmt.Println("Inventory consistent: availability matches open loans.")
		return
	}
	for _, m := range mismatches {
		fmt.Println("repaired:", m)
	}
}

func handleReport(sc *bufio.Scanner) {
	librarian, ok := ask(sc, "Reporting librarian [Admin Perpustakaan]: ")
	if !ok {
		return
	}
	if librarian == "" {
		librarian = "Admin Perpustakaan"
	}
	period, ok := ask(sc, "Period (all/daily/weekly/monthly) [all]: ")
	if !ok {
		return
	}
	if period == "" {
		period = "all"
	}
	category, ok := ask(sc, "Category [all]: ")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := generateReport(ctx, librarian, library.DateFilter(period), category); err != nil {
		fmt.Printf("Error: %v\n", err)
	}
}

func generateReport(ctx context.Context, librarian string, period library.DateFilter, category string) error {
	stats := library.BuildReportStats(mgr.Books(), mgr.Loans(), time.Now(), period, category, cfg.Circulation.FinePerDay)
	filterDesc := library.FilterDescription(period, category)

	gen, err := library.NewReportGenerator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer gen.Close()

	fmt.Println("Menyusun laporan...")
	text, err := gen.Generate(ctx, librarian, filterDesc, stats)
	if err != nil {
		logger.Error("report generation failed", zap.Error(err))
		fmt.Println(library.ClassifyReportError(err))
		return nil
	}

	fmt.Println()
	fmt.Println(text)
	fmt.Println()

	report := library.Report{
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		Librarian: librarian,
		Filter:    filterDesc,
		Content:   text,
	}
	if err := mgr.SaveReport(report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	fmt.Println("Laporan tersimpan dan disinkronkan ke cloud.")
	return nil
}

func handleReportHistory() {
	reports, err := mgr.ReportHistory()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(reports) == 0 {
		fmt.Println("No reports generated yet.")
		return
	}
	for i, r := range reports {
		fmt.Printf("%2d. %s | %s | %s\n", i+1, r.Timestamp, r.Librarian, r.Filter)
	}
}

func handleSync() {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.MirrorTimeout())
	defer cancel()
	if err := mgr.PushAll(ctx); err != nil {
		fmt.Printf("Sync error: %v\n", err)
		return
	}
	fmt.Println("All collections pushed to cloud.")
}

func printStats() {
	s := mgr.Stats()
	fmt.Printf("Total copies:     %d\n", s.TotalBooks)
	fmt.Printf("Available copies: %d\n", s.AvailableBooks)
	fmt.Printf("Borrowed copies:  %d\n", s.BorrowedBooks)
	fmt.Printf("Members:          %d\n", s.TotalMembers)
	attempted, failed := mgr.MirrorStats()
	fmt.Printf("Cloud pushes:     %d attempted, %d failed\n", attempted, failed)
}

func truncate(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
