package library

// Role is the access level granted to a logged-in user.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// MemberType distinguishes students from teachers on the roster.
type MemberType string

const (
	MemberStudent MemberType = "Siswa"
	MemberTeacher MemberType = "Guru"
)

// LoanStatus tracks a loan through its lifecycle. The values match the
// labels the spreadsheet mirror expects.
type LoanStatus string

const (
	StatusBorrowed LoanStatus = "Dipinjam"
	StatusReturned LoanStatus = "Kembali"
	StatusOverdue  LoanStatus = "Terlambat"
)

// User is an authenticated operator of the application.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Book represents one catalog entry. Count is the number of copies owned,
// Available the copies currently on the shelf; 0 <= Available <= Count.
type Book struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
	Year      int    `json:"year"`
	Category  string `json:"category"`
	Count     int    `json:"count"`
	Available int    `json:"available"`
}

// Member is a registered library member.
type Member struct {
	ID             string     `json:"id"`
	RegistrationNo string     `json:"nomorInduk"`
	Name           string     `json:"name"`
	ClassName      string     `json:"className"`
	Type           MemberType `json:"type"`
}

// Loan is one circulation transaction. MemberName and BookTitle are
// snapshots taken when the loan is opened; they do not follow later edits
// or deletions of the referenced member/book. Dates are stored as
// YYYY-MM-DD strings, the format the mirror sheet uses.
type Loan struct {
	ID         string     `json:"id"`
	MemberID   string     `json:"memberId"`
	MemberName string     `json:"memberName"`
	BookID     string     `json:"bookId"`
	BookTitle  string     `json:"bookTitle"`
	LoanDate   string     `json:"loanDate"`
	DueDate    string     `json:"dueDate"`
	ReturnDate string     `json:"returnDate,omitempty"`
	Status     LoanStatus `json:"status"`
	Fine       int        `json:"fine"`
}

// Report is one generated narrative report kept in the capped history.
type Report struct {
	Timestamp string `json:"timestamp"`
	Librarian string `json:"librarian"`
	Filter    string `json:"filter"`
	Content   string `json:"content"`
}

// DashboardStats summarizes the current collections for display.
type DashboardStats struct {
	TotalBooks     int `json:"totalBooks"`
	AvailableBooks int `json:"availableBooks"`
	BorrowedBooks  int `json:"borrowedBooks"`
	TotalMembers   int `json:"totalMembers"`
}
