package library

// Seed data returned by the store when a slot has never been written, and
// loaded into a fresh database by cmd/seed.

// SeedBooks returns the initial catalog.
func SeedBooks() []Book {
	return []Book{
		{ID: "1", Code: "B001", Title: "Laskar Pelangi", Author: "Andrea Hirata", Publisher: "Bentang Pustaka", Year: 2005, Category: "Fiksi", Count: 5, Available: 4},
		{ID: "2", Code: "B002", Title: "IPA Terpadu Kelas 8", Author: "Tim Abdi Guru", Publisher: "Erlangga", Year: 2021, Category: "Sains", Count: 40, Available: 40},
		{ID: "3", Code: "B003", Title: "Matematika Mahir", Author: "Sutrisno", Publisher: "Yudhistira", Year: 2020, Category: "Matematika", Count: 35, Available: 32},
		{ID: "4", Code: "B004", Title: "Bumi", Author: "Tere Liye", Publisher: "Gramedia", Year: 2014, Category: "Fiksi", Count: 10, Available: 9},
	}
}

// SeedMembers returns the initial roster.
func SeedMembers() []Member {
	return []Member{
		{ID: "M001", RegistrationNo: "12345", Name: "Budi Santoso", ClassName: "8-A", Type: MemberStudent},
		{ID: "M002", RegistrationNo: "12346", Name: "Siti Aminah", ClassName: "9-B", Type: MemberStudent},
		{ID: "M003", RegistrationNo: "19800101", Name: "Bp. Ahmad", ClassName: "Guru Mapel", Type: MemberTeacher},
	}
}

// SeedLoans returns the initial open loan.
func SeedLoans() []Loan {
	return []Loan{
		{
			ID:         "L001",
			MemberID:   "M001",
			MemberName: "Budi Santoso",
			BookID:     "1",
			BookTitle:  "Laskar Pelangi",
			LoanDate:   "2023-10-01",
			DueDate:    "2023-10-08",
			Status:     StatusBorrowed,
			Fine:       0,
		},
	}
}
