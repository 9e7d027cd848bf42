package library

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("username atau password salah")

type account struct {
	user User
	hash []byte
}

func mustHash(password string) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}

// Two fixed demo accounts, the same pair the school deployment ships with.
var accounts = []account{
	{
		user: User{ID: "1", Name: "Petugas Perpustakaan", Username: "admin", Role: RoleAdmin},
		hash: mustHash("admin"),
	},
	{
		user: User{ID: "2", Name: "Siswa / Guru", Username: "user", Role: RoleUser},
		hash: mustHash("user"),
	},
}

// Authenticate verifies the username/password pair and returns the matching
// user identity and role.
func Authenticate(username, password string) (*User, error) {
	for i := range accounts {
		if accounts[i].user.Username != username {
			continue
		}
		if err := bcrypt.CompareHashAndPassword(accounts[i].hash, []byte(password)); err != nil {
			return nil, ErrInvalidCredentials
		}
		u := accounts[i].user
		return &u, nil
	}
	return nil, ErrInvalidCredentials
}
