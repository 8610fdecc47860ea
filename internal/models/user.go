package models

import (
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User represents a student account
type User struct {
	ID          int        `json:"id" db:"id"`
	Username    string     `json:"username" db:"username"`
	Password    string     `json:"-" db:"password_hash"` // Never expose in JSON
	DisplayName string     `json:"display_name" db:"display_name"`
	GradeLevel  int        `json:"grade_level" db:"grade_level"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at" db:"last_login_at"`
	IsActive    bool       `json:"is_active" db:"is_active"`
}

// StudentID is the id activity records are keyed by.
func (u *User) StudentID() string {
	if u == nil || u.ID == 0 {
		return ""
	}
	return strconv.Itoa(u.ID)
}

// Profile is the display data cached for the signed-in student
type Profile struct {
	StudentID   string `json:"student_id"`
	DisplayName string `json:"display_name"`
	GradeLevel  int    `json:"grade_level"`
}

// AuthSession is the session state written on login
type AuthSession struct {
	StudentID string    `json:"student_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s AuthSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// CreateUserRequest represents the request to create a new student
type CreateUserRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	GradeLevel  int    `json:"grade_level"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SetPassword hashes and sets the user's password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies a password against the user's hash
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}
