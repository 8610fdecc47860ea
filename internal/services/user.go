// internal/services/user.go
package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tahcohcat/starpath-web/internal/database"
	"github.com/tahcohcat/starpath-web/internal/logger"
	"github.com/tahcohcat/starpath-web/internal/models"
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidUser        = errors.New("invalid user")
)

type UserService struct {
	db *database.DB
}

func NewUserService(db *database.DB) *UserService {
	return &UserService{db: db}
}

// CreateUser creates a new student account
func (s *UserService) CreateUser(req *models.CreateUserRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 || len(req.Username) > 20 {
		return nil, fmt.Errorf("%w: username must be 3-20 characters", ErrInvalidUser)
	}
	if len(req.Password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidUser)
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		req.DisplayName = req.Username
	}

	if exists, err := s.UsernameExists(req.Username); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrUsernameTaken
	}

	user := &models.User{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		GradeLevel:  req.GradeLevel,
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO users (username, password_hash, display_name, grade_level, created_at, updated_at, is_active)
		VALUES (:username, :password_hash, :display_name, :grade_level, :created_at, :updated_at, :is_active)
	`

	result, err := s.db.NamedExec(query, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user ID: %w", err)
	}

	user.ID = int(id)
	return user, nil
}

// AuthenticateUser validates login credentials and returns the user
func (s *UserService) AuthenticateUser(req *models.LoginRequest) (*models.User, error) {
	user, err := s.GetUserByUsername(req.Username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.CheckPassword(req.Password) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	// Update last login time
	if err := s.UpdateLastLogin(user.ID); err != nil {
		// Non-fatal error, just log it
		logger.New().With("user_id", user.ID).WithError(err).Warn("failed to update last login")
	}

	return user, nil
}

// GetUserByID retrieves a user by their ID
func (s *UserService) GetUserByID(id int) (*models.User, error) {
	var user models.User
	query := `SELECT id, username, display_name, grade_level, created_at, updated_at, last_login_at, is_active
			  FROM users WHERE id = ?`

	err := s.db.Get(&user, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by their username
func (s *UserService) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	query := `SELECT id, username, password_hash, display_name, grade_level, created_at, updated_at, last_login_at, is_active
			  FROM users WHERE username = ?`

	err := s.db.Get(&user, query, strings.TrimSpace(username))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// UsernameExists checks if a username is already taken
func (s *UserService) UsernameExists(username string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE username = ?`
	err := s.db.Get(&count, query, username)
	return count > 0, err
}

// UpdateLastLogin updates the user's last login timestamp
func (s *UserService) UpdateLastLogin(userID int) error {
	query := `UPDATE users SET last_login_at = ? WHERE id = ?`
	_, err := s.db.Exec(query, time.Now(), userID)
	return err
}

// UpdateProfile changes the display name and grade level
func (s *UserService) UpdateProfile(userID int, displayName string, gradeLevel int) error {
	if strings.TrimSpace(displayName) == "" {
		return fmt.Errorf("%w: display name is required", ErrInvalidUser)
	}
	query := `UPDATE users SET display_name = ?, grade_level = ?, updated_at = ? WHERE id = ?`
	_, err := s.db.Exec(query, displayName, gradeLevel, time.Now(), userID)
	return err
}

// ChangePassword allows students to change their password
func (s *UserService) ChangePassword(userID int, currentPassword, newPassword string) error {
	var user models.User
	query := `SELECT password_hash FROM users WHERE id = ?`
	if err := s.db.Get(&user, query, userID); err != nil {
		return ErrUserNotFound
	}

	if !user.CheckPassword(currentPassword) {
		return ErrInvalidCredentials
	}
	if len(newPassword) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidUser)
	}

	if err := user.SetPassword(newPassword); err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	updateQuery := `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`
	_, err := s.db.Exec(updateQuery, user.Password, time.Now(), userID)
	return err
}
