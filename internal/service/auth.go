package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/bnema/mediasrv/internal/domain"
	"github.com/bnema/mediasrv/internal/port"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("expired token")
	ErrInvalidCreds    = errors.New("invalid credentials")
	ErrUserExists      = errors.New("user already exists")
	ErrWeakPassword    = errors.New("password does not meet requirements")
	ErrInvalidUsername = errors.New("invalid username")
)

const tokenLifetime = 7 * 24 * time.Hour

// dummyHash is compared against when the username is unknown so both paths
// pay the bcrypt cost.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("mediasrv-dummy-password"), bcrypt.MinCost)

type AuthService struct {
	store     port.UserStore
	secretKey []byte
	now       func() time.Time
}

func NewAuthService(store port.UserStore, secretKey string) *AuthService {
	return &AuthService{
		store:     store,
		secretKey: []byte(secretKey),
		now:       time.Now,
	}
}

func (s *AuthService) HasUser() (bool, error) {
	return s.store.HasUser()
}

func (s *AuthService) CreateUser(username, password string) error {
	if err := validateUsername(username); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidUsername, err)
	}
	if err := validatePasswordStrength(password); err != nil {
		return fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}

	if _, err := s.store.GetUser(username); err == nil {
		return ErrUserExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.CreateUser(username, string(hash))
}

// Authenticate checks a username/password pair and returns the user.
func (s *AuthService) Authenticate(username, password string) (*domain.User, error) {
	user, err := s.store.GetUser(username)
	if err != nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCreds
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCreds
	}
	return user, nil
}

// IssueToken returns "<unix>:<userID>:<hmac>" for user.
func (s *AuthService) IssueToken(user *domain.User) string {
	payload := strconv.FormatInt(s.now().Unix(), 10) + ":" + strconv.FormatInt(user.ID, 10)
	return payload + ":" + s.sign(payload)
}

func (s *AuthService) ValidateToken(token string) (*domain.User, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}

	payload := parts[0] + ":" + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(s.sign(payload))) {
		return nil, ErrInvalidToken
	}

	issued, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if s.now().After(time.Unix(issued, 0).Add(tokenLifetime)) {
		return nil, ErrExpiredToken
	}

	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

func (s *AuthService) ChangePassword(username, oldPassword, newPassword string) error {
	user, err := s.Authenticate(username, oldPassword)
	if err != nil {
		return err
	}
	if err := validatePasswordStrength(newPassword); err != nil {
		return fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpdatePassword(user.ID, string(hash))
}

func (s *AuthService) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(payload))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

func validateUsername(username string) error {
	if len(username) < 3 {
		return fmt.Errorf("must be at least 3 characters")
	}
	if len(username) > 50 {
		return fmt.Errorf("must be at most 50 characters")
	}
	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
			return fmt.Errorf("must contain only letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("must be at least 8 characters")
	}

	var hasLetter, hasNumber bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsNumber(r):
			hasNumber = true
		}
	}
	if !hasLetter || !hasNumber {
		return fmt.Errorf("must contain at least one letter and one number")
	}
	return nil
}
