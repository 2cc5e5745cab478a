package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"devicelab/internal/domain"
	"devicelab/internal/pkg/apperr"
	"devicelab/internal/session"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]{4,20}$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Service implements the auth gateway: registration, login, logout,
// password change, and token resolution for the middleware.
type Service struct {
	users    UserRepository
	tokens   TokenService
	sessions session.Store
}

func NewService(users UserRepository, tokens TokenService, sessions session.Store) *Service {
	return &Service{users: users, tokens: tokens, sessions: sessions}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	if !usernamePattern.MatchString(req.Username) {
		return nil, apperr.Validationf("username must be 4-20 letters or digits")
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.RealName) == "" {
		return nil, apperr.Validationf("real name is required")
	}
	if req.Email != "" && !emailPattern.MatchString(req.Email) {
		return nil, apperr.Validationf("email %q is malformed", req.Email)
	}

	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return nil, apperr.Validationf("username %q is already taken", req.Username)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := domain.Role(req.Role)
	if !domain.ValidRole(role) {
		role = domain.RoleStudent
	}

	now := time.Now()
	u := &domain.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		RealName:     strings.TrimSpace(req.RealName),
		Email:        req.Email,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	u.PasswordHash = ""
	return u, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	if username == "" || password == "" {
		return "", nil, apperr.Authf("username and password are required")
	}

	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil, apperr.Authf("unknown username or wrong password")
	}
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, apperr.Authf("unknown username or wrong password")
	}
	if !u.Active {
		return "", nil, apperr.Authf("account is disabled")
	}

	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		return "", nil, err
	}

	token, jti, err := s.tokens.GenerateToken(u.ID, string(u.Role))
	if err != nil {
		return "", nil, err
	}
	s.sessions.Put(jti, session.Session{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		IssuedAt: now,
	})

	u.PasswordHash = ""
	return token, u, nil
}

// Authenticate resolves a bearer token to its live session. A valid
// signature is not enough: the JTI must still be present in the store,
// so logged-out tokens fail here.
func (s *Service) Authenticate(token string) (session.Session, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return session.Session{}, apperr.Authf("invalid or expired token")
	}
	sess, ok := s.sessions.Get(claims.ID)
	if !ok {
		return session.Session{}, apperr.Authf("session has been revoked or expired")
	}
	return sess, nil
}

// Authorize authenticates and additionally requires a role.
func (s *Service) Authorize(token string, required domain.Role) (session.Session, error) {
	sess, err := s.Authenticate(token)
	if err != nil {
		return session.Session{}, err
	}
	if sess.Role != required {
		return session.Session{}, apperr.Permissionf("requires role %s", required)
	}
	return sess, nil
}

func (s *Service) Logout(token string) error {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return apperr.Authf("invalid token")
	}
	if _, ok := s.sessions.Get(claims.ID); !ok {
		return apperr.Authf("session already ended")
	}
	s.sessions.Remove(claims.ID)
	return nil
}

// ChangePassword verifies the old password, stores the new hash and ends
// the current session so the user has to log in again.
func (s *Service) ChangePassword(ctx context.Context, token, oldPassword, newPassword string) error {
	sess, err := s.Authenticate(token)
	if err != nil {
		return err
	}

	if oldPassword == "" {
		return apperr.Validationf("old password is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if oldPassword == newPassword {
		return apperr.Validationf("new password must differ from the old one")
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
		return apperr.Authf("old password is wrong")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.UpdatedAt = time.Now()
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}

	return s.Logout(token)
}

func validatePassword(p string) error {
	if len(p) < 6 || len(p) > 72 {
		return apperr.Validationf("password must be 6-72 characters")
	}
	var hasLetter, hasDigit bool
	for _, r := range p {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	if !hasLetter || !hasDigit {
		return apperr.Validationf("password must mix letters and digits")
	}
	return nil
}
