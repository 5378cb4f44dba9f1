package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/storage"
	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/pkg/logger"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordLength  = 72
	invalidCredentials = "invalid email or password"
)

// Session is the result of a successful register or login.
type Session struct {
	User      user.User `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Registration holds the fields of a new account.
type Registration struct {
	Email    string
	Password string
	FullName string
	Role     string
}

// ProfileUpdate carries optional profile changes; nil fields are left alone.
type ProfileUpdate struct {
	FullName  *string
	Phone     *string
	AvatarURL *string
}

// Service manages user accounts and sessions.
type Service struct {
	store       storage.UserStore
	tokens      *TokenIssuer
	adminEmails func(string) bool
	validate    *validator.Validate
	cost        int
	log         *logger.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithAdminEmails lets the listed emails register as admins.
func WithAdminEmails(isAdmin func(email string) bool) Option {
	return func(s *Service) { s.adminEmails = isAdmin }
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// New constructs an account service.
func New(store storage.UserStore, tokens *TokenIssuer, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	s := &Service{
		store:       store,
		tokens:      tokens,
		adminEmails: func(string) bool { return false },
		validate:    validator.New(),
		cost:        bcrypt.DefaultCost,
		log:         log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and opens a session for it.
func (s *Service) Register(ctx context.Context, reg Registration) (Session, error) {
	email := normalizeEmail(reg.Email)
	if err := s.validate.Var(email, "required,email,max=254"); err != nil {
		return Session{}, apperrors.InvalidInput("a valid email is required")
	}
	if err := checkPassword(reg.Password); err != nil {
		return Session{}, err
	}
	name := strings.TrimSpace(reg.FullName)
	if name == "" {
		return Session{}, apperrors.InvalidInput("full_name is required")
	}

	role := user.RoleOwner
	if strings.TrimSpace(reg.Role) != "" {
		parsed, ok := user.ParseRole(reg.Role)
		if !ok {
			return Session{}, apperrors.InvalidInput("unknown role %q", reg.Role)
		}
		role = parsed
	}
	if role == user.RoleAdmin && !s.adminEmails(email) {
		return Session{}, apperrors.Forbidden("admin role cannot be self-assigned")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return Session{}, apperrors.Internal("hash password", err)
	}
	created, err := s.store.CreateUser(ctx, user.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     name,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return Session{}, apperrors.Conflict("email %s is already registered", email)
		}
		return Session{}, storage.AsServiceError(err, "user", "")
	}

	s.log.WithField("user_id", created.ID).WithField("role", created.Role).Info("user registered")
	return s.session(created)
}

// Login verifies credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Keep the timing close to a real comparison.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return Session{}, apperrors.Unauthorized(invalidCredentials)
		}
		return Session{}, storage.AsServiceError(err, "user", "")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.log.WithField("user_id", u.ID).Warn("failed login")
		return Session{}, apperrors.Unauthorized(invalidCredentials)
	}
	return s.session(u)
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (user.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.User{}, apperrors.Unauthorized("")
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return user.User{}, apperrors.InvalidToken(err)
	}
	u, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.User{}, apperrors.InvalidToken(err)
		}
		return user.User{}, storage.AsServiceError(err, "user", claims.UserID)
	}
	return u, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, storage.AsServiceError(err, "user", id)
	}
	return u, nil
}

// UpdateProfile changes the caller's name, phone or avatar.
func (s *Service) UpdateProfile(ctx context.Context, actor user.User, upd ProfileUpdate) (user.User, error) {
	u, err := s.Get(ctx, actor.ID)
	if err != nil {
		return user.User{}, err
	}
	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		if name == "" {
			return user.User{}, apperrors.InvalidInput("full_name cannot be empty")
		}
		u.FullName = name
	}
	if upd.Phone != nil {
		u.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.AvatarURL != nil {
		avatar := strings.TrimSpace(*upd.AvatarURL)
		if avatar != "" {
			if err := s.validate.Var(avatar, "url"); err != nil {
				return user.User{}, apperrors.InvalidInput("avatar_url must be a URL")
			}
		}
		u.AvatarURL = avatar
	}
	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, storage.AsServiceError(err, "user", u.ID)
	}
	return updated, nil
}

// ChangePassword replaces the caller's password after verifying the old one.
func (s *Service) ChangePassword(ctx context.Context, actor user.User, oldPassword, newPassword string) error {
	u, err := s.Get(ctx, actor.ID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}
	if err := checkPassword(newPassword); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return apperrors.Internal("hash password", err)
	}
	u.PasswordHash = string(hash)
	if _, err := s.store.UpdateUser(ctx, u); err != nil {
		return storage.AsServiceError(err, "user", u.ID)
	}
	s.log.WithField("user_id", u.ID).Info("password changed")
	return nil
}

// SetRole changes another user's role. Only admins may call it.
func (s *Service) SetRole(ctx context.Context, actor user.User, id, role string) (user.User, error) {
	if !actor.IsAdmin() {
		return user.User{}, apperrors.Forbidden("admin role required")
	}
	parsed, ok := user.ParseRole(role)
	if !ok {
		return user.User{}, apperrors.InvalidInput("unknown role %q", role)
	}
	if id == actor.ID && parsed != user.RoleAdmin {
		return user.User{}, apperrors.Conflict("admins cannot demote themselves")
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if u.Role == parsed {
		return u, nil
	}
	previous := u.Role
	u.Role = parsed
	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, storage.AsServiceError(err, "user", id)
	}
	s.log.WithFields(map[string]interface{}{
		"user_id":  id,
		"from":     previous,
		"to":       parsed,
		"admin_id": actor.ID,
	}).Info("role changed")
	return updated, nil
}

func (s *Service) session(u user.User) (Session, error) {
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, apperrors.Internal("issue token", err)
	}
	return Session{User: u, Token: token, ExpiresAt: exp}, nil
}

func checkPassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput("password must be at least %d characters", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return apperrors.InvalidInput("password must be at most %d bytes", maxPasswordLength)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// dummyHash is compared against when the email is unknown.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("pawmate-placeholder"), bcrypt.MinCost)
