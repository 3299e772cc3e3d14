package app

import (
	"context"
	"regexp"
	"strings"
	"time"

	"photoshare/internal/domain"

	"github.com/google/uuid"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidID reports whether id is a syntactically valid entity identifier.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	LoginName       string `json:"login_name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Location        string `json:"location"`
	Description     string `json:"description"`
	Occupation      string `json:"occupation"`
}

// UserService encapsulates account use cases.
type UserService struct {
	repo domain.UserRepository
	now  func() time.Time
}

// NewUserService creates a UserService backed by the given repository.
func NewUserService(repo domain.UserRepository) *UserService {
	return &UserService{repo: repo, now: time.Now}
}

// Register validates in and creates the account. It does not open a session.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.SessionUser, error) {
	loginName := in.LoginName
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)

	if strings.TrimSpace(loginName) == "" || in.Password == "" || firstName == "" || lastName == "" {
		return nil, domain.Validation("Login name, password, first name, and last name are required")
	}
	// Login matches the stored name exactly, so it is stored as typed.
	if loginName != strings.TrimSpace(loginName) {
		return nil, domain.Validation("Login name cannot start or end with spaces")
	}
	if strings.HasPrefix(loginName, SSOLoginPrefix) {
		return nil, domain.Validation("Login name cannot start with " + SSOLoginPrefix)
	}
	if in.Password != in.ConfirmPassword {
		return nil, domain.Validation("Passwords do not match")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		FirstName:    firstName,
		LastName:     lastName,
		Location:     strings.TrimSpace(in.Location),
		Description:  strings.TrimSpace(in.Description),
		Occupation:   strings.TrimSpace(in.Occupation),
		LoginName:    loginName,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}

	su := user.SessionUser()
	return &su, nil
}

// FindByLoginName returns the user with exactly loginName, or nil.
func (s *UserService) FindByLoginName(ctx context.Context, loginName string) (*domain.User, error) {
	return s.repo.GetByLoginName(ctx, loginName)
}

// ListSummaries returns every user in creation order.
func (s *UserService) ListSummaries(ctx context.Context) ([]domain.UserSummary, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return out, nil
}

// Profile returns the profile of the user with id.
func (s *UserService) Profile(ctx context.Context, id string) (*domain.UserProfile, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	p := user.Profile()
	return &p, nil
}

func (s *UserService) get(ctx context.Context, id string) (*domain.User, error) {
	if !ValidID(id) {
		return nil, domain.ErrInvalidID
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// AdminInput describes the administrator account managed by EnsureAdmin.
type AdminInput struct {
	ID        string
	LoginName string
	Password  string
	FirstName string
	LastName  string
}

// EnsureAdmin creates the admin account, or resets its password when the
// login name already exists. It reports whether a new account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, in AdminInput) (bool, error) {
	if in.LoginName == "" || in.Password == "" {
		return false, domain.Validation("Login name and password required")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return false, err
	}

	existing, err := s.FindByLoginName(ctx, in.LoginName)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, s.repo.UpdatePassword(ctx, existing.ID, hash)
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err = s.repo.Create(ctx, &domain.User{
		ID:           id,
		FirstName:    defaultString(in.FirstName, "Admin"),
		LastName:     defaultString(in.LastName, "User"),
		Location:     "System",
		Description:  "System Administrator",
		Occupation:   "Admin",
		LoginName:    in.LoginName,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
