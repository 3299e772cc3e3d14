package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"photoshare/internal/adapter/memory"
	"photoshare/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

type mockUserRepo struct {
	getByLoginNameFn func(ctx context.Context, loginName string) (*domain.User, error)
	getByIDFn        func(ctx context.Context, id string) (*domain.User, error)
	createFn         func(ctx context.Context, u *domain.User) (*domain.User, error)
	updatePasswordFn func(ctx context.Context, id, passwordHash string) error
	listFn           func(ctx context.Context) ([]domain.User, error)
}

func (m *mockUserRepo) GetByLoginName(ctx context.Context, loginName string) (*domain.User, error) {
	if m.getByLoginNameFn != nil {
		return m.getByLoginNameFn(ctx, loginName)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, u)
	}
	return u, nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, id, passwordHash)
	}
	return nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]domain.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

type mockSessionRepo struct {
	createFn        func(ctx context.Context, s *domain.Session) error
	getByTokenFn    func(ctx context.Context, token string) (*domain.Session, error)
	deleteFn        func(ctx context.Context, token string) error
	deleteExpiredFn func(ctx context.Context) (int64, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	return nil
}

func (m *mockSessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if m.getByTokenFn != nil {
		return m.getByTokenFn(ctx, token)
	}
	return nil, nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, token string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, token)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return 0, nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(hash)
}

func TestAuthService_Login_Success(t *testing.T) {
	ctx := context.Background()
	password := "testpass123"
	hash := hashed(t, password)

	users := &mockUserRepo{
		getByLoginNameFn: func(ctx context.Context, loginName string) (*domain.User, error) {
			return &domain.User{
				ID:           "u1",
				FirstName:    "Test",
				LastName:     "User",
				LoginName:    "testuser",
				PasswordHash: hash,
			}, nil
		},
	}

	var stored *domain.Session
	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, s *domain.Session) error {
			stored = s
			return nil
		},
	}

	svc := NewAuthService(users, sessions)
	session, err := svc.Login(ctx, "testuser", password)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.Token == "" {
		t.Error("expected token, got empty string")
	}
	if stored == nil || stored.Token != session.Token {
		t.Fatal("session was not persisted")
	}
	want := domain.SessionUser{ID: "u1", FirstName: "Test", LastName: "User", LoginName: "testuser"}
	if session.User != want {
		t.Errorf("expected %+v, got %+v", want, session.User)
	}
	if got := stored.ExpiresAt.Sub(stored.CreatedAt); got != SessionTTL {
		t.Errorf("expected ttl %v, got %v", SessionTTL, got)
	}
}

func TestAuthService_Login_UniformFailure(t *testing.T) {
	ctx := context.Background()
	hash := hashed(t, "correctpass")

	users := &mockUserRepo{
		getByLoginNameFn: func(ctx context.Context, loginName string) (*domain.User, error) {
			if loginName == "testuser" {
				return &domain.User{ID: "u1", LoginName: "testuser", PasswordHash: hash}, nil
			}
			return nil, nil
		},
	}
	svc := NewAuthService(users, &mockSessionRepo{})

	_, wrongPassword := svc.Login(ctx, "testuser", "wrongpass")
	_, unknownUser := svc.Login(ctx, "ghost", "correctpass")

	if wrongPassword != domain.ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", wrongPassword)
	}
	if unknownUser != domain.ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Error("failure messages must not reveal which part was wrong")
	}
}

func TestAuthService_Login_MissingFields(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, &mockSessionRepo{})
	_, err := svc.Login(context.Background(), "", "x")
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestAuthService_Login_RepoError(t *testing.T) {
	users := &mockUserRepo{
		getByLoginNameFn: func(ctx context.Context, loginName string) (*domain.User, error) {
			return nil, errors.New("db down")
		},
	}
	svc := NewAuthService(users, &mockSessionRepo{})
	_, err := svc.Login(context.Background(), "a", "b")
	var de *domain.Error
	if err == nil || errors.As(err, &de) {
		t.Errorf("expected opaque storage error, got %v", err)
	}
}

func TestAuthService_Check_Valid(t *testing.T) {
	ctx := context.Background()
	token := "validtoken"

	sessions := &mockSessionRepo{
		getByTokenFn: func(ctx context.Context, tok string) (*domain.Session, error) {
			return &domain.Session{
				Token:     token,
				User:      domain.SessionUser{ID: "u1", LoginName: "testuser"},
				ExpiresAt: time.Now().Add(1 * time.Hour),
			}, nil
		},
	}

	svc := NewAuthService(&mockUserRepo{}, sessions)
	user, err := svc.Check(ctx, token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.LoginName != "testuser" {
		t.Errorf("expected login name 'testuser', got %s", user.LoginName)
	}
}

func TestAuthService_Check_Expired(t *testing.T) {
	ctx := context.Background()
	token := "expiredtoken"
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	deleted := false
	sessions := &mockSessionRepo{
		getByTokenFn: func(ctx context.Context, tok string) (*domain.Session, error) {
			return &domain.Session{
				Token:     token,
				User:      domain.SessionUser{ID: "u1"},
				CreatedAt: issued,
				ExpiresAt: issued.Add(SessionTTL),
			}, nil
		},
		deleteFn: func(ctx context.Context, tok string) error {
			deleted = true
			return nil
		},
	}

	now := issued.Add(SessionTTL - time.Second)
	svc := NewAuthService(&mockUserRepo{}, sessions).WithClock(func() time.Time { return now })

	if _, err := svc.Check(ctx, token); err != nil {
		t.Fatalf("expected valid session just before expiry, got %v", err)
	}

	now = issued.Add(SessionTTL)
	_, err := svc.Check(ctx, token)
	if err != domain.ErrNotLoggedIn {
		t.Errorf("expected ErrNotLoggedIn, got %v", err)
	}
	if !deleted {
		t.Error("expected session to be deleted")
	}
}

func TestAuthService_Check_Unknown(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, &mockSessionRepo{})
	if _, err := svc.Check(context.Background(), ""); err != domain.ErrNotLoggedIn {
		t.Errorf("expected ErrNotLoggedIn for empty token, got %v", err)
	}
	if _, err := svc.Check(context.Background(), "nope"); err != domain.ErrNotLoggedIn {
		t.Errorf("expected ErrNotLoggedIn for unknown token, got %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	deletedToken := ""
	sessions := &mockSessionRepo{
		getByTokenFn: func(ctx context.Context, tok string) (*domain.Session, error) {
			if tok != "live" {
				return nil, nil
			}
			return &domain.Session{Token: tok, ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
		deleteFn: func(ctx context.Context, tok string) error {
			deletedToken = tok
			return nil
		},
	}
	svc := NewAuthService(&mockUserRepo{}, sessions)

	if err := svc.Logout(ctx, "live"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if deletedToken != "live" {
		t.Errorf("expected session 'live' deleted, got %q", deletedToken)
	}
	if err := svc.Logout(ctx, "gone"); err != domain.ErrNotLoggedIn {
		t.Errorf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestAuthService_LoginWithUser_Provisions(t *testing.T) {
	ctx := context.Background()

	var created *domain.User
	users := &mockUserRepo{
		createFn: func(ctx context.Context, u *domain.User) (*domain.User, error) {
			created = u
			return u, nil
		},
	}

	svc := NewAuthService(users, &mockSessionRepo{})
	session, err := svc.LoginWithUser(ctx, "sso@example.com", "Sso", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created == nil || created.LoginName != "sso@example.com" {
		t.Fatalf("expected user to be provisioned, got %+v", created)
	}
	if VerifyPassword("", created.PasswordHash) {
		t.Error("provisioned user must not accept password login")
	}
	if session.User.LoginName != "sso@example.com" {
		t.Errorf("unexpected session user %+v", session.User)
	}
}

func TestAuthService_LoginWithUser_RaceFallsBackToLookup(t *testing.T) {
	ctx := context.Background()
	calls := 0
	users := &mockUserRepo{
		getByLoginNameFn: func(ctx context.Context, loginName string) (*domain.User, error) {
			calls++
			if calls == 1 {
				return nil, nil
			}
			return &domain.User{ID: "u9", LoginName: loginName, PasswordHash: ssoPasswordHash}, nil
		},
		createFn: func(ctx context.Context, u *domain.User) (*domain.User, error) {
			return nil, domain.ErrDuplicateLogin
		},
	}

	svc := NewAuthService(users, &mockSessionRepo{})
	session, err := svc.LoginWithUser(ctx, "sso", "", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.User.ID != "u9" {
		t.Errorf("expected existing user u9, got %s", session.User.ID)
	}
}

func TestAuthService_LoginWithUser_ReusesProvisionedAccount(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	svc := NewAuthService(db, db.NewSessionRepo())

	first, err := svc.LoginWithUser(ctx, "sso@example.com", "Sso", "User")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.LoginWithUser(ctx, "sso@example.com", "Other", "Name")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if second.User.ID != first.User.ID {
		t.Errorf("expected the same account, got %s and %s", first.User.ID, second.User.ID)
	}
}

func TestAuthService_LoginWithUser_RefusesPasswordAccount(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	sessions := db.NewSessionRepo()
	svc := NewAuthService(db, sessions)

	squatter, err := NewUserService(db).Register(ctx, RegisterInput{
		LoginName:       "victim@example.com",
		Password:        "pw",
		ConfirmPassword: "pw",
		FirstName:       "Evil",
		LastName:        "Attacker",
	})
	if err != nil {
		t.Fatal(err)
	}

	session, err := svc.LoginWithUser(ctx, "victim@example.com", "Real", "Victim")
	if !errors.Is(err, domain.ErrSSOAccountConflict) {
		t.Fatalf("expected ErrSSOAccountConflict, got %v", err)
	}
	if session != nil {
		t.Fatalf("expected no session, got one for %s", session.User.ID)
	}

	// The local account keeps working and is not touched.
	own, err := svc.Login(ctx, "victim@example.com", "pw")
	if err != nil {
		t.Fatalf("expected password login to work, got %v", err)
	}
	if own.User.ID != squatter.ID || own.User.FirstName != "Evil" {
		t.Errorf("unexpected account %+v", own.User)
	}
}

func TestAuthService_LoginWithUser_RaceWithRegistration(t *testing.T) {
	ctx := context.Background()
	calls := 0
	users := &mockUserRepo{
		getByLoginNameFn: func(ctx context.Context, loginName string) (*domain.User, error) {
			calls++
			if calls == 1 {
				return nil, nil
			}
			return &domain.User{ID: "local", LoginName: loginName, PasswordHash: hashed(t, "pw")}, nil
		},
		createFn: func(ctx context.Context, u *domain.User) (*domain.User, error) {
			return nil, domain.ErrDuplicateLogin
		},
	}
	created := false
	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, s *domain.Session) error {
			created = true
			return nil
		},
	}

	_, err := NewAuthService(users, sessions).LoginWithUser(ctx, "victim@example.com", "", "")
	if !errors.Is(err, domain.ErrSSOAccountConflict) {
		t.Errorf("expected ErrSSOAccountConflict, got %v", err)
	}
	if created {
		t.Error("no session may be opened for a password account")
	}
}

func TestAuthService_LoginWithUser_EmptyLoginName(t *testing.T) {
	_, err := NewAuthService(&mockUserRepo{}, &mockSessionRepo{}).LoginWithUser(context.Background(), "", "", "")
	if err != domain.ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_SweepExpired(t *testing.T) {
	sessions := &mockSessionRepo{
		deleteExpiredFn: func(ctx context.Context) (int64, error) { return 3, nil },
	}
	n, err := NewAuthService(&mockUserRepo{}, sessions).SweepExpired(context.Background())
	if err != nil || n != 3 {
		t.Errorf("expected 3 swept, got %d (%v)", n, err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("pw1")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "pw1" {
		t.Fatal("hash must not equal plaintext")
	}
	if !VerifyPassword("pw1", hash) {
		t.Error("expected password to verify")
	}
	if VerifyPassword("pw2", hash) {
		t.Error("expected wrong password to fail")
	}
	other, _ := HashPassword("pw1")
	if other == hash {
		t.Error("expected salted hashes to differ")
	}
}
