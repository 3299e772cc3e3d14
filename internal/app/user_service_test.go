package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"photoshare/internal/adapter/memory"
	"photoshare/internal/domain"
)

func validRegistration(login string) RegisterInput {
	return RegisterInput{
		LoginName:       login,
		Password:        "pw1",
		ConfirmPassword: "pw1",
		FirstName:       "Obi-Wan",
		LastName:        "Kenobi",
		Occupation:      "Jedi",
	}
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	svc := NewUserService(db)

	got, err := svc.Register(ctx, validRegistration("kenobi"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.LoginName != "kenobi" || got.FirstName != "Obi-Wan" || got.ID == "" {
		t.Errorf("unexpected summary %+v", got)
	}

	stored, _ := db.GetByLoginName(ctx, "kenobi")
	if stored == nil {
		t.Fatal("user was not stored")
	}
	if stored.PasswordHash == "pw1" || !VerifyPassword("pw1", stored.PasswordHash) {
		t.Error("password must be stored as a verifiable hash")
	}
	if stored.Occupation != "Jedi" {
		t.Errorf("expected occupation to be kept, got %q", stored.Occupation)
	}
}

func TestUserService_Register_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{"missing login", func(in *RegisterInput) { in.LoginName = "  " }},
		{"missing password", func(in *RegisterInput) { in.Password = ""; in.ConfirmPassword = "" }},
		{"missing first name", func(in *RegisterInput) { in.FirstName = "" }},
		{"missing last name", func(in *RegisterInput) { in.LastName = "" }},
		{"password mismatch", func(in *RegisterInput) { in.ConfirmPassword = "pw2" }},
		{"leading space in login", func(in *RegisterInput) { in.LoginName = " kenobi" }},
		{"trailing space in login", func(in *RegisterInput) { in.LoginName = "kenobi\t" }},
		{"external identity namespace", func(in *RegisterInput) { in.LoginName = SSOLoginPrefix + "https://idp:42" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validRegistration("kenobi")
			tt.mutate(&in)
			_, err := NewUserService(memory.New()).Register(context.Background(), in)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUserService_Register_LoginNameMatchesLogin(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	svc := NewUserService(db)

	in := validRegistration("kenobi")
	in.FirstName = "  Obi-Wan  "
	if _, err := svc.Register(ctx, in); err != nil {
		t.Fatal(err)
	}

	if _, err := NewAuthService(db, db.NewSessionRepo()).Login(ctx, in.LoginName, in.Password); err != nil {
		t.Errorf("expected login with the registered name to succeed, got %v", err)
	}
	found, err := svc.FindByLoginName(ctx, "kenobi")
	if err != nil || found == nil || found.FirstName != "Obi-Wan" {
		t.Errorf("expected trimmed first name on stored user, got %+v (%v)", found, err)
	}
}

func TestUserService_FindByLoginName(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(memory.New())
	registered, err := svc.Register(ctx, validRegistration("kenobi"))
	if err != nil {
		t.Fatal(err)
	}

	found, err := svc.FindByLoginName(ctx, "kenobi")
	if err != nil || found == nil || found.ID != registered.ID {
		t.Fatalf("expected registered user, got %+v (%v)", found, err)
	}
	for _, name := range []string{"Kenobi", "kenobi ", "ken"} {
		found, err := svc.FindByLoginName(ctx, name)
		if err != nil || found != nil {
			t.Errorf("%q: expected no match, got %+v (%v)", name, found, err)
		}
	}
}

func TestUserService_Register_Duplicate(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(memory.New())

	if _, err := svc.Register(ctx, validRegistration("kenobi")); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Register(ctx, validRegistration("kenobi"))
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestUserService_Register_ConcurrentDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(memory.New())

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, validRegistration("kenobi"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, domain.ErrDuplicateLogin):
			t.Errorf("unexpected error %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("expected exactly one registration to succeed, got %d", succeeded)
	}
}

func TestUserService_ListAndProfile(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(memory.New())

	var ids []string
	for i := 0; i < 3; i++ {
		u, err := svc.Register(ctx, validRegistration(fmt.Sprintf("user%d", i)))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, u.ID)
	}

	list, err := svc.ListSummaries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 users, got %d", len(list))
	}
	for i, s := range list {
		if s.ID != ids[i] {
			t.Errorf("expected creation order, got %s at %d", s.ID, i)
		}
	}

	p, err := svc.Profile(ctx, ids[1])
	if err != nil {
		t.Fatal(err)
	}
	if p.Occupation != "Jedi" {
		t.Errorf("unexpected profile %+v", p)
	}

	if _, err := svc.Profile(ctx, "not a valid id!"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := svc.Profile(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestUserService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	svc := NewUserService(db)

	created, err := svc.EnsureAdmin(ctx, AdminInput{ID: "admin_user_id_001", LoginName: "admin", Password: "admin"})
	if err != nil || !created {
		t.Fatalf("expected admin to be created, got %v (%v)", created, err)
	}

	created, err = svc.EnsureAdmin(ctx, AdminInput{LoginName: "admin", Password: "changed"})
	if err != nil || created {
		t.Fatalf("expected password reset, got %v (%v)", created, err)
	}

	admin, _ := db.GetByID(ctx, "admin_user_id_001")
	if !VerifyPassword("changed", admin.PasswordHash) {
		t.Error("expected password to be reset")
	}
	if admin.FirstName != "Admin" || admin.LastName != "User" {
		t.Errorf("unexpected admin names %q %q", admin.FirstName, admin.LastName)
	}
}
