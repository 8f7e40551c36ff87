package service

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := NewUserService(repo, bcrypt.MinCost)

	user, err := svc.Register(ctx, " Asha ", "asha@example.com", "s3cret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" || user.Name != "Asha" || user.PasswordHash != "" {
		t.Fatalf("unexpected user: %+v", user)
	}

	stored, _ := repo.GetByMail(ctx, "asha@example.com")
	if stored.PasswordHash == "s3cret" || bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret")) != nil {
		t.Fatalf("password must be stored as a bcrypt hash")
	}

	t.Run("duplicate mail -> conflict", func(t *testing.T) {
		_, err := svc.Register(ctx, "Other", "asha@example.com", "another")
		if !errors.Is(err, ErrUserAlreadyExists) {
			t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
		}
		if repo.count() != 1 {
			t.Fatalf("duplicate registration created a record")
		}
	})

	t.Run("missing fields -> invalid", func(t *testing.T) {
		cases := [][3]string{
			{"", "a@b.c", "x"},
			{"A", "  ", "x"},
			{"A", "a@b.c", "   "},
		}
		for _, c := range cases {
			if _, err := svc.Register(ctx, c[0], c[1], c[2]); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput for %q, got %v", c, err)
			}
		}
	})

	t.Run("store error passes through", func(t *testing.T) {
		failing := newFakeUserRepo()
		failing.err = errStoreDown
		_, err := NewUserService(failing, bcrypt.MinCost).Register(ctx, "A", "a@b.c", "x")
		if !errors.Is(err, errStoreDown) {
			t.Fatalf("expected store error, got %v", err)
		}
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(newFakeUserRepo(), bcrypt.MinCost)
	if _, err := svc.Register(ctx, "Asha", "asha@example.com", "s3cret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := svc.Authenticate(ctx, "asha@example.com", "s3cret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.Mail != "asha@example.com" || user.PasswordHash != "" {
		t.Fatalf("unexpected user: %+v", user)
	}

	_, wrongPass := svc.Authenticate(ctx, "asha@example.com", "nope")
	_, unknownMail := svc.Authenticate(ctx, "ghost@example.com", "s3cret")
	if !errors.Is(wrongPass, ErrInvalidCredentials) || !errors.Is(unknownMail, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v / %v", wrongPass, unknownMail)
	}
	if wrongPass.Error() != unknownMail.Error() {
		t.Fatalf("failures must be indistinguishable: %q vs %q", wrongPass, unknownMail)
	}

	if _, err := svc.Authenticate(ctx, "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty input, got %v", err)
	}
}
