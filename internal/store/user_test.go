// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestUserStoreCreate(t *testing.T) {
	db := testDB(t)
	s := NewUserStore(db)
	ctx := context.Background()

	email := "test-create@store-test.local"
	t.Cleanup(func() { cleanUsers(t, db, email) })

	user, err := s.Create(ctx, "  Test-Create@Store-Test.local ", "testpass123", "Test User")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if user.ID == uuid.Nil {
		t.Error("expected non-nil UUID")
	}
	if user.Email != email {
		t.Errorf("email: got %q, want %q", user.Email, email)
	}
	if user.DisplayName != "Test User" {
		t.Errorf("display name: got %q, want %q", user.DisplayName, "Test User")
	}
	if user.TOTPEnabled {
		t.Error("expected totp_enabled=false for new user")
	}
	if user.PasswordHash == "" || user.PasswordHash == "testpass123" {
		t.Error("password hash must be set and not plaintext")
	}

	if _, err := s.Create(ctx, email, "other", "Dup"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate Create error = %v, want ErrEmailTaken", err)
	}
}

func TestUserStoreFind(t *testing.T) {
	db := testDB(t)
	s := NewUserStore(db)
	ctx := context.Background()

	email := "test-find@store-test.local"
	t.Cleanup(func() { cleanUsers(t, db, email) })

	// Not found case.
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		t.Fatalf("FindByEmail (not found): %v", err)
	}
	if user != nil {
		t.Fatal("expected nil for missing user")
	}

	created, err := s.Create(ctx, email, "pw", "Finder")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	byEmail, err := s.FindByEmail(ctx, "TEST-FIND@store-test.local")
	if err != nil || byEmail == nil || byEmail.ID != created.ID {
		t.Fatalf("FindByEmail = %+v, %v", byEmail, err)
	}
	byID, err := s.FindByID(ctx, created.ID)
	if err != nil || byID == nil || byID.Email != email {
		t.Fatalf("FindByID = %+v, %v", byID, err)
	}

	if !s.CheckPassword(byID, "pw") {
		t.Error("CheckPassword rejected the correct password")
	}
	if s.CheckPassword(byID, "wrong") {
		t.Error("CheckPassword accepted a wrong password")
	}
}

func TestUserStoreTOTP(t *testing.T) {
	db := testDB(t)
	s := NewUserStore(db)
	ctx := context.Background()

	email := "test-totp@store-test.local"
	t.Cleanup(func() { cleanUsers(t, db, email) })

	u, err := s.Create(ctx, email, "pw", "TOTP")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.SetTOTPSecret(ctx, u.ID, "JBSWY3DPEHPK3PXP"); err != nil {
		t.Fatalf("SetTOTPSecret: %v", err)
	}
	got, _ := s.FindByID(ctx, u.ID)
	if got.Requires2FA() {
		t.Error("2FA should not be required before EnableTOTP")
	}

	if err := s.EnableTOTP(ctx, u.ID); err != nil {
		t.Fatalf("EnableTOTP: %v", err)
	}
	got, _ = s.FindByID(ctx, u.ID)
	if !got.Requires2FA() {
		t.Error("2FA should be required after EnableTOTP")
	}

	if err := s.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := s.FindByID(ctx, u.ID); got != nil {
		t.Error("user still present after Delete")
	}
}
