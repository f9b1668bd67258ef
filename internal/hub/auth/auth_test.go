package auth

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
)

func TestJWTIssuerRoundTrip(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	issuer := NewJWTIssuer("0123456789abcdef", "fleet-hub", clock)

	p := &model.Principal{UserID: "u-1", Email: "ana@acme.test", Role: model.RoleAdmin, OrganizationID: "org-1", SessionID: "s-1"}
	token, err := issuer.Issue(p, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if *got != *p {
		t.Errorf("Parse() = %+v, want %+v", got, p)
	}
}

func TestJWTIssuerRejects(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	current := now
	issuer := NewJWTIssuer("0123456789abcdef", "fleet-hub", func() time.Time { return current })
	p := &model.Principal{UserID: "u-1", Role: model.RoleDriver, SessionID: "s-1"}

	token, err := issuer.Issue(p, now.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}

	other := NewJWTIssuer("fedcba9876543210", "fleet-hub", func() time.Time { return now })
	foreign := NewJWTIssuer("0123456789abcdef", "someone-else", func() time.Time { return now })

	tests := []struct {
		name  string
		parse func() error
	}{
		{"empty", func() error { _, err := issuer.Parse(""); return err }},
		{"garbage", func() error { _, err := issuer.Parse("not.a.token"); return err }},
		{"wrong secret", func() error { _, err := other.Parse(token); return err }},
		{"wrong issuer", func() error { _, err := foreign.Parse(token); return err }},
		{"expired", func() error {
			current = now.Add(2 * time.Minute)
			defer func() { current = now }()
			_, err := issuer.Parse(token)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.parse(); !errors.Is(err, model.ErrUnauthenticated) {
				t.Errorf("error = %v, want ErrUnauthenticated", err)
			}
		})
	}
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if err := h.Compare(hash, "secret1"); err != nil {
		t.Errorf("Compare(correct) error = %v", err)
	}
	if err := h.Compare(hash, "wrong"); !errors.Is(err, model.ErrInvalidCredentials) {
		t.Errorf("Compare(wrong) error = %v, want ErrInvalidCredentials", err)
	}
}
