package domain

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSessionValid(t *testing.T) {
	tests := []struct {
		name string
		sess Session
		want bool
	}{
		{"zero", Session{}, false},
		{"token only", Session{Token: "t"}, false},
		{"user only", Session{User: User{ID: "u1"}}, false},
		{"blank token", Session{Token: "  ", User: User{ID: "u1"}}, false},
		{"complete", Session{Token: "t", User: User{ID: "u1"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sess.Valid(); got != tt.want {
				t.Fatalf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadTokenInfo(t *testing.T) {
	issued := time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC)
	claims := jwt.RegisteredClaims{
		Subject:   "u1",
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(24 * time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-only"))
	if err != nil {
		t.Fatalf("SignedString error: %v", err)
	}

	info, ok := ReadTokenInfo(token)
	if !ok {
		t.Fatalf("ReadTokenInfo ok = false, want true")
	}
	if info.Subject != "u1" || !info.IssuedAt.Equal(issued) {
		t.Fatalf("info = %+v, want subject u1 issued %v", info, issued)
	}
	if info.Expired(issued.Add(time.Hour)) {
		t.Fatalf("Expired one hour after issue, want valid")
	}
	if !info.Expired(issued.Add(24 * time.Hour)) {
		t.Fatalf("not Expired at exp, want expired")
	}

	if _, ok := ReadTokenInfo("opaque-token"); ok {
		t.Fatalf("ReadTokenInfo(opaque) ok = true, want false")
	}
}
