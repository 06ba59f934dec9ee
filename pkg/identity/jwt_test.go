package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWTVerifierRoundTrip(t *testing.T) {
	v := NewJWTVerifier("s3cret", "routeplanner", time.Hour)

	token, err := v.Issue("user-42", "user42@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	p, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.UserID != "user-42" || p.Email != "user42@example.com" || p.Provider != "jwt" {
		t.Fatalf("principal = %+v", p)
	}
}

func TestJWTVerifierRejects(t *testing.T) {
	v := NewJWTVerifier("s3cret", "routeplanner", time.Hour)

	signed := func(method jwt.SigningMethod, key interface{}, claims jwt.RegisteredClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	valid := jwt.RegisteredClaims{
		Subject:   "user-42",
		Issuer:    "routeplanner",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	otherIssuer := valid
	otherIssuer.Issuer = "someone-else"

	noSubject := valid
	noSubject.Subject = ""

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-token", ErrInvalidToken},
		{"wrong secret", signed(jwt.SigningMethodHS256, []byte("other"), valid), ErrInvalidToken},
		{"wrong algorithm", signed(jwt.SigningMethodHS512, []byte("s3cret"), valid), ErrInvalidToken},
		{"expired", signed(jwt.SigningMethodHS256, []byte("s3cret"), expired), ErrTokenExpired},
		{"wrong issuer", signed(jwt.SigningMethodHS256, []byte("s3cret"), otherIssuer), ErrInvalidToken},
		{"no subject", signed(jwt.SigningMethodHS256, []byte("s3cret"), noSubject), ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
