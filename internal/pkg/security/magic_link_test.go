package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestMagicLinkTokenRoundTrip(t *testing.T) {
	token, err := GenerateMagicLinkToken("member@example.com", "code-1", time.Minute, "secret")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := VerifyMagicLinkToken(token, "secret")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Email != "member@example.com" || claims.CodeID != "code-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestMagicLinkTokenRejects(t *testing.T) {
	valid, err := GenerateMagicLinkToken("member@example.com", "code-1", time.Minute, "secret")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	expired, err := GenerateMagicLinkToken("member@example.com", "code-1", -time.Minute, "secret")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	none := jwt.NewWithClaims(jwt.SigningMethodNone, MagicLinkClaims{Email: "member@example.com", CodeID: "code-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	tests := map[string]struct {
		token  string
		secret string
	}{
		"wrong secret": {valid, "other"},
		"expired":      {expired, "secret"},
		"unsigned":     {unsigned, "secret"},
		"garbage":      {"not.a.token", "secret"},
	}
	for name, tt := range tests {
		if _, err := VerifyMagicLinkToken(tt.token, tt.secret); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	if _, err := GenerateMagicLinkToken("a@b.c", "id", time.Minute, ""); err == nil {
		t.Fatalf("expected error without secret")
	}
}
