package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const magicLinkIssuer = "shuken"

var ErrInvalidToken = errors.New("invalid or expired sign-in link")

// MagicLinkClaims identify the verification code a sign-in link redeems.
type MagicLinkClaims struct {
	Email  string `json:"email"`
	CodeID string `json:"cid"`
	jwt.RegisteredClaims
}

func GenerateMagicLinkToken(email, codeID string, ttl time.Duration, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret is required for token generation")
	}
	now := time.Now()
	claims := MagicLinkClaims{
		Email:  email,
		CodeID: codeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    magicLinkIssuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func VerifyMagicLinkToken(token, secret string) (*MagicLinkClaims, error) {
	if secret == "" {
		return nil, errors.New("secret is required for token verification")
	}
	claims := &MagicLinkClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(magicLinkIssuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Email == "" || claims.CodeID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
