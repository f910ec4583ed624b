package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long minted bearer tokens stay valid.
const TokenTTL = 30 * 24 * time.Hour

// Claims is the relay's JWT payload.
type Claims struct {
	UserAddress string `json:"user_address"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and parses HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

// Mint issues a token for the wallet address.
func (t *TokenIssuer) Mint(userAddress string, now time.Time) (string, error) {
	claims := &Claims{
		UserAddress: userAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns the wallet address it was minted
// for. Expired, malformed, or foreign-key tokens fail.
func (t *TokenIssuer) Parse(tokenString string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if claims.UserAddress == "" {
		return "", fmt.Errorf("token missing user address")
	}
	return claims.UserAddress, nil
}
