package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
	RoleTeacher    = "teacher"
	RoleBDM        = "bdm"
)

var ErrMissingKey = errors.New("missing_verification_key")

type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool {
	role := strings.ToLower(c.Role)
	return role == RoleAdmin || role == RoleSuperAdmin
}

func (c *Claims) HasRole(roles ...string) bool {
	if c.IsAdmin() {
		return true
	}
	role := strings.ToLower(c.Role)
	for _, r := range roles {
		if role == r {
			return true
		}
	}
	return false
}

// Verifier checks dashboard access tokens. Either an HMAC secret or an RSA public key
// must be configured; tokens are never accepted unverified.
type Verifier struct {
	secret    []byte
	publicKey *rsa.PublicKey
	issuer    string
}

func NewVerifier(secret, publicKeyPEM, issuer string) (*Verifier, error) {
	v := &Verifier{issuer: issuer}
	if publicKeyPEM != "" {
		key, err := ParseRSAPublicKey(publicKeyPEM)
		if err != nil {
			return nil, err
		}
		v.publicKey = key
	}
	if secret != "" {
		v.secret = []byte(secret)
	}
	if v.publicKey == nil && v.secret == nil {
		return nil, ErrMissingKey
	}
	return v, nil
}

func (v *Verifier) ParseToken(tokenString string) (*Claims, error) {
	methods := make([]string, 0, 2)
	if v.publicKey != nil {
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	if v.secret != nil {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	options := []jwt.ParserOption{jwt.WithValidMethods(methods)}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return v.publicKey, nil
		}
		return v.secret, nil
	}, options...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	claims.Email = strings.TrimSpace(claims.Email)
	return claims, nil
}

// NewAccessToken signs an HS256 token. Used by the CLI for local tokens and by tests.
func NewAccessToken(secret, issuer string, ttl time.Duration, claims Claims) (string, error) {
	now := time.Now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseRSAPublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("invalid_public_key")
	}
	switch block.Type {
	case "PUBLIC KEY":
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		publicKey, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("invalid_public_key_type")
		}
		return publicKey, nil
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		return nil, errors.New("invalid_public_key")
	}
}

// SameEmail compares two addresses the way the backend stores them: trimmed, case-insensitive.
func SameEmail(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
