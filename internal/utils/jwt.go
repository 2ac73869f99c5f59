package utils // package utils provides helpers for access tokens and logging

import (
	"errors"  // errors builds the sentinel returned for bad tokens
	"strconv" // strconv converts the numeric subject to and from its string form
	"time"    // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
)

// ErrInvalidToken is returned by ParseAccessToken for any token that is
// malformed, expired, signed with another key or missing claims.
var ErrInvalidToken = errors.New("invalid access token")

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// Claims are the identity facts the service reads from a token.
type Claims struct {
	UserID uint64
	Role   string
}

// NewAccessToken builds and signs an HS256 JWT for a user.  Tokens are
// normally issued by the external identity provider; the service mints its
// own only for tests and local tooling.  The JWT carries the standard sub,
// exp and iat claims plus role.
func NewAccessToken(secret string, userID uint64, role string, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(userID, 10),
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	// Sign the token with the provided secret and obtain the string form.
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw against secret and extracts its claims.
// The subject may be a decimal string or a JSON number.
func ParseAccessToken(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject anything that is not HMAC-signed.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	var uid uint64
	switch sub := mc["sub"].(type) {
	case string:
		uid, err = strconv.ParseUint(sub, 10, 64)
		if err != nil {
			return Claims{}, ErrInvalidToken
		}
	case float64:
		if sub < 1 {
			return Claims{}, ErrInvalidToken
		}
		uid = uint64(sub)
	default:
		return Claims{}, ErrInvalidToken
	}
	role, _ := mc["role"].(string)
	if uid == 0 || role == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: uid, Role: role}, nil
}
