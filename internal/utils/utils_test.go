package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 42, "DEPT_ADMIN", time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), tok.Exp, 2*time.Second)

	claims, err := ParseAccessToken("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, Claims{UserID: 42, Role: "DEPT_ADMIN"}, claims)
}

func TestParseAccessTokenRejects(t *testing.T) {
	good, err := NewAccessToken("s3cret", 42, "USER", time.Minute)
	require.NoError(t, err)
	expired, err := NewAccessToken("s3cret", 42, "USER", -time.Minute)
	require.NoError(t, err)
	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42", "exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42", "role": "USER",
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"wrong secret": good.Token,
		"expired":      expired.Token,
		"no role":      noRole,
		"no exp":       noExp,
		"garbage":      "a.b.c",
	} {
		t.Run(name, func(t *testing.T) {
			secret := "s3cret"
			if name == "wrong secret" {
				secret = "other"
			}
			_, err := ParseAccessToken(secret, raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestParseAccessTokenNumericSubject(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": 7, "role": "USER", "exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	claims, err := ParseAccessToken("k", raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.UserID)
}

func TestNewLogger(t *testing.T) {
	l := NewLogger("debug", "json")
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	l = NewLogger("nonsense", "")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)
}
