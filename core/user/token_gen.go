package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	tokenSalt = []byte("academia.core.user.password-reset")

	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// tokenGenerator issues stateless password reset tokens of the form "<issued-at, base36>.<signature>".
// The signature covers the password hash and last login, so a new password or login voids older tokens.
type tokenGenerator struct {
	key     [sha256.Size]byte
	timeout time.Duration
	nowFunc func() time.Time // mockable
}

func newTokenGenerator(secretKey string, timeout time.Duration) *tokenGenerator {
	return &tokenGenerator{
		key:     sha256.Sum256(append(append([]byte{}, tokenSalt...), secretKey...)),
		timeout: timeout,
		nowFunc: time.Now,
	}
}

// EncodeUID hides the raw user ID in reset links.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (g *tokenGenerator) makeToken(usr User) string {
	return g.tokenAt(usr, g.nowFunc().Unix())
}

func (g *tokenGenerator) verifyToken(usr User, token string) error {
	issued, _, ok := strings.Cut(token, ".")
	if !ok || issued == "" {
		return errInvalidToken
	}
	ts, err := strconv.ParseInt(issued, 36, 64)
	if err != nil || ts <= 0 {
		return errInvalidToken
	}

	if subtle.ConstantTimeCompare([]byte(g.tokenAt(usr, ts)), []byte(token)) != 1 {
		return errInvalidToken
	}
	if g.nowFunc().Sub(time.Unix(ts, 0)) > g.timeout {
		return errTokenExpired
	}
	return nil
}

func (g *tokenGenerator) tokenAt(usr User, ts int64) string {
	issued := strconv.FormatInt(ts, 36)

	mac := hmac.New(sha256.New, g.key[:])
	mac.Write([]byte(usr.ID))
	mac.Write(usr.PasswordHash)
	if !usr.LastLogin.IsZero() {
		mac.Write([]byte(usr.LastLogin.UTC().Format(time.RFC3339Nano)))
	}
	mac.Write([]byte(issued))

	return issued + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
