package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenGenerator(t *testing.T) {
	gen := newTokenGenerator("secret", 72*time.Hour)
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	gen.nowFunc = func() time.Time { return now }

	usr := User{ID: "1", Username: "t", Email: "t@test.test", IsActive: true, LastLogin: now.Add(-time.Hour)}
	require.NoError(t, usr.SetPassword("pwd"))

	validToken := gen.makeToken(usr)

	gen.nowFunc = func() time.Time { return now.Add(-73 * time.Hour) }
	expiredToken := gen.makeToken(usr)
	gen.nowFunc = func() time.Time { return now }

	changedUsr := usr
	require.NoError(t, changedUsr.SetPassword("pwd2"))

	loggedInUsr := usr
	loggedInUsr.LastLogin = now

	otherKey := newTokenGenerator("other", 72*time.Hour)
	otherKey.nowFunc = gen.nowFunc

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "no separator", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "bad timestamp", usr: usr, token: "!!.sig", wantErr: errInvalidToken},
		{name: "forged signature", usr: usr, token: "kz3f0g.sig", wantErr: errInvalidToken},
		{name: "other secret", usr: usr, token: otherKey.makeToken(usr), wantErr: errInvalidToken},
		{name: "expired", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "password changed", usr: changedUsr, token: validToken, wantErr: errInvalidToken},
		{name: "logged in since", usr: loggedInUsr, token: validToken, wantErr: errInvalidToken},
		{name: "valid", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, gen.verifyToken(tt.usr, tt.token))
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "5f1d7c1e-1b7e-4f59-9a4b-2b0c1cbe2d7a"}
	got, err := decodeUID(EncodeUID(usr))
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got)

	_, err = decodeUID("%%%")
	assert.Error(t, err)
}
