package echoapi_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/testutil"
)

func Test_userApi_login(t *testing.T) {
	fx := setup(t)
	testutil.CreateUser(t, fx.usrRepo, "Hero", "hero", "hero@test.cd", "pwd.hero", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, fx.usrRepo, "N Dog", "ndog", "ndog@test.cd", "pwd.ndog", []string{user.RoleStudent}, false)

	body := func(uname, pwd string) []byte {
		return marchallObj(t, echoapi.LoginRequest{Username: uname, Password: pwd})
	}
	tests := []httpTest{
		{name: "missing fields", body: body("", ""), wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{
			"username": "username is a required field",
			"password": "password is a required field",
		})},
		{name: "wrong password", body: body("hero", "nope"), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"})},
		{name: "unknown user", body: body("zero", "pwd.hero"), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"})},
		{name: "by email", body: body("HERO@test.cd", "pwd.hero"), wantCode: http.StatusOK},
		{name: "by username", body: body("hero", "pwd.hero"), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			fx.app.ServeHTTP(rec, req)
			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				return
			}
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"token"`)
		})
	}

	t.Run("inactive user", func(t *testing.T) {
		fx.do(t, http.MethodPost, "/v1/users/login", "", echoapi.LoginRequest{Username: "ndog", Password: "pwd.ndog"}, http.StatusForbidden, nil)
	})
}

func Test_userApi_query(t *testing.T) {
	fx := setup(t)

	now := time.Now()
	usr1 := testutil.CreateUser(t, fx.usrRepo, "User", "awe", "awe@test.cd", "", nil, true, now.Add(1*time.Hour))
	student := testutil.CreateUser(t, fx.usrRepo, "Hero", "hero", "user3@test.cd", "", []string{user.RoleStudent}, true, now.Add(2*time.Hour))
	admin := testutil.CreateUser(t, fx.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true, now.Add(3*time.Hour))
	teacher := testutil.CreateUser(t, fx.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true, now.Add(4*time.Hour))

	adminToken := fx.getToken(t, admin)
	path := func(v url.Values) string { return "/v1/users?" + v.Encode() }

	fx.run(t, []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: fx.getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Get all", path: "/v1/users", token: adminToken, wantData: marchallList(t, usr1, student, admin, teacher)},
		{name: "search", path: path(url.Values{"search": {"her"}}), token: adminToken, wantData: marchallList(t, student, teacher)},
		{name: "role", path: path(url.Values{"role": {user.RoleTeacher}}), token: adminToken, wantData: marchallList(t, teacher)},
		{name: "order by name", path: path(url.Values{"ordering": {"name"}}), token: adminToken, wantData: marchallList(t, admin, student, teacher, usr1)},
		{name: "unknown ordering ignored", path: path(url.Values{"ordering": {"password_hash"}}), token: adminToken, wantData: marchallList(t, usr1, student, admin, teacher)},
	})
}

func Test_userApi_me(t *testing.T) {
	fx := setup(t)
	student := testutil.CreateUser(t, fx.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	naughty := testutil.CreateUser(t, fx.usrRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleStudent}, false)

	fx.run(t, []httpTest{
		{name: "Auth required", path: "/v1/users/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Invalid token", path: "/v1/users/me", token: "not.a.token", wantCode: http.StatusUnauthorized},
		{name: "Inactive user", path: "/v1/users/me", token: fx.getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Me", path: "/v1/users/me", token: fx.getToken(t, student), wantData: marchallObj(t, student)},
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	fx := setup(t)
	student := testutil.CreateUser(t, fx.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)

	now := time.Now()
	unrefreshable := jwt.NewWithClaims(jwt.SigningMethodHS256, &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    fx.conf.AppName,
			Subject:   student.ID,
			ExpiresAt: now.Add(fx.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * fx.conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		Roles:        student.Roles,
	})
	unrefreshableToken, err := unrefreshable.SignedString([]byte(fx.conf.SecretKey))
	require.NoError(t, err)

	fx.run(t, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/users/token-refresh", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Refresh period expired", method: http.MethodPost, path: "/v1/users/token-refresh", token: unrefreshableToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", method: http.MethodPost, path: "/v1/users/token-refresh", token: fx.getToken(t, student)},
	})
}

func Test_userApi_create(t *testing.T) {
	fx := setup(t)
	admin := testutil.CreateUser(t, fx.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	owner := testutil.CreateUser(t, fx.usrRepo, "Owner", "owner", "owner@test.cd", "", []string{user.RoleAdminOwner}, true)
	testutil.CreateUser(t, fx.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)

	newUser := func(uname, email string, roles ...string) user.NewUser {
		return user.NewUser{Name: "New", Username: uname, Email: email, Password: "p4ss.w0rd", PasswordConfirm: "p4ss.w0rd", Roles: roles}
	}

	t.Run("taken username", func(t *testing.T) {
		fx.do(t, http.MethodPost, "/v1/users/register", fx.getToken(t, admin), newUser("hero", "other@test.cd"), http.StatusBadRequest, nil)
	})
	t.Run("cannot grant a higher role", func(t *testing.T) {
		var got map[string]string
		fx.do(t, http.MethodPost, "/v1/users/register", fx.getToken(t, admin), newUser("boss", "boss@test.cd", user.RoleAdminOwner), http.StatusBadRequest, &got)
		assert.Equal(t, "not enough rights to set these roles", got["roles"])
	})
	t.Run("created", func(t *testing.T) {
		var got user.User
		fx.do(t, http.MethodPost, "/v1/users/register", fx.getToken(t, owner), newUser("boss", "boss@test.cd", user.RoleAdminPrincipal), http.StatusCreated, &got)
		assert.Equal(t, "boss", got.Username)
		assert.Equal(t, []string{user.RoleAdminPrincipal}, got.Roles)
	})
}

func Test_userApi_detail(t *testing.T) {
	fx := setup(t)
	admin := testutil.CreateUser(t, fx.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, fx.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	other := testutil.CreateUser(t, fx.usrRepo, "Zero", "zero", "zero@test.cd", "", []string{user.RoleStudent}, true)

	studentToken := fx.getToken(t, student)
	fx.run(t, []httpTest{
		{name: "own profile", path: "/v1/users/" + student.ID, token: studentToken, wantData: marchallObj(t, student)},
		{name: "other profile hidden", path: "/v1/users/" + other.ID, token: studentToken, wantCode: http.StatusNotFound},
		{name: "admin sees all", path: "/v1/users/" + other.ID, token: fx.getToken(t, admin), wantData: marchallObj(t, other)},
		{
			name: "students cannot change their roles", method: http.MethodPut, path: "/v1/users/" + student.ID, token: studentToken,
			body: marchallObj(t, user.UpdateUser{Roles: []string{user.RoleAdmin}}), wantCode: http.StatusForbidden,
		},
		{name: "no self deletion", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: fx.getToken(t, admin), wantCode: http.StatusForbidden},
		{name: "deleted", method: http.MethodDelete, path: "/v1/users/" + other.ID, token: fx.getToken(t, admin), wantCode: http.StatusNoContent},
	})

	t.Run("name updated", func(t *testing.T) {
		var got user.User
		fx.do(t, http.MethodPut, "/v1/users/"+student.ID, studentToken, user.UpdateUser{Name: "Super Hero"}, http.StatusOK, &got)
		assert.Equal(t, "Super Hero", got.Name)
	})
}

func Test_userApi_passwordReset(t *testing.T) {
	fx := setup(t)
	testutil.CreateUser(t, fx.usrRepo, "Hero", "hero", "hero@test.cd", "pwd.hero", []string{user.RoleStudent}, true)

	ok := marchallObj(t, echoapi.SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
	fx.run(t, []httpTest{
		{name: "invalid email", method: http.MethodPost, path: "/v1/users/password-reset", body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol"}), wantCode: http.StatusBadRequest},
		{name: "unknown email", method: http.MethodPost, path: "/v1/users/password-reset", body: marchallObj(t, echoapi.PasswordResetRequest{Email: "zero@test.cd"}), wantData: ok},
		{name: "known email", method: http.MethodPost, path: "/v1/users/password-reset", body: marchallObj(t, echoapi.PasswordResetRequest{Email: "hero@test.cd"}), wantData: ok},
	})
	assert.Len(t, fx.mailSvc.SentMessages(), 1)
}

func Test_userApi_confirmPasswordReset(t *testing.T) {
	fx := setup(t)
	testutil.CreateUser(t, fx.usrRepo, "Hero", "hero", "hero@test.cd", "pwd.hero", []string{user.RoleStudent}, true)

	fx.do(t, http.MethodPost, "/v1/users/password-reset", "", echoapi.PasswordResetRequest{Email: "hero@test.cd"}, http.StatusOK, nil)
	msgs := fx.mailSvc.SentMessages()
	require.Len(t, msgs, 1)
	data, ok := msgs[0].TemplateData.(map[string]interface{})
	require.True(t, ok)
	link, err := url.Parse(data["URL"].(string))
	require.NoError(t, err)
	uid, token := link.Query().Get("uid"), link.Query().Get("token")

	body := func(uid, token, pwd, confirm string) user.ResetUserPassword {
		return user.ResetUserPassword{UID: uid, Token: token, Password: pwd, PasswordConfirm: confirm}
	}
	path := "/v1/users/password-reset-confirm"
	newPwd := "Gr8.Tr4il-Runner"

	fx.do(t, http.MethodPost, path, "", body(uid, token, newPwd, "nope"), http.StatusBadRequest, nil)
	fx.do(t, http.MethodPost, path, "", body(uid, "kz3f0g.sig", newPwd, newPwd), http.StatusBadRequest, nil)
	fx.do(t, http.MethodPost, path, "", body("%%%", token, newPwd, newPwd), http.StatusBadRequest, nil)
	fx.do(t, http.MethodPost, path, "", body(uid, token, "12345678", "12345678"), http.StatusBadRequest, nil)
	fx.do(t, http.MethodPost, path, "", body(uid, token, newPwd, newPwd), http.StatusOK, nil)

	// the link is single use: the new password hash voids it
	fx.do(t, http.MethodPost, path, "", body(uid, token, newPwd+"2", newPwd+"2"), http.StatusBadRequest, nil)
	fx.do(t, http.MethodPost, "/v1/users/login", "", echoapi.LoginRequest{Username: "hero", Password: newPwd}, http.StatusOK, nil)
}
