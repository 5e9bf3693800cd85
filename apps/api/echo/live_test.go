package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/live"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/testutil"
)

func Test_liveApi(t *testing.T) {
	fx := setup(t)
	teacher := testutil.CreateUser(t, fx.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, fx.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	teacherToken := fx.getToken(t, teacher)
	studentToken := fx.getToken(t, student)

	t.Run("cannot schedule in the past", func(t *testing.T) {
		var got map[string]string
		fx.do(t, http.MethodPost, "/v1/lives", teacherToken,
			live.NewLive{Title: "Late", ScheduledAt: time.Now().Add(-time.Hour)}, http.StatusBadRequest, &got)
		assert.Equal(t, "scheduled_at must be in the future", got["scheduled_at"])
	})
	t.Run("students cannot schedule", func(t *testing.T) {
		fx.do(t, http.MethodPost, "/v1/lives", studentToken,
			live.NewLive{Title: "Mine", ScheduledAt: time.Now().Add(time.Hour)}, http.StatusForbidden, nil)
	})

	var l live.Live
	fx.do(t, http.MethodPost, "/v1/lives", teacherToken,
		live.NewLive{Title: "Revision", ScheduledAt: time.Now().Add(time.Hour)}, http.StatusCreated, &l)
	assert.Equal(t, live.StatusScheduled, l.Status)
	livePath := "/v1/lives/" + l.ID

	fx.run(t, []httpTest{
		{name: "unknown status filter", path: "/v1/lives?status=lol", token: studentToken, wantCode: http.StatusBadRequest},
		{name: "list by status", path: "/v1/lives?status=scheduled", token: studentToken, wantData: marchallList(t, l)},
		{name: "students cannot start", method: http.MethodPost, path: livePath + "/start", token: studentToken, wantCode: http.StatusForbidden},
		{name: "cannot end before start", method: http.MethodPost, path: livePath + "/end", token: teacherToken, wantCode: http.StatusBadRequest},
	})

	var q live.Question
	fx.do(t, http.MethodPost, livePath+"/questions", studentToken, live.NewQuestion{Body: "What is a matrix?"}, http.StatusCreated, &q)
	fx.do(t, http.MethodPost, livePath+"/start", teacherToken, nil, http.StatusOK, &l)
	assert.Equal(t, live.StatusLive, l.Status)

	fx.do(t, http.MethodPost, livePath+"/questions/"+q.ID+"/answered", teacherToken, nil, http.StatusOK, &q)
	assert.True(t, q.Answered)

	fx.do(t, http.MethodPost, livePath+"/end", teacherToken, nil, http.StatusOK, &l)
	require.Equal(t, live.StatusEnded, l.Status)

	t.Run("questions closed once ended", func(t *testing.T) {
		fx.do(t, http.MethodPost, livePath+"/questions", studentToken, live.NewQuestion{Body: "Too late?"}, http.StatusBadRequest, nil)
		var qs []live.Question
		fx.do(t, http.MethodGet, livePath+"/questions", studentToken, nil, http.StatusOK, &qs)
		assert.Len(t, qs, 1)
	})
}
