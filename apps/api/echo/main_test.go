package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/ai"
	"github.com/trezcool/academia/core/chat"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/exam"
	"github.com/trezcool/academia/core/forum"
	"github.com/trezcool/academia/core/library"
	"github.com/trezcool/academia/core/live"
	"github.com/trezcool/academia/core/user"
	appfs "github.com/trezcool/academia/fs"
	"github.com/trezcool/academia/realtime"
	emailsvc "github.com/trezcool/academia/services/email"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type fixture struct {
	conf       *core.Config
	app        *echoapi.Server
	hub        *realtime.Hub
	usrRepo    user.Repository
	courseRepo course.Repository
	liveRepo   live.Repository
	mailSvc    interface{ SentMessages() []core.EmailMessage }
}

// letterEmbedder embeds a text as its letter frequencies.
type letterEmbedder struct{}

func (letterEmbedder) EmbedDocument(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	return vec, nil
}

func (e letterEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.EmbedDocument(ctx, text)
}

// setup builds a server over a fresh in-memory DB. The AI flows use `model` when given.
func setup(t *testing.T, model ...ai.Model) fixture {
	t.Helper()
	var aiModel ai.Model = ai.Unconfigured
	if len(model) > 0 {
		aiModel = model[0]
	}
	conf := core.NewTestConfig()
	logger := testutil.NewLogger(conf)
	validate, translator := testutil.NewValidation()
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, true, logger)

	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	courseRepo := inmemdb.NewCourseRepository(db)
	liveRepo := inmemdb.NewLiveRepository(db)

	hub := realtime.NewHub(realtime.DefaultBuffer, logger)
	t.Cleanup(func() { _ = hub.Close() })

	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)

	app := echoapi.NewServer(conf, logger, validate, translator, echoapi.Deps{
		UserSvc:    usrSvc,
		CourseSvc:  course.NewService(courseRepo, logger),
		LiveSvc:    live.NewService(liveRepo, courseRepo, hub, logger),
		ForumSvc:   forum.NewService(inmemdb.NewForumRepository(db), hub, logger),
		ChatSvc:    chat.NewService(inmemdb.NewChatRepository(db), usrSvc, courseRepo, hub, logger),
		LibrarySvc: library.NewService(inmemdb.NewLibraryRepository(db), letterEmbedder{}, logger),
		ExamSvc:    exam.NewService(inmemdb.NewExamRepository(db), courseRepo, logger),
		AISvc:      ai.NewService(inmemdb.NewEssayRepository(db), aiModel, conf, logger),
		Broker:     hub,
	})

	return fixture{
		conf:       conf,
		app:        app,
		hub:        hub,
		usrRepo:    usrRepo,
		courseRepo: courseRepo,
		liveRepo:   liveRepo,
		mailSvc:    mailSvc,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (fx fixture) getToken(t *testing.T, usr user.User) string {
	token, err := fx.app.Token(usr)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

// do runs a request and decodes the JSON response into `out` when given.
func (fx fixture) do(t *testing.T, method, path, token string, body interface{}, wantCode int, out interface{}) {
	t.Helper()
	var data []byte
	if body != nil {
		data = marchallObj(t, body)
	}
	req, rec := newAuthRequest(method, path, token, data)
	fx.app.ServeHTTP(rec, req)
	require.Equal(t, wantCode, rec.Code, rec.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
}

func (fx fixture) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			fx.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
