// Package echoapi serves the HTTP and websocket API.
package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/ai"
	"github.com/trezcool/academia/core/chat"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/exam"
	"github.com/trezcool/academia/core/forum"
	"github.com/trezcool/academia/core/library"
	"github.com/trezcool/academia/core/live"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/realtime"
)

type (
	// Deps lists the services served by the API.
	Deps struct {
		UserSvc    *user.Service
		CourseSvc  *course.Service
		LiveSvc    *live.Service
		ForumSvc   *forum.Service
		ChatSvc    *chat.Service
		LibrarySvc *library.Service
		ExamSvc    *exam.Service
		AISvc      *ai.Service
		Broker     realtime.Broker
	}

	Server struct {
		conf       *core.Config
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
		auth       *authenticator
		deps       Deps
		app        *echo.Echo
		shutdown   chan os.Signal
		errors     chan error
	}
)

func NewServer(conf *core.Config, logger core.Logger, validate *validator.Validate, translator ut.Translator, deps Deps) *Server {
	s := &Server{
		conf:       conf,
		logger:     logger,
		validate:   validate,
		translator: translator,
		auth:       newAuthenticator(conf, deps.UserSvc),
		deps:       deps,
		app:        echo.New(),
		shutdown:   make(chan os.Signal, 1),
		errors:     make(chan error, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: s.conf.Server.AllowedOrigins}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, s.translator, s.signalShutdown)
	s.app.Debug = s.conf.Debug && !s.conf.TestMode

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := s.auth.middleware()

	registerUserAPI(v1, jwt, s)
	registerCourseAPI(v1, jwt, s)
	registerLiveAPI(v1, jwt, s)
	registerForumAPI(v1, jwt, s)
	registerChatAPI(v1, jwt, s)
	registerLibraryAPI(v1, jwt, s)
	registerExamAPI(v1, jwt, s)
	registerAIAPI(v1, jwt, s)
	registerRealtimeAPI(v1, s)
}

// Start listens until the server is shut down. Failures are sent to Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errors <- errors.Wrap(err, "starting server")
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

// Token returns a signed access token for usr.
func (s *Server) Token(usr user.User) (string, error) {
	return s.auth.generateToken(s.auth.claims(usr))
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
