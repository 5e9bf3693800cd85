// Package dig_container wires the API dependencies with go.uber.org/dig.
package dig_container

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

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
	"github.com/trezcool/academia/realtime"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/services/scheduler"
	"github.com/trezcool/academia/storage/database"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Repositories are backed by Postgres, or by memory when conf.Database.InMemory is set.
	Repositories struct {
		dig.Out

		Users   user.Repository
		Courses course.Repository
		Lives   live.Repository
		Forums  forum.Repository
		Chats   chat.Repository
		Library library.Repository
		Exams   exam.Repository
		Essays  ai.Repository

		LiveTrails live.TrailFinder
		ChatTrails chat.TrailFinder
		ExamTrails exam.TrailFinder
	}

	AIParam struct {
		dig.Out
		Model    ai.Model
		Embedder library.Embedder
	}

	BrokerParam struct {
		dig.Out
		Broker    realtime.Broker
		Publisher core.EventPublisher
	}

	ServerParam struct {
		dig.In

		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

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
)

func newZapLogger(conf *core.Config) (*zap.Logger, error) {
	return logsvc.NewZapLogger(conf)
}

func newLogger(conf *core.Config, zl *zap.Logger) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config, zl *zap.Logger) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("db"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

// newDB returns nil when running in memory.
func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	if conf.Database.InMemory {
		return nil
	}
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newRepositories(conf *core.Config, db *sqlx.DB) Repositories {
	if conf.Database.InMemory {
		mem := inmemdb.Open()
		courses := inmemdb.NewCourseRepository(mem)
		return Repositories{
			Users:      inmemdb.NewUserRepository(mem),
			Courses:    courses,
			Lives:      inmemdb.NewLiveRepository(mem),
			Forums:     inmemdb.NewForumRepository(mem),
			Chats:      inmemdb.NewChatRepository(mem),
			Library:    inmemdb.NewLibraryRepository(mem),
			Exams:      inmemdb.NewExamRepository(mem),
			Essays:     inmemdb.NewEssayRepository(mem),
			LiveTrails: courses,
			ChatTrails: courses,
			ExamTrails: courses,
		}
	}

	courses := sqlxrepos.NewCourseRepository(db)
	return Repositories{
		Users:      sqlxrepos.NewUserRepository(db),
		Courses:    courses,
		Lives:      sqlxrepos.NewLiveRepository(db),
		Forums:     sqlxrepos.NewForumRepository(db),
		Chats:      sqlxrepos.NewChatRepository(db),
		Library:    sqlxrepos.NewLibraryRepository(db),
		Exams:      sqlxrepos.NewExamRepository(db),
		Essays:     sqlxrepos.NewEssayRepository(db),
		LiveTrails: courses,
		ChatTrails: courses,
		ExamTrails: courses,
	}
}

// newAI falls back to the Unconfigured model when no API key is set.
func newAI(conf *core.Config, logger core.Logger) (AIParam, error) {
	g, err := ai.NewGemini(context.Background(), conf.AI)
	if err != nil {
		if errors.Cause(err) == ai.ErrNotConfigured {
			logger.Warn("AI features disabled: no API key configured")
			return AIParam{Model: ai.Unconfigured, Embedder: ai.Unconfigured}, nil
		}
		return AIParam{}, err
	}
	return AIParam{Model: g, Embedder: g}, nil
}

func newBroker(conf *core.Config, db *sqlx.DB, logger core.Logger) (BrokerParam, error) {
	hub := realtime.NewHub(realtime.DefaultBuffer, logger)
	if !conf.Realtime.UsePostgres || db == nil {
		return BrokerParam{Broker: hub, Publisher: hub}, nil
	}
	b, err := realtime.NewPGBroker(db, database.DSN(conf.Database.Name, false, conf), conf.Realtime.Channel, hub, logger)
	if err != nil {
		return BrokerParam{}, err
	}
	return BrokerParam{Broker: b, Publisher: b}, nil
}

func newTranslator(validate *validator.Validate) ut.Translator {
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	live.InitValidators(validate, translator)
	library.InitValidators(validate, translator)
	return translator
}

func newChatService(repo chat.Repository, users *user.Service, trails chat.TrailFinder, pub core.EventPublisher, logger core.Logger) *chat.Service {
	return chat.NewService(repo, users, trails, pub, logger)
}

func newScheduler(lives *live.Service, users *user.Service, mailSvc core.EmailService, conf *core.Config, logger core.Logger) (*scheduler.Scheduler, error) {
	return scheduler.New(lives, users, mailSvc, conf, logger)
}

func newServer(p ServerParam) *echoapi.Server {
	return echoapi.NewServer(p.Conf, p.Logger, p.Validate, p.Translator, echoapi.Deps{
		UserSvc:    p.UserSvc,
		CourseSvc:  p.CourseSvc,
		LiveSvc:    p.LiveSvc,
		ForumSvc:   p.ForumSvc,
		ChatSvc:    p.ChatSvc,
		LibrarySvc: p.LibrarySvc,
		ExamSvc:    p.ExamSvc,
		AISvc:      p.AISvc,
		Broker:     p.Broker,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newZapLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newRepositories))
	must(c.Provide(newAI))
	must(c.Provide(newBroker))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))

	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(live.NewService))
	must(c.Provide(forum.NewService))
	must(c.Provide(newChatService))
	must(c.Provide(library.NewService))
	must(c.Provide(exam.NewService))
	must(c.Provide(ai.NewService))
	must(c.Provide(newScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
