// Package scheduler runs the periodic jobs of lives: starting the due ones and reminding students.
package scheduler

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/live"
	"github.com/trezcool/academia/core/user"
)

const (
	startDueSpec  = "* * * * *"
	remindersSpec = "*/5 * * * *"
	jobTimeout    = time.Minute
)

type (
	LiveService interface {
		StartDue(ctx context.Context, now time.Time) ([]live.Live, error)
		DueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]live.Live, error)
		ClaimReminder(ctx context.Context, id string) (bool, error)
	}

	UserQuerier interface {
		Query(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error)
	}

	Scheduler struct {
		cron    *cron.Cron
		lives   LiveService
		users   UserQuerier
		mailSvc core.EmailService
		conf    *core.Config
		logger  core.Logger
	}
)

func New(lives LiveService, users UserQuerier, mailSvc core.EmailService, conf *core.Config, logger core.Logger) (*Scheduler, error) {
	s := &Scheduler{
		lives:   lives,
		users:   users,
		mailSvc: mailSvc,
		conf:    conf,
		logger:  logger,
	}
	cl := cronLogger{logger}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := s.cron.AddFunc(startDueSpec, s.job("start due lives", s.StartDueLives)); err != nil {
		return nil, errors.Wrap(err, "scheduling start due lives")
	}
	if _, err := s.cron.AddFunc(remindersSpec, s.job("live reminders", s.SendReminders)); err != nil {
		return nil, errors.Wrap(err, "scheduling live reminders")
	}
	return s, nil
}

func (s *Scheduler) job(name string, fn func(ctx context.Context, now time.Time) (int, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		n, err := fn(ctx, core.NowFunc())
		if err != nil {
			s.logger.Error(fmt.Sprintf("scheduler: %s: %v", name, err), err)
			return
		}
		if n > 0 {
			s.logger.Info(fmt.Sprintf("scheduler: %s: %d processed", name, n))
		}
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for the running jobs to complete, or for ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// StartDueLives starts the scheduled lives whose time has come.
func (s *Scheduler) StartDueLives(ctx context.Context, now time.Time) (int, error) {
	started, err := s.lives.StartDue(ctx, now)
	return len(started), err
}

// SendReminders emails the active students about every live starting within the configured lead.
// A live is reminded once.
func (s *Scheduler) SendReminders(ctx context.Context, now time.Time) (int, error) {
	due, err := s.lives.DueReminders(ctx, now, s.conf.Scheduler.LiveReminderLead)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	active := true
	students, err := s.users.Query(ctx, &user.QueryFilter{Roles: []string{user.RoleStudent}, IsActive: &active}, nil)
	if err != nil {
		return 0, errors.Wrap(err, "querying students")
	}

	sent := 0
	for _, l := range due {
		ok, err := s.lives.ClaimReminder(ctx, l.ID)
		if err != nil {
			return sent, errors.Wrapf(err, "claiming reminder of live %s", l.ID)
		}
		if !ok {
			continue // reminded by another run, started or cancelled meanwhile
		}

		msgs := make([]*core.EmailMessage, 0, len(students))
		for _, usr := range students {
			if usr.Email == "" {
				continue
			}
			msgs = append(msgs, s.reminder(usr, l))
		}
		s.mailSvc.SendMessages(msgs...)
		sent++
	}
	return sent, nil
}

func (s *Scheduler) reminder(usr user.User, l live.Live) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("%q starts soon", l.Title),
		TemplateName: "live_reminder",
		TemplateData: map[string]interface{}{
			"Name":     usr.Name,
			"Title":    l.Title,
			"StartsAt": l.ScheduledAt.UTC().Format("Mon, 02 Jan 2006 15:04 MST"),
			"URL":      fmt.Sprintf("%s/lives/%s", s.conf.FrontendBaseURL, l.ID),
		},
	}
}

// cronLogger sends the cron library logs to core.Logger.
type cronLogger struct {
	logger core.Logger
}

func (cl cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.logger.Debug("cron: "+msg, kvMap(keysAndValues))
}

func (cl cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	cl.logger.Error("cron: "+msg, err, kvMap(keysAndValues))
}

func kvMap(keysAndValues []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		m[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return m
}
