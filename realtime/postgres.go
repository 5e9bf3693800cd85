package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

const (
	// Postgres rejects NOTIFY payloads of 8000 bytes or more.
	maxNotifyPayload = 7999

	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
)

// PGBroker publishes events with pg_notify and feeds a local Hub from LISTEN,
// so that subscribers of every API instance receive them.
type PGBroker struct {
	db       *sqlx.DB
	listener *pq.Listener
	channel  string
	hub      *Hub
	logger   core.Logger

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

var _ Broker = (*PGBroker)(nil)

func NewPGBroker(db *sqlx.DB, dsn, channel string, hub *Hub, logger core.Logger) (*PGBroker, error) {
	listener := pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Error("realtime: listener event", err)
		}
	})
	if err := listener.Listen(channel); err != nil {
		_ = listener.Close()
		return nil, errors.Wrap(err, "listening on "+channel)
	}

	b := &PGBroker{
		db:       db,
		listener: listener,
		channel:  channel,
		hub:      hub,
		logger:   logger,
		done:     make(chan struct{}),
	}
	b.wg.Add(1)
	go b.loop()
	return b, nil
}

func (b *PGBroker) loop() {
	defer b.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case n, ok := <-b.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// reconnected: notifications sent meanwhile are lost
				b.logger.Info("realtime: listener reconnected")
				continue
			}
			var evt core.Event
			if err := json.Unmarshal([]byte(n.Extra), &evt); err != nil {
				b.logger.Error("realtime: decoding notification", err)
				continue
			}
			if err := b.hub.Publish(context.Background(), evt); err != nil && err != ErrClosed {
				b.logger.Error("realtime: publishing notification", err)
			}
		case <-ticker.C:
			if err := b.listener.Ping(); err != nil {
				b.logger.Warn("realtime: listener ping", err)
			}
		}
	}
}

// Publish notifies every instance. Events too large for NOTIFY are only published locally.
func (b *PGBroker) Publish(ctx context.Context, evt core.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "marshalling event")
	}
	if len(payload) > maxNotifyPayload {
		b.logger.Warn("realtime: event too large to notify, publishing locally", map[string]interface{}{
			"topic": evt.Topic,
			"type":  evt.Type,
			"size":  len(payload),
		})
		return b.hub.Publish(ctx, evt)
	}
	if _, err := b.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", b.channel, string(payload)); err != nil {
		return errors.Wrap(err, "notifying event")
	}
	return nil
}

func (b *PGBroker) Subscribe(topic string) (*Subscription, error) {
	return b.hub.Subscribe(topic)
}

func (b *PGBroker) Close() error {
	var err error
	b.once.Do(func() {
		close(b.done)
		err = b.listener.Close()
		b.wg.Wait()
		_ = b.hub.Close()
	})
	return err
}
