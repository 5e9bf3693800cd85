package realtime_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/realtime"
	logsvc "github.com/trezcool/academia/services/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newHub(buffer int) *realtime.Hub {
	logger := logsvc.NewRollbarLogger(zap.NewNop(), core.NewTestConfig())
	logger.Enable(false)
	return realtime.NewHub(buffer, logger)
}

func event(t *testing.T, topic, typ string, data interface{}) core.Event {
	t.Helper()
	evt, err := core.NewEvent(topic, typ, data)
	require.NoError(t, err)
	return evt
}

func TestHub_PublishSubscribe(t *testing.T) {
	ctx := context.Background()
	hub := newHub(8)
	defer hub.Close()

	chat1, err := hub.Subscribe("chat:1")
	require.NoError(t, err)
	chat1Bis, err := hub.Subscribe("chat:1")
	require.NoError(t, err)
	chat2, err := hub.Subscribe("chat:2")
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Subscribers("chat:1"))

	for i := 0; i < 3; i++ {
		require.NoError(t, hub.Publish(ctx, event(t, "chat:1", "message.created", i)))
	}

	for _, sub := range []*realtime.Subscription{chat1, chat1Bis} {
		for i := 0; i < 3; i++ {
			evt := <-sub.Events()
			assert.Equal(t, "chat:1", evt.Topic)
			assert.JSONEq(t, fmt.Sprint(i), string(evt.Data))
		}
	}
	assert.Len(t, chat2.Events(), 0)

	chat1.Close()
	chat1.Close() // no-op
	_, open := <-chat1.Events()
	assert.False(t, open)
	assert.Equal(t, 1, hub.Subscribers("chat:1"))
}

func TestHub_DropsSlowSubscribers(t *testing.T) {
	ctx := context.Background()
	hub := newHub(2)
	defer hub.Close()

	slow, err := hub.Subscribe("forum:1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, hub.Publish(ctx, event(t, "forum:1", "post.created", i)))
	}
	assert.Equal(t, 0, hub.Subscribers("forum:1"))

	var got int
	for range slow.Events() {
		got++
	}
	assert.Equal(t, 2, got)
}

func TestHub_Close(t *testing.T) {
	hub := newHub(1)
	subs := make([]*realtime.Subscription, 0, 5)
	for i := 0; i < 5; i++ {
		sub, err := hub.Subscribe(fmt.Sprintf("live:%d", i%2))
		require.NoError(t, err)
		subs = append(subs, sub)
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *realtime.Subscription) {
			defer wg.Done()
			for range sub.Events() {
			}
		}(sub)
	}

	require.NoError(t, hub.Close())
	wg.Wait()
	require.NoError(t, hub.Close())

	_, err := hub.Subscribe("live:0")
	assert.Equal(t, realtime.ErrClosed, err)
	assert.Equal(t, realtime.ErrClosed, hub.Publish(context.Background(), event(t, "live:0", "live.status", nil)))
	subs[0].Close() // no-op after Close
}

func TestHub_ConcurrentPublish(t *testing.T) {
	ctx := context.Background()
	hub := newHub(1000)
	defer hub.Close()

	sub, err := hub.Subscribe("chat:1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				evt, _ := core.NewEvent("chat:1", "message.created", w*100+i)
				_ = hub.Publish(ctx, evt)
			}
		}(w)
	}
	wg.Wait()
	assert.Len(t, sub.Events(), 400)
}
