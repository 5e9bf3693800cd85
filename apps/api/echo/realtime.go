package echoapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/chat"
	"github.com/trezcool/academia/core/forum"
	"github.com/trezcool/academia/core/live"
	"github.com/trezcool/academia/core/user"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var errUnknownTopic = echo.NewHTTPError(http.StatusNotFound, "unknown topic")

type realtimeApi struct {
	*Server
	upgrader websocket.Upgrader
}

func registerRealtimeAPI(g *echo.Group, s *Server) {
	api := realtimeApi{
		Server: s,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     s.checkOrigin,
		},
	}
	// browsers cannot set headers on websocket handshakes: the token travels in the query
	g.GET("/realtime/:topic", api.subscribe)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.conf.Server.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (api *realtimeApi) authorize(ctx echo.Context) (user.User, error) {
	claims, err := api.auth.parseToken(ctx.QueryParam("token"))
	if err != nil {
		return user.User{}, err
	}
	usr, err := api.deps.UserSvc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	return usr, nil
}

// canSubscribe checks `usr` may follow `topic`: chat rooms are for their members, forums and lives for everyone.
// For chat rooms it also returns the check to repeat before forwarding each event, since members may leave.
func (api *realtimeApi) canSubscribe(ctx context.Context, usr user.User, topic string) (func(context.Context) error, error) {
	kind, id, ok := strings.Cut(topic, ":")
	if !ok || id == "" {
		return nil, errUnknownTopic
	}
	switch kind {
	case chat.TopicKind:
		isMember := func(ctx context.Context) error {
			member, err := api.deps.ChatSvc.IsMember(ctx, usr.ID, id)
			if err != nil {
				return errors.Wrap(err, "checking room membership")
			}
			if !member {
				return errHttpForbidden
			}
			return nil
		}
		return isMember, isMember(ctx)
	case forum.TopicKind:
		_, err := api.deps.ForumSvc.Get(ctx, id)
		return nil, err
	case live.TopicKind:
		_, err := api.deps.LiveSvc.Get(ctx, id)
		return nil, err
	}
	return nil, errUnknownTopic
}

func (api *realtimeApi) subscribe(ctx echo.Context) error {
	usr, err := api.authorize(ctx)
	if err != nil {
		return err
	}
	topic := ctx.Param("topic")
	recheck, err := api.canSubscribe(ctx.Request().Context(), usr, topic)
	if err != nil {
		return err
	}

	sub, err := api.deps.Broker.Subscribe(topic)
	if err != nil {
		return errors.Wrap(err, "subscribing to "+topic)
	}
	defer sub.Close()

	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader already replied
		return nil
	}
	defer conn.Close()

	// reads only serve pongs and close frames
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				// dropped or broker closed
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return nil
			}
			if recheck != nil {
				if err := recheck(ctx.Request().Context()); err != nil {
					if errors.Cause(err) != errHttpForbidden {
						api.logger.Error("rechecking realtime access to "+topic, err, usr)
					}
					_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "access revoked"))
					return nil
				}
			}
			if err := conn.WriteJSON(evt); err != nil {
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-done:
			return nil
		}
	}
}
