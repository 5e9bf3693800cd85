package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/chat"
)

type chatApi struct {
	*Server
	svc *chat.Service
}

func registerChatAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := chatApi{Server: s, svc: s.deps.ChatSvc}

	cg := g.Group("/chat", jwt)
	cg.GET("/rooms", api.rooms)
	cg.POST("/rooms", api.createRoom)
	cg.POST("/direct/:userID", api.direct)
	cg.GET("/rooms/:id", api.room)
	cg.GET("/rooms/:id/messages", api.history)
	cg.POST("/rooms/:id/messages", api.send)
	cg.POST("/rooms/:id/members", api.addMember)
	cg.POST("/rooms/:id/leave", api.leave)
}

func (api *chatApi) createRoom(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data chat.NewRoom
	if err := api.bindValid(ctx, &data, "NewRoom"); err != nil {
		return err
	}
	r, err := api.svc.CreateRoom(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating room")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *chatApi) direct(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	r, err := api.svc.DirectRoom(ctx.Request().Context(), actor, ctx.Param("userID"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *chatApi) rooms(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	rooms, err := api.svc.Rooms(ctx.Request().Context(), actor)
	if err != nil {
		return err
	}
	if rooms == nil {
		rooms = []chat.Room{}
	}
	return ctx.JSON(http.StatusOK, rooms)
}

func (api *chatApi) room(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	r, err := api.svc.Room(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *chatApi) history(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var hq chat.HistoryQuery
	if err := ctx.Bind(&hq); err != nil {
		return errors.Wrap(err, "binding to HistoryQuery")
	}
	msgs, err := api.svc.History(ctx.Request().Context(), actor, ctx.Param("id"), hq)
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *chatApi) send(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data chat.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	m, err := api.svc.Send(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *chatApi) addMember(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data chat.AddMember
	if err := api.bindValid(ctx, &data, "AddMember"); err != nil {
		return err
	}
	r, err := api.svc.AddMember(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *chatApi) leave(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Leave(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
