package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/live"
	"github.com/trezcool/academia/core/user"
)

type liveApi struct {
	*Server
	svc *live.Service
}

func registerLiveAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := liveApi{Server: s, svc: s.deps.LiveSvc}

	lg := g.Group("/lives", jwt)
	lg.GET("", api.list)
	lg.POST("", api.schedule, staffMiddleware())
	lg.GET("/:id", api.retrieve)
	lg.PUT("/:id", api.update, staffMiddleware())
	lg.POST("/:id/start", api.start, staffMiddleware())
	lg.POST("/:id/end", api.end, staffMiddleware())
	lg.POST("/:id/cancel", api.cancel, staffMiddleware())
	lg.GET("/:id/questions", api.questions)
	lg.POST("/:id/questions", api.ask)
	lg.POST("/:id/questions/:qid/answered", api.markAnswered, staffMiddleware())
}

func (api *liveApi) schedule(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data live.NewLive
	if err := api.bindValid(ctx, &data, "NewLive"); err != nil {
		return err
	}
	l, err := api.svc.Schedule(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "scheduling live")
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (api *liveApi) list(ctx echo.Context) error {
	var filter live.QueryFilter
	if err := api.bindValid(ctx, &filter, "QueryFilter"); err != nil {
		return err
	}
	lives, err := api.svc.List(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	if lives == nil {
		lives = []live.Live{}
	}
	return ctx.JSON(http.StatusOK, lives)
}

func (api *liveApi) retrieve(ctx echo.Context) error {
	l, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *liveApi) update(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data live.UpdateLive
	if err := api.bindValid(ctx, &data, "UpdateLive"); err != nil {
		return err
	}
	l, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *liveApi) start(ctx echo.Context) error {
	return api.transition(ctx, api.svc.Start)
}

func (api *liveApi) end(ctx echo.Context) error {
	return api.transition(ctx, api.svc.End)
}

func (api *liveApi) cancel(ctx echo.Context) error {
	return api.transition(ctx, api.svc.Cancel)
}

func (api *liveApi) transition(ctx echo.Context, fn func(context.Context, user.User, string) (live.Live, error)) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	l, err := fn(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *liveApi) questions(ctx echo.Context) error {
	qs, err := api.svc.Questions(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if qs == nil {
		qs = []live.Question{}
	}
	return ctx.JSON(http.StatusOK, qs)
}

func (api *liveApi) ask(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data live.NewQuestion
	if err := api.bindValid(ctx, &data, "NewQuestion"); err != nil {
		return err
	}
	q, err := api.svc.Ask(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *liveApi) markAnswered(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	q, err := api.svc.MarkAnswered(ctx.Request().Context(), actor, ctx.Param("id"), ctx.Param("qid"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, q)
}
