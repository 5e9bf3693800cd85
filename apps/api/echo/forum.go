package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/forum"
)

type forumApi struct {
	*Server
	svc *forum.Service
}

func registerForumAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := forumApi{Server: s, svc: s.deps.ForumSvc}

	fg := g.Group("/forums", jwt)
	fg.GET("", api.list)
	fg.POST("", api.create, staffMiddleware())
	fg.GET("/:id", api.retrieve)
	fg.PUT("/:id", api.update, staffMiddleware())
	fg.DELETE("/:id", api.destroy, staffMiddleware())
	fg.POST("/:id/lock", api.lock, staffMiddleware())
	fg.POST("/:id/unlock", api.unlock, staffMiddleware())
	fg.GET("/:id/posts", api.posts)
	fg.POST("/:id/posts", api.post)

	pg := g.Group("/posts", jwt)
	pg.GET("/:id", api.retrievePost)
	pg.PUT("/:id", api.editPost)
	pg.DELETE("/:id", api.destroyPost)
	pg.POST("/:id/replies", api.reply)
}

func (api *forumApi) create(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data forum.NewForum
	if err := api.bindValid(ctx, &data, "NewForum"); err != nil {
		return err
	}
	f, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating forum")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *forumApi) list(ctx echo.Context) error {
	var filter forum.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []forum.Forum{})
	}
	forums, err := api.svc.List(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	if forums == nil {
		forums = []forum.Forum{}
	}
	return ctx.JSON(http.StatusOK, forums)
}

func (api *forumApi) retrieve(ctx echo.Context) error {
	f, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *forumApi) update(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data forum.UpdateForum
	if err := api.bindValid(ctx, &data, "UpdateForum"); err != nil {
		return err
	}
	f, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *forumApi) destroy(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *forumApi) lock(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	f, err := api.svc.Lock(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *forumApi) unlock(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	f, err := api.svc.Unlock(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *forumApi) posts(ctx echo.Context) error {
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	posts, err := api.svc.Posts(ctx.Request().Context(), ctx.Param("id"), page)
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []forum.Post{}
	}
	return ctx.JSON(http.StatusOK, posts)
}

func (api *forumApi) post(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data forum.NewPost
	if err := api.bindValid(ctx, &data, "NewPost"); err != nil {
		return err
	}
	p, err := api.svc.Post(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *forumApi) retrievePost(ctx echo.Context) error {
	p, err := api.svc.GetPost(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *forumApi) editPost(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data forum.UpdatePost
	if err := api.bindValid(ctx, &data, "UpdatePost"); err != nil {
		return err
	}
	p, err := api.svc.EditPost(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *forumApi) destroyPost(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeletePost(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *forumApi) reply(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data forum.UpdatePost
	if err := api.bindValid(ctx, &data, "UpdatePost"); err != nil {
		return err
	}
	p, err := api.svc.Reply(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, p)
}
