package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/library"
	"github.com/trezcool/academia/core/user"
)

type libraryApi struct {
	*Server
	svc *library.Service
}

func registerLibraryAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := libraryApi{Server: s, svc: s.deps.LibrarySvc}

	lg := g.Group("/library", jwt)
	lg.GET("", api.list)
	lg.POST("", api.create, staffMiddleware())
	lg.GET("/search", api.search)
	lg.POST("/reindex", api.reindex, adminMiddleware(user.RoleAdminOwner, user.RoleAdminPrincipal))
	lg.GET("/:id", api.retrieve)
	lg.PUT("/:id", api.update, staffMiddleware())
	lg.DELETE("/:id", api.destroy, staffMiddleware())
}

func (api *libraryApi) create(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data library.NewResource
	if err := api.bindValid(ctx, &data, "NewResource"); err != nil {
		return err
	}
	r, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating resource")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *libraryApi) list(ctx echo.Context) error {
	var filter library.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []library.Resource{})
	}
	resources, err := api.svc.List(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	if resources == nil {
		resources = []library.Resource{}
	}
	return ctx.JSON(http.StatusOK, resources)
}

func (api *libraryApi) search(ctx echo.Context) error {
	var sq library.SearchQuery
	if err := api.bindValid(ctx, &sq, "SearchQuery"); err != nil {
		return err
	}
	matches, err := api.svc.Search(ctx.Request().Context(), sq)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, matches)
}

func (api *libraryApi) reindex(ctx echo.Context) error {
	report, err := api.svc.Reindex(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *libraryApi) retrieve(ctx echo.Context) error {
	r, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *libraryApi) update(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data library.UpdateResource
	if err := api.bindValid(ctx, &data, "UpdateResource"); err != nil {
		return err
	}
	r, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *libraryApi) destroy(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
