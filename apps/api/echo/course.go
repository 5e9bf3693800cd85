package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/course"
)

type courseApi struct {
	*Server
	svc *course.Service
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := courseApi{Server: s, svc: s.deps.CourseSvc}

	tg := g.Group("/trails", jwt)
	tg.GET("", api.listTrails)
	tg.POST("", api.createTrail, staffMiddleware())
	tg.GET("/:id", api.retrieveTrail)
	tg.PUT("/:id", api.updateTrail, staffMiddleware())
	tg.DELETE("/:id", api.destroyTrail, staffMiddleware())
	tg.POST("/:id/publish", api.publish, staffMiddleware())
	tg.POST("/:id/unpublish", api.unpublish, staffMiddleware())
	tg.GET("/:id/outline", api.outline)
	tg.GET("/:id/progress", api.progress)
	tg.GET("/:id/modules", api.listModules)
	tg.POST("/:id/modules", api.addModule, staffMiddleware())
	tg.PUT("/:id/modules/reorder", api.reorderModules, staffMiddleware())

	mg := g.Group("/modules", jwt)
	mg.GET("/:id", api.retrieveModule)
	mg.PUT("/:id", api.updateModule, staffMiddleware())
	mg.DELETE("/:id", api.destroyModule, staffMiddleware())
	mg.GET("/:id/contents", api.listContents)
	mg.POST("/:id/contents", api.addContent, staffMiddleware())
	mg.PUT("/:id/reorder", api.reorderContents, staffMiddleware())

	cg := g.Group("/contents", jwt)
	cg.GET("/:id", api.retrieveContent)
	cg.PUT("/:id", api.updateContent, staffMiddleware())
	cg.DELETE("/:id", api.destroyContent, staffMiddleware())
	cg.POST("/:id/complete", api.complete)
}

// Trails

func (api *courseApi) createTrail(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data course.NewTrail
	if err := api.bindValid(ctx, &data, "NewTrail"); err != nil {
		return err
	}
	t, err := api.svc.CreateTrail(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating trail")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *courseApi) listTrails(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var filter course.TrailFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Trail{})
	}
	trails, err := api.svc.ListTrails(ctx.Request().Context(), actor, filter, bindOrdering(ctx, course.TrailOrderingFields...))
	if err != nil {
		return errors.Wrap(err, "listing trails")
	}
	if trails == nil {
		trails = []course.Trail{}
	}
	return ctx.JSON(http.StatusOK, trails)
}

func (api *courseApi) retrieveTrail(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	t, err := api.svc.GetTrail(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *courseApi) updateTrail(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data course.UpdateTrail
	if err := api.bindValid(ctx, &data, "UpdateTrail"); err != nil {
		return err
	}
	t, err := api.svc.UpdateTrail(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *courseApi) destroyTrail(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteTrail(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) publish(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	t, err := api.svc.Publish(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *courseApi) unpublish(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	t, err := api.svc.Unpublish(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *courseApi) outline(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	o, err := api.svc.Outline(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, o)
}

func (api *courseApi) progress(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.TrailProgress(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

// Modules

func (api *courseApi) listModules(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	modules, err := api.svc.ListModules(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	if modules == nil {
		modules = []course.Module{}
	}
	return ctx.JSON(http.StatusOK, modules)
}

func (api *courseApi) addModule(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data course.NewModule
	if err := api.bindValid(ctx, &data, "NewModule"); err != nil {
		return err
	}
	m, err := api.svc.AddModule(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *courseApi) reorderModules(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data course.Reorder
	if err := api.bindValid(ctx, &data, "Reorder"); err != nil {
		return err
	}
	modules, err := api.svc.ReorderModules(ctx.Request().Context(), actor, ctx.Param("id"), data.IDs)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, modules)
}

func (api *courseApi) retrieveModule(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	m, err := api.svc.GetModule(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *courseApi) updateModule(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data course.UpdateModule
	if err := api.bindValid(ctx, &data, "UpdateModule"); err != nil {
		return err
	}
	m, err := api.svc.UpdateModule(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *courseApi) destroyModule(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteModule(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Contents

func (api *courseApi) listContents(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	contents, err := api.svc.ListContents(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	if contents == nil {
		contents = []course.Content{}
	}
	return ctx.JSON(http.StatusOK, contents)
}

func (api *courseApi) addContent(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data course.NewContent
	if err := api.bindValid(ctx, &data, "NewContent"); err != nil {
		return err
	}
	c, err := api.svc.AddContent(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) reorderContents(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data course.Reorder
	if err := api.bindValid(ctx, &data, "Reorder"); err != nil {
		return err
	}
	contents, err := api.svc.ReorderContents(ctx.Request().Context(), actor, ctx.Param("id"), data.IDs)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, contents)
}

func (api *courseApi) retrieveContent(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.GetContent(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) updateContent(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data course.UpdateContent
	if err := api.bindValid(ctx, &data, "UpdateContent"); err != nil {
		return err
	}
	c, err := api.svc.UpdateContent(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) destroyContent(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteContent(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) complete(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.MarkCompleted(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}
