package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/exam"
)

type examApi struct {
	*Server
	svc *exam.Service
}

func registerExamAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := examApi{Server: s, svc: s.deps.ExamSvc}

	eg := g.Group("/exams", jwt)
	eg.POST("/parse", api.parse, staffMiddleware())
	eg.POST("/import", api.importQuestions, staffMiddleware())
	eg.GET("/questions", api.questions)
	eg.DELETE("/questions/:id", api.destroyQuestion, staffMiddleware())
	eg.POST("/grade", api.grade)
}

func (api *examApi) parse(ctx echo.Context) error {
	var data exam.ParseRequest
	if err := api.bindValid(ctx, &data, "ParseRequest"); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.svc.Parse(data.Text))
}

func (api *examApi) importQuestions(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data exam.ImportRequest
	if err := api.bindValid(ctx, &data, "ImportRequest"); err != nil {
		return err
	}
	res, err := api.svc.Import(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "importing questions")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *examApi) questions(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var filter exam.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []exam.Question{})
	}
	qs, err := api.svc.List(ctx.Request().Context(), actor, filter)
	if err != nil {
		return err
	}
	if qs == nil {
		qs = []exam.Question{}
	}
	return ctx.JSON(http.StatusOK, qs)
}

func (api *examApi) destroyQuestion(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *examApi) grade(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data exam.GradeRequest
	if err := api.bindValid(ctx, &data, "GradeRequest"); err != nil {
		return err
	}
	res, err := api.svc.Grade(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}
