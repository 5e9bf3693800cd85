package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/ai"
)

type aiApi struct {
	*Server
	svc *ai.Service
}

func registerAIAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := aiApi{Server: s, svc: s.deps.AISvc}

	ag := g.Group("/ai", jwt)
	ag.POST("/tutor", api.tutor)
	ag.POST("/essays/grade", api.gradeEssay)
	ag.GET("/essays", api.essayGrades)
	ag.GET("/essays/:id", api.essayGrade)
	ag.POST("/questions", api.generateQuestions, staffMiddleware())
}

func (api *aiApi) tutor(ctx echo.Context) error {
	var data ai.TutorRequest
	if err := api.bindValid(ctx, &data, "TutorRequest"); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.svc.Tutor(ctx.Request().Context(), data))
}

func (api *aiApi) gradeEssay(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data ai.EssayRequest
	if err := api.bindValid(ctx, &data, "EssayRequest"); err != nil {
		return err
	}
	grading, err := api.svc.GradeEssay(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "grading essay")
	}
	code := http.StatusCreated
	if grading.Fallback {
		code = http.StatusOK
	}
	return ctx.JSON(code, grading)
}

func (api *aiApi) essayGrades(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	grades, err := api.svc.EssayGrades(ctx.Request().Context(), actor)
	if err != nil {
		return err
	}
	if grades == nil {
		grades = []ai.EssayGrade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *aiApi) essayGrade(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	eg, err := api.svc.EssayGrade(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, eg)
}

func (api *aiApi) generateQuestions(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data ai.QuestionsRequest
	if err := api.bindValid(ctx, &data, "QuestionsRequest"); err != nil {
		return err
	}
	generated, err := api.svc.GenerateQuestions(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, generated)
}
