package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

const orderingParam = "ordering"

type validatable interface {
	Validate(validate *validator.Validate) error
}

// bindValid binds the request to data and validates it.
func (s *Server) bindValid(ctx echo.Context, data validatable, name string) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding to "+name)
	}
	return data.Validate(s.validate)
}

func bindOrdering(ctx echo.Context, allowed ...string) []core.DBOrdering {
	return core.ParseOrdering(ctx.QueryParam(orderingParam), allowed...)
}

func bindPage(ctx echo.Context) (core.Page, error) {
	var page core.Page
	if err := ctx.Bind(&page); err != nil {
		return core.Page{}, errors.Wrap(err, "binding to Page")
	}
	return page, nil
}
