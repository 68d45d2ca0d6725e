package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core/session"
)

type adminSessionApi struct {
	svc *session.Service
}

func registerAdminSessionAPI(g *echo.Group, svc *session.Service) {
	api := adminSessionApi{svc: svc}

	g.GET("", api.query)
	g.POST("", api.create)
	g.PUT("/:id", api.setActive)
}

// Handlers

func (api *adminSessionApi) query(ctx echo.Context) error {
	sessions, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing sessions")
	}
	if sessions == nil {
		sessions = []session.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *adminSessionApi) create(ctx echo.Context) error {
	var data session.NewSession
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *adminSessionApi) setActive(ctx echo.Context) error {
	var data session.SetActive
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	s, err := api.svc.SetActive(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}
