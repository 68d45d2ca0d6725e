package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core/staff"
)

type staffApi struct {
	svc  *staff.Service
	auth authenticator
}

func registerStaffAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth authenticator, svc *staff.Service) {
	api := staffApi{svc: svc, auth: auth}

	// TODO: rate limit `/login`
	g.POST("/login", api.login)

	// authed endpoints
	g.POST("/token-refresh", api.refreshToken, jwt)
	g.GET("/me", api.me, jwt, activeStaffMiddleware(auth, svc))
}

type LoginResponse struct {
	Token string      `json:"token"`
	Staff staff.Staff `json:"staff"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// Handlers

func (api *staffApi) login(ctx echo.Context) error {
	var data staff.LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return err
	}

	s, err := api.svc.Authenticate(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	token, err := api.auth.token(api.auth.claims(s))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Staff: s})
}

func (api *staffApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refresh(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *staffApi) me(ctx echo.Context) error {
	s, err := api.auth.contextStaff(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}
