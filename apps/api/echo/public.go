package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/session"
	"github.com/trezcool/admissions/core/site"
)

type publicApi struct {
	admissionSvc *admission.Service
	sessionSvc   *session.Service
	siteSvc      *site.Service
}

func registerPublicAPI(g *echo.Group, admissionSvc *admission.Service, sessionSvc *session.Service, siteSvc *site.Service) {
	api := publicApi{
		admissionSvc: admissionSvc,
		sessionSvc:   sessionSvc,
		siteSvc:      siteSvc,
	}

	g.GET("/trades", api.trades)
	g.GET("/sessions/active", api.activeSessions)
	g.GET("/site/settings", api.siteSettings)

	// TODO: rate limit the UIDAI lookup, it tells whether a number is registered
	g.GET("/admissions/check-uidai/:number", api.checkUIDAI)
	g.POST("/admissions", api.submit)
}

type UIDAIAvailability struct {
	Available bool `json:"available"`
}

// Handlers

func (api *publicApi) trades(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.admissionSvc.Validator().Trades())
}

func (api *publicApi) activeSessions(ctx echo.Context) error {
	sessions, err := api.sessionSvc.ListActive(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing active sessions")
	}
	if sessions == nil {
		sessions = []session.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *publicApi) siteSettings(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.siteSvc.Get(ctx.Request().Context()))
}

func (api *publicApi) checkUIDAI(ctx echo.Context) error {
	available, err := api.admissionSvc.IsUIDAIAvailable(ctx.Request().Context(), ctx.Param("number"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, UIDAIAvailability{Available: available})
}

func (api *publicApi) submit(ctx echo.Context) error {
	na, uploads, err := bindNewApplication(ctx)
	if err != nil {
		return err
	}
	app, err := api.admissionSvc.Submit(ctx.Request().Context(), na, uploads)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, app)
}
