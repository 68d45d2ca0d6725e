package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/admissions/core/site"
)

type adminSiteApi struct {
	svc *site.Service
}

func registerAdminSiteAPI(g *echo.Group, svc *site.Service) {
	api := adminSiteApi{svc: svc}

	g.GET("/icons", api.icons)
	g.PUT("/settings", api.updateSettings)
}

// Handlers

func (api *adminSiteApi) icons(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, site.Icons())
}

// updateSettings saves the given overrides on top of the previous ones. Unknown icons fail to decode.
func (api *adminSiteApi) updateSettings(ctx echo.Context) error {
	var data site.Overrides
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	settings, err := api.svc.Update(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, settings)
}
