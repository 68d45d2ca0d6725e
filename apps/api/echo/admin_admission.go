package echoapi

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/site"
	"github.com/trezcool/admissions/storage/files"
)

type adminAdmissionApi struct {
	svc     *admission.Service
	siteSvc *site.Service
	nowFunc func() time.Time
}

func registerAdminAdmissionAPI(g *echo.Group, svc *admission.Service, siteSvc *site.Service) {
	api := adminAdmissionApi{
		svc:     svc,
		siteSvc: siteSvc,
		nowFunc: time.Now,
	}

	g.GET("", api.query)
	g.POST("", api.createManual)
	g.GET("/export", api.export)
	g.GET("/documents/:filename", api.document)

	// detail endpoints
	g.GET("/:id", api.retrieve)
	g.PUT("/:id", api.update)
	g.PUT("/:id/status", api.updateStatus)
	g.GET("/:id/print", api.print)
}

type (
	// ApplicationDetail is the console's view of one application.
	ApplicationDetail struct {
		Application admission.Application       `json:"application"`
		SessionName string                      `json:"session_name"`
		Documents   []admission.SlotStatus      `json:"documents"`
		EditForm    admission.UpdateApplication `json:"edit_form"`
	}

	StatusRequest struct {
		Status string `json:"status"`
	}
)

// Handlers

func (api *adminAdmissionApi) query(ctx echo.Context) error {
	page, err := api.svc.Query(ctx.Request().Context(), bindQueryFilter(ctx), bindPage(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *adminAdmissionApi) createManual(ctx echo.Context) error {
	var data admission.NewManualApplication
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	app, err := api.svc.CreateManual(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, app)
}

func (api *adminAdmissionApi) retrieve(ctx echo.Context) error {
	app, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ApplicationDetail{
		Application: app,
		SessionName: api.svc.SessionName(ctx.Request().Context(), app.SessionID),
		Documents:   app.DocumentSlots(),
		EditForm:    admission.EditForm(app),
	})
}

func (api *adminAdmissionApi) update(ctx echo.Context) error {
	var data admission.UpdateApplication
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	app, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *adminAdmissionApi) updateStatus(ctx echo.Context) error {
	var data StatusRequest
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	app, err := api.svc.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *adminAdmissionApi) document(ctx echo.Context) error {
	filename := ctx.Param("filename")
	rc, err := api.svc.OpenDocument(ctx.Request().Context(), filename)
	if err != nil {
		return err
	}
	defer rc.Close()

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	return ctx.Stream(http.StatusOK, files.ContentType(filename), rc)
}

func (api *adminAdmissionApi) export(ctx echo.Context) error {
	typ, err := admission.ParseExportType(ctx.QueryParam(typeParam))
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: typeParam, Error: err.Error()})
	}

	var buf bytes.Buffer
	if _, err = api.svc.Export(ctx.Request().Context(), bindQueryFilter(ctx), typ, &buf); err != nil {
		return err
	}

	filename := admission.ExportFilename(typ, api.nowFunc())
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (api *adminAdmissionApi) print(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	app, err := api.svc.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	err = admission.RenderPrintForm(&buf, app, api.siteSvc.Get(reqCtx), api.svc.SessionName(reqCtx, app.SessionID))
	if err != nil {
		return errors.Wrap(err, "rendering print form")
	}
	return ctx.HTMLBlob(http.StatusOK, buf.Bytes())
}
