package echoapi

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
)

const (
	pageParam   = "page"
	statusParam = "status"
	tradeParam  = "trade"
	searchParam = "search"
	typeParam   = "type"
)

// bindQueryFilter reads the list & export filters from the query string.
func bindQueryFilter(ctx echo.Context) admission.QueryFilter {
	return admission.QueryFilter{
		Status: ctx.QueryParam(statusParam),
		Trade:  ctx.QueryParam(tradeParam),
		Search: ctx.QueryParam(searchParam),
	}
}

// bindPage returns the 1-based page number; anything invalid means the first page.
func bindPage(ctx echo.Context) int {
	page, err := strconv.Atoi(ctx.QueryParam(pageParam))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// bindNewApplication reads a multipart wizard submission: the form fields & one file per document slot.
func bindNewApplication(ctx echo.Context) (admission.NewApplication, admission.Uploads, error) {
	var na admission.NewApplication
	if err := ctx.Bind(&na); err != nil {
		return na, nil, err
	}

	uploads := make(admission.Uploads)
	if !isMultipart(ctx) {
		return na, uploads, nil
	}
	for _, slot := range admission.DocumentSlots {
		fh, err := ctx.FormFile(string(slot))
		if err != nil {
			if err == http.ErrMissingFile {
				continue
			}
			return na, nil, errors.Wrapf(err, "reading %s", slot)
		}
		f, err := fh.Open()
		if err != nil {
			return na, nil, errors.Wrapf(err, "opening %s", slot)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return na, nil, errors.Wrapf(err, "reading %s", slot)
		}
		if len(data) == 0 {
			return na, nil, core.NewValidationError(nil, core.FieldError{Field: string(slot), Error: "the file is empty"})
		}
		uploads[slot] = admission.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Data:        data,
		}
	}
	return na, uploads, nil
}

func isMultipart(ctx echo.Context) bool {
	return strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}
