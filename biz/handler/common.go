package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/yi-nology/survey_vault/biz/service"
	"github.com/yi-nology/survey_vault/pkg/assetstorage"
	pkgcommon "github.com/yi-nology/survey_vault/pkg/common"

	"gorm.io/gorm"
)

var (
	// Version information, injected at build time via main package
	AppVersion   = "dev"
	AppGitCommit = "unknown"
	AppBuildTime = "unknown"
)

// Ping is the liveness probe.
func Ping(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, pkgcommon.OK(map[string]string{"message": "pong"}))
}

// GetVersion reports build information.
// @router /api/v1/version [GET]
func GetVersion(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, pkgcommon.OK(map[string]string{
		"version":    AppVersion,
		"git_commit": AppGitCommit,
		"build_time": AppBuildTime,
	}))
}

// --------------------- Response helpers ---------------------

func RespondOK(c *app.RequestContext, data any) {
	c.JSON(consts.StatusOK, pkgcommon.OK(data))
}

// statusFor maps service and core errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case assetstorage.IsValidation(err):
		return consts.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		return consts.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return consts.StatusForbidden
	case errors.Is(err, service.ErrBlobNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return consts.StatusNotFound
	case errors.Is(err, service.ErrServingDisabled):
		return consts.StatusNotImplemented
	case errors.Is(err, assetstorage.ErrNotEnabled), errors.Is(err, service.ErrLedgerNotEnabled):
		return consts.StatusServiceUnavailable
	case assetstorage.IsUpstream(err):
		return consts.StatusBadGateway
	default:
		return consts.StatusInternalServerError
	}
}

// RespondError writes err with the status it maps to. Internal errors are
// logged and their details withheld from the client.
func RespondError(ctx context.Context, c *app.RequestContext, err error) {
	status := statusFor(err)
	if status >= consts.StatusInternalServerError {
		hlog.CtxErrorf(ctx, "%s %s: %v", c.Request.Method(), c.Request.URI().Path(), err)
	}
	msg := err.Error()
	if status == consts.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	c.JSON(status, pkgcommon.CommonResponse{Code: status, Msg: msg, Error: msg})
}

func writeBadRequest(ctx context.Context, c *app.RequestContext, field string, err error) {
	RespondError(ctx, c, &assetstorage.ValidationError{Field: field, Message: err.Error()})
}
