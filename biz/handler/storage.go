package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/yi-nology/survey_vault/biz/service"
)

// StorageHandler exposes asset authorization and blob endpoints.
type StorageHandler struct {
	service *service.StorageService
}

func NewStorageHandler(svc *service.StorageService) *StorageHandler {
	return &StorageHandler{service: svc}
}

type authorizeTextRequest struct {
	Content string `json:"content"`
}

type issueTokensRequest struct {
	URLs []string `json:"urls"`
}

// AuthorizeDocument enriches a survey definition posted as the raw body.
// @router /api/v1/storage/authorize [POST]
func (h *StorageHandler) AuthorizeDocument(ctx context.Context, c *app.RequestContext) {
	doc, err := h.service.AuthorizeDocument(ctx, c.Request.Body())
	if err != nil {
		RespondError(ctx, c, err)
		return
	}
	RespondOK(c, doc)
}

// AuthorizeText rewrites storage URLs inside opaque serialized content.
// @router /api/v1/storage/authorize-text [POST]
func (h *StorageHandler) AuthorizeText(ctx context.Context, c *app.RequestContext) {
	var req authorizeTextRequest
	if err := c.BindJSON(&req); err != nil {
		writeBadRequest(ctx, c, "body", err)
		return
	}
	content, err := h.service.AuthorizeText(ctx, req.Content)
	if err != nil {
		RespondError(ctx, c, err)
		return
	}
	RespondOK(c, map[string]string{"content": content})
}

// IssueTokens returns per-URL read tokens.
// @router /api/v1/storage/tokens [POST]
func (h *StorageHandler) IssueTokens(ctx context.Context, c *app.RequestContext) {
	var req issueTokensRequest
	if err := c.BindJSON(&req); err != nil {
		writeBadRequest(ctx, c, "body", err)
		return
	}
	tokens, err := h.service.IssueTokens(ctx, req.URLs)
	if err != nil {
		RespondError(ctx, c, err)
		return
	}
	RespondOK(c, map[string]any{"tokens": tokens})
}

// ContainerToken returns a container scoped read token.
// @router /api/v1/storage/containers/:container/token [GET]
func (h *StorageHandler) ContainerToken(ctx context.Context, c *app.RequestContext) {
	tok, err := h.service.ContainerToken(ctx, c.Param("container"))
	if err != nil {
		RespondError(ctx, c, err)
		return
	}
	RespondOK(c, tok)
}

// UploadFile handles multipart uploads into the user files container.
// @router /api/v1/storage/upload [POST]
func (h *StorageHandler) UploadFile(ctx context.Context, c *app.RequestContext) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeBadRequest(ctx, c, "file", err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		writeBadRequest(ctx, c, "file", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		RespondError(ctx, c, err)
		return
	}

	asset, err := h.service.UploadFile(ctx, &service.FileUploadInput{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		RespondError(ctx, c, err)
		return
	}
	RespondOK(c, map[string]any{"asset": asset})
}

// DeleteFile removes one of the caller's uploads.
// @router /api/v1/storage/files/*blob [DELETE]
func (h *StorageHandler) DeleteFile(ctx context.Context, c *app.RequestContext) {
	if err := h.service.DeleteFile(ctx, c.Param("blob")); err != nil {
		RespondError(ctx, c, err)
		return
	}
	RespondOK(c, nil)
}

// ListGrants lists recent token grants.
// @router /api/v1/storage/grants [GET]
func (h *StorageHandler) ListGrants(ctx context.Context, c *app.RequestContext) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(ctx, c, "limit", errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	grants, err := h.service.ListGrants(ctx, c.Query("container"), limit)
	if err != nil {
		RespondError(ctx, c, err)
		return
	}
	RespondOK(c, map[string]any{"grants": grants})
}

// ServeBlob returns a handler streaming blobs of container from a backend
// that serves its own files. It is mounted at /<container>/*blob so that the
// canonical asset URLs resolve to it.
func (h *StorageHandler) ServeBlob(container string) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		h.serveBlob(ctx, c, container)
	}
}

func (h *StorageHandler) serveBlob(ctx context.Context, c *app.RequestContext, container string) {
	query, err := url.ParseQuery(string(c.Request.URI().QueryString()))
	if err != nil {
		writeBadRequest(ctx, c, "query", err)
		return
	}
	blob, err := h.service.OpenBlob(ctx, container, c.Param("blob"), query)
	if err != nil {
		RespondError(ctx, c, err)
		return
	}
	defer blob.Reader.Close()

	content, err := io.ReadAll(blob.Reader)
	if err != nil {
		RespondError(ctx, c, err)
		return
	}

	contentType := blob.ContentType
	if contentType == "" {
		contentType = consts.MIMEApplicationOctetStream
	}
	c.Response.Header.Set("Cache-Control", "private, max-age=0")
	if blob.FileName != "" {
		c.Response.Header.Set("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", blob.FileName))
	}
	c.Data(consts.StatusOK, contentType, content)
}
