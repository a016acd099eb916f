package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"loyalty-backend/imageopt"
	"loyalty-backend/middleware"
	"loyalty-backend/observability"
	"loyalty-backend/services"
	"loyalty-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var statusByCode = map[services.Code]int{
	services.CodeValidation:      http.StatusBadRequest,
	services.CodeConflictPending: http.StatusBadRequest,
	services.CodeAlreadyRedeemed: http.StatusBadRequest,
	services.CodeAlreadyResolved: http.StatusConflict,
	services.CodeUnauthenticated: http.StatusUnauthorized,
	services.CodeForbidden:       http.StatusForbidden,
	services.CodeNotFound:        http.StatusNotFound,
	services.CodeStorageFailure:  http.StatusInternalServerError,
	services.CodeUnexpected:      http.StatusInternalServerError,
}

// respondError renders err as {"error", "code"}. Server-side failures are
// attached to the gin context for the request logger and sent to sentry;
// their message is never the raw cause.
func respondError(c *gin.Context, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		se = &services.Error{Code: services.CodeUnexpected, Message: "Internal server error", Err: err}
	}
	status, ok := statusByCode[se.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= 500 {
		_ = c.Error(err)
		tags := map[string]string{"route": c.FullPath(), "code": string(se.Code)}
		if id, ok := middleware.UserID(c); ok {
			tags["user_id"] = id.String()
		}
		observability.CaptureWithTags(err, tags)
	}
	c.JSON(status, gin.H{"error": se.Message, "code": se.Code})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": services.CodeValidation})
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, services.NotFound("Resource"))
		return uuid.Nil, false
	}
	return id, true
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": services.CodeUnauthenticated})
	}
	return id, ok
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, fh.Size+1))
}

// imageUploader optimizes an image for its upload type and stores it.
type imageUploader struct {
	Storage   storage.Client
	Optimizer imageopt.Optimizer
}

func (u imageUploader) store(ctx context.Context, kind imageopt.UploadType, dest storage.Kind, fh *multipart.FileHeader) (string, error) {
	data, err := readFile(fh)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	name, ctype := fh.Filename, fh.Header.Get("Content-Type")
	if u.Optimizer != nil {
		if res, err := u.Optimizer.Optimize(kind, name, ctype, data); err == nil {
			data, name, ctype = res.Data, res.Filename, res.ContentType
		}
	}
	return u.Storage.Upload(ctx, dest, name, ctype, bytes.NewReader(data))
}

// discardObject deletes a stored object that is no longer referenced.
// Failures only leave an orphan behind, so they are logged and swallowed.
func discardObject(ctx context.Context, store storage.Client, log *zap.Logger, ref string) {
	if err := store.Delete(ctx, ref); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		if log == nil {
			log = zap.NewNop()
		}
		log.Warn("failed to delete stored object", zap.String("ref", ref), zap.Error(err))
	}
}
