package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/voxkit/errors"
)

// DataResponse is the success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// RespondWithError renders err as an ErrorResponse with the status of its
// code. Errors that are not *AppError become INTERNAL_ERROR.
func RespondWithError(c *gin.Context, err error) {
	appErr := apperrors.From(err, "")
	if appErr == nil {
		appErr = apperrors.Internal(errors.New("unknown error"))
	}
	_ = c.Error(appErr)
	status := appErr.HTTPStatus
	if status == 0 {
		status = apperrors.HTTPStatusFor(appErr.Code)
	}
	c.AbortWithStatusJSON(status, appErr.ToResponse())
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// RespondStatus sends data with an explicit status.
func RespondStatus(c *gin.Context, status int, data any) {
	c.JSON(status, DataResponse{Data: data})
}
