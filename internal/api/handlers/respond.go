package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"example.com/cloudkitchen/services/ordering/internal/client"
	"example.com/cloudkitchen/services/ordering/internal/services"
	"example.com/cloudkitchen/services/ordering/internal/store"
)

// Response is the uniform envelope every endpoint answers with, mirroring the
// upstream platform's shape so the UI handles both the same way.
type Response struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Object  interface{} `json:"object,omitempty"`
}

func respondOK(c *gin.Context, object interface{}) {
	c.JSON(http.StatusOK, Response{Status: true, Object: object})
}

// respondError maps service errors onto HTTP statuses. Recoverable conditions
// carry their message to the user verbatim; anything unexpected is a 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrGroupIndex):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNothingSelected),
		errors.Is(err, store.ErrDuplicateItem),
		errors.Is(err, store.ErrNoMoveTarget),
		errors.Is(err, services.ErrNoChanges):
		status = http.StatusConflict
	case client.IsAPIError(err):
		status = http.StatusBadGateway
	}
	c.JSON(status, Response{Status: false, Message: err.Error()})
}
