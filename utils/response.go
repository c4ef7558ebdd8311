package utils

import (
	"github.com/gin-gonic/gin"

	"github.com/classboard/classboard/services"
)

// JSONResponse is the uniform envelope for every API response.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given HTTP status and app code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{Code: code, Message: message, Data: data})
}

// Success writes a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, 0, "success", data)
}

// Error writes a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// ServiceError maps a service-layer error to the envelope. The client gets
// the sanitized message; the full error is logged by the caller.
func ServiceError(ctx *gin.Context, code int, err error) {
	Error(ctx, services.ErrorToStatus(err), code, services.ClientMessage(err))
}
