package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ResponseV2 is the JSON envelope of the /api routes
type ResponseV2 struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

const (
	CodeOK             = "OK"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeUnavailable    = "UNAVAILABLE"
	CodeBadGateway     = "BAD_GATEWAY"
	CodeInternal       = "INTERNAL_ERROR"
)

var codeStatus = map[string]int{
	CodeOK:             http.StatusOK,
	CodeInvalidRequest: http.StatusBadRequest,
	CodeForbidden:      http.StatusForbidden,
	CodeNotFound:       http.StatusNotFound,
	CodeUnavailable:    http.StatusServiceUnavailable,
	CodeBadGateway:     http.StatusBadGateway,
	CodeInternal:       http.StatusInternalServerError,
}

func statusFor(code string) int {
	if s, ok := codeStatus[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func okV2(c *gin.Context, data any) {
	c.JSON(http.StatusOK, ResponseV2{Code: CodeOK, Message: "OK", Data: data})
}

// errV2 aborts with the status mapped from code. Free-form details go into
// data.detail.
func errV2(c *gin.Context, code, message string, detail any) {
	payload := gin.H{}
	if detail != nil {
		payload["detail"] = detail
	}
	c.AbortWithStatusJSON(statusFor(code), ResponseV2{Code: code, Message: message, Data: payload})
}
