package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/common/validation"
)

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type errorBody struct {
	Success bool                `json:"success"`
	Error   string              `json:"error"`
	Code    apperrors.ErrorCode `json:"code"`
	Details string              `json:"details,omitempty"`
}

func success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

// fail writes err with the status its code maps to. Internal errors hide
// their details.
func (s *Server) fail(c *gin.Context, err error) {
	se := apperrors.Normalize(err)
	status := apperrors.HTTPStatus(se.Code)
	body := errorBody{Success: false, Error: se.Message, Code: se.Code, Details: se.Details}
	if status >= http.StatusInternalServerError && se.Code == apperrors.ErrCodeInternal {
		body.Details = ""
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request error", map[string]interface{}{
			"requestId": c.GetString("requestId"),
			"code":      string(se.Code),
			"error":     err.Error(),
		})
	}
	c.AbortWithStatusJSON(status, body)
}

// bind decodes the JSON body into dst and runs its validate tags.
func bind(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperrors.NewInvalidInputError(fmt.Sprintf("malformed request body: %v", err))
	}
	return validation.Struct(dst)
}

func pathID(c *gin.Context) (int64, error) {
	return parseID(c.Param("id"), "id")
}

func parseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewInvalidInputError(fmt.Sprintf("%s must be a positive integer, got %q", name, raw))
	}
	return id, nil
}

func queryInt(c *gin.Context, name string, def, min, max int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, apperrors.NewInvalidInputError(fmt.Sprintf("%s must be an integer in [%d, %d]", name, min, max))
	}
	return v, nil
}

func notConfigured(what string) error {
	e := apperrors.NewConfigurationError(what + " is not configured")
	e.Message = "Service dependency is not configured"
	return e
}
