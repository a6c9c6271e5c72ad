package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"trohub/app/internal/models"
	"trohub/app/internal/services"
	"trohub/app/internal/utils"
)

// Response is the envelope of every JSON API response.
type Response struct {
	Success    bool               `json:"success"`
	Data       interface{}        `json:"data,omitempty"`
	Message    string             `json:"message,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
	Error      string             `json:"error,omitempty"` // Cause of a 500, development mode only
}

func init() {
	// Validation messages name fields the way clients send them.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	}
}

func sendSuccess(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, Response{Success: true, Data: data, Message: message})
}

func sendList(c *gin.Context, items interface{}, page models.Page, total int64) {
	p := models.NewPagination(page.Normalize(), total)
	c.JSON(http.StatusOK, Response{Success: true, Data: items, Pagination: &p})
}

func sendFailure(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Message: message})
}

// sendError maps service errors onto HTTP statuses. Anything unrecognised is a
// 500 whose cause is only shown in development mode.
func sendError(c *gin.Context, err error, devMode bool) {
	var (
		ve *services.ValidationError
		ne *services.NotFoundError
		pe *services.PermissionError
		ce *services.ConflictError
	)
	switch {
	case errors.As(err, &ve):
		sendFailure(c, http.StatusBadRequest, ve.Error())
	case errors.As(err, &ne):
		sendFailure(c, http.StatusNotFound, ne.Error())
	case errors.As(err, &pe):
		sendFailure(c, http.StatusForbidden, pe.Error())
	case errors.As(err, &ce):
		sendFailure(c, http.StatusConflict, ce.Error())
	default:
		_ = c.Error(err)
		zap.S().Errorf("Unhandled error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		resp := Response{Success: false, Message: "Internal server error"}
		if devMode {
			resp.Error = err.Error()
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
	}
}

// bindJSON binds the body and answers 400 with the first violation on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		sendFailure(c, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// validationMessage renders the first binding failure for humans.
func validationMessage(err error) string {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", field)
		case "email":
			return fmt.Sprintf("%s must be a valid email address", field)
		case "min", "gte":
			return fmt.Sprintf("%s must be at least %s", field, fe.Param())
		case "max", "lte":
			return fmt.Sprintf("%s must be at most %s", field, fe.Param())
		case "gt":
			return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
		case "oneof":
			return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
		default:
			return fmt.Sprintf("%s is invalid", field)
		}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("%s has the wrong type", typeErr.Field)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return "request body is not valid JSON"
	}
	return err.Error()
}

// pathID parses the :id path parameter, answering 400 when it is malformed.
func pathID(c *gin.Context) (utils.SixID, bool) {
	return parseIDParam(c, "id", c.Param("id"))
}

// queryID parses an optional id from the query string; empty gives the zero id.
func queryID(c *gin.Context, name string) (utils.SixID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return utils.SixID{}, true
	}
	return parseIDParam(c, name, raw)
}

func parseIDParam(c *gin.Context, name, raw string) (utils.SixID, bool) {
	id, err := utils.ParseSixID(raw)
	if err != nil {
		sendFailure(c, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return utils.SixID{}, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		sendFailure(c, http.StatusBadRequest, fmt.Sprintf("%s must be a number", name))
		return 0, false
	}
	return n, true
}

// queryTime reads an optional RFC 3339 timestamp or YYYY-MM-DD date.
func queryTime(c *gin.Context, name string, loc *time.Location) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		sendFailure(c, http.StatusBadRequest, fmt.Sprintf("%s must be a date (YYYY-MM-DD)", name))
		return nil, false
	}
	return &t, true
}

// queryPage binds ?page=&limit=.
func queryPage(c *gin.Context) (models.Page, bool) {
	var page models.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		sendFailure(c, http.StatusBadRequest, "page and limit must be numbers")
		return page, false
	}
	return page.Normalize(), true
}

// invalidateDashboard drops cached statistics after a write that changes them.
func invalidateDashboard(c *gin.Context, dashboard services.IDashboardService) {
	if dashboard == nil {
		return
	}
	if err := dashboard.Invalidate(c.Request.Context()); err != nil {
		zap.S().Warnf("Failed to invalidate dashboard cache: %v", err)
	}
}
