package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"

	"trade-orders/src/helpers"

	"github.com/gin-gonic/gin"
)

const orderNotFound = "Order not found"

// -----------------------------------------------------------------------------

// errorDetail is one entry of a 422 body: {"loc": [...], "msg": ..., "type": ...}.
type errorDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func renderUnprocessable(c *gin.Context, details ...errorDetail) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": details})
}

// -----------------------------------------------------------------------------

// renderError maps service errors to status codes. source is the request part
// validation issues refer to (body, query or path).
func (s *HTTPServer) renderError(c *gin.Context, err error, source string) {
	var (
		validationErr *helpers.ValidationError
		notFoundErr   *helpers.NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		details := make([]errorDetail, 0, len(validationErr.Issues))
		for _, issue := range validationErr.Issues {
			details = append(details, errorDetail{
				Loc:  []string{source, issue.Field},
				Msg:  issue.Message,
				Type: issueType(issue.Rule),
			})
		}
		if len(details) == 0 {
			details = append(details, errorDetail{Loc: []string{source}, Msg: validationErr.Message, Type: "value_error"})
		}
		renderUnprocessable(c, details...)

	case errors.As(err, &notFoundErr):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": notFoundErr.Message})

	default:
		s.Logger.Error("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal Server Error"})
	}
}

// -----------------------------------------------------------------------------

func issueType(rule string) string {
	switch rule {
	case "required":
		return "value_error.missing"
	case "gt":
		return "value_error.number.not_gt"
	case "gte":
		return "value_error.number.not_ge"
	case "oneof":
		return "type_error.enum"
	default:
		return "value_error"
	}
}

// -----------------------------------------------------------------------------

// renderBindError turns a JSON decoding failure into a 422 body.
func renderBindError(c *gin.Context, err error) {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)

	switch {
	case errors.Is(err, io.EOF):
		renderUnprocessable(c, errorDetail{Loc: []string{"body"}, Msg: "field required", Type: "value_error.missing"})
	case errors.As(err, &typeErr):
		renderUnprocessable(c, errorDetail{
			Loc:  []string{"body", typeErr.Field},
			Msg:  "value is not a valid " + kindName(typeErr.Type.Kind()),
			Type: "type_error." + kindName(typeErr.Type.Kind()),
		})
	case errors.As(err, &syntaxErr):
		renderUnprocessable(c, errorDetail{
			Loc:  []string{"body", strconv.FormatInt(syntaxErr.Offset, 10)},
			Msg:  "Expecting value",
			Type: "value_error.jsondecode",
		})
	default:
		renderUnprocessable(c, errorDetail{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"})
	}
}

func kindName(k reflect.Kind) string {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.String:
		return "str"
	default:
		return k.String()
	}
}

// -----------------------------------------------------------------------------

// queryInt reads an optional integer query parameter. It renders a 422 and
// returns false when the value is not an integer.
func queryInt(c *gin.Context, key string, fallback int) (int, bool) {
	raw, ok := c.GetQuery(key)
	if !ok {
		return fallback, true
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		renderUnprocessable(c, errorDetail{
			Loc:  []string{"query", key},
			Msg:  "value is not a valid integer",
			Type: "type_error.integer",
		})
		return 0, false
	}
	return val, true
}

// -----------------------------------------------------------------------------

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil {
		renderUnprocessable(c, errorDetail{
			Loc:  []string{"path", "order_id"},
			Msg:  "value is not a valid integer",
			Type: "type_error.integer",
		})
		return 0, false
	}
	return id, true
}
