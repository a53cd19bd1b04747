package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/yashrajoria/shop-service/services"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// bindJSON decodes and validates the body. Failures are reported as a
// ValidationError keyed by the first offending field.
func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return bindError(err)
	}
	if err := validate.Struct(dst); err != nil {
		return bindError(err)
	}
	return nil
}

func bindError(err error) error {
	var (
		verrs     validator.ValidationErrors
		fieldErr  *services.ValidationError
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.As(err, &fieldErr):
		return fieldErr
	case errors.As(err, &verrs) && len(verrs) > 0:
		fe := verrs[0]
		return &services.ValidationError{Field: fe.Field(), Message: validationMessage(fe)}
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "detail"
		}
		return &services.ValidationError{Field: field, Message: fmt.Sprintf("Expected a %s.", typeErr.Type.String())}
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return &services.ValidationError{Field: "detail", Message: "JSON parse error - " + err.Error()}
	default:
		return &services.ValidationError{Field: "detail", Message: err.Error()}
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", fe.Param())
	default:
		return "Invalid value."
	}
}

// parseID reads a UUID path parameter. Malformed IDs cannot match a row and
// are reported as not found.
func parseID(c *gin.Context, key, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, &services.NotFoundError{Key: key, Message: entity + " not found."})
		return uuid.Nil, false
	}
	return id, true
}

// nullableUUID distinguishes an absent field from an explicit null.
type nullableUUID struct {
	Set   bool
	Valid bool
	ID    uuid.UUID
	field string
}

func (n *nullableUUID) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &services.ValidationError{Field: n.fieldName(), Message: "Incorrect type. Expected pk value."}
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return &services.ValidationError{Field: n.fieldName(), Message: fmt.Sprintf("%q is not a valid UUID.", s)}
	}
	n.Valid, n.ID = true, id
	return nil
}

func (n *nullableUUID) fieldName() string {
	if n.field == "" {
		return "category"
	}
	return n.field
}

// parsePagination reads page (1-based) and page_size.
func parsePagination(c *gin.Context) (int, int, error) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			return 0, 0, &services.NotFoundError{Key: "page", Message: "Invalid page."}
		}
		page = p
	}
	size := DefaultPageSize
	if raw := c.Query("page_size"); raw != "" {
		s, err := strconv.Atoi(raw)
		if err != nil || s < 1 {
			return 0, 0, &services.ValidationError{Field: "page_size", Message: "A valid integer is required."}
		}
		size = min(s, MaxPageSize)
	}
	return page, size, nil
}

// paginated renders {count, next, previous, results}. A page past the end
// is not found, except the first page of an empty listing.
func paginated(c *gin.Context, count int64, page, size int, results interface{}) {
	if page > 1 && int64((page-1)*size) >= count {
		RespondError(c, &services.NotFoundError{Key: "page", Message: "Invalid page."})
		return
	}
	var next, previous interface{}
	if int64(page*size) < count {
		next = pageURL(c, page+1)
	}
	if page > 1 {
		previous = pageURL(c, page-1)
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    count,
		"next":     next,
		"previous": previous,
		"results":  results,
	})
}

func pageURL(c *gin.Context, page int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	q := c.Request.URL.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u := url.URL{Scheme: scheme, Host: c.Request.Host, Path: c.Request.URL.Path, RawQuery: q.Encode()}
	return u.String()
}

func zapErr(err error) zap.Field {
	return zap.Error(err)
}

func invalidHeader() error {
	return &services.ValidationError{Field: "idempotency_key", Message: "Ensure this field has no more than 255 characters."}
}
