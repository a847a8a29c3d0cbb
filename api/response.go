package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"backoffice.GO/core/apperr"
	"backoffice.GO/core/auth"
	"backoffice.GO/service/audit"
)

const (
	DurationHeader = "X-Request-Duration-ms"
	defaultLimit   = 50
	maxLimit       = 500
)

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	switch {
	case apperr.IsNotFound(err):
		return http.StatusNotFound
	case apperr.IsValidation(err):
		return http.StatusUnprocessableEntity
	case apperr.IsConsistency(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Fail writes err as {"error": reason}. Only validation reasons reach the client.
func Fail(c echo.Context, err error) error {
	return c.JSON(StatusOf(err), echo.Map{"error": apperr.PublicMessage(err)})
}

// BadRequest reports a malformed request body or query.
func BadRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// Respond writes body with the request duration as header and field.
func Respond(c echo.Context, status int, start time.Time, body echo.Map) error {
	duration := time.Since(start).Milliseconds()
	c.Response().Header().Set(DurationHeader, strconv.FormatInt(duration, 10))
	body["request_duration_ms"] = duration
	return c.JSON(status, body)
}

// HTTPErrorHandler renders errors returned by handlers and middleware.
func HTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg, ok := he.Message.(string)
			if !ok {
				msg = http.StatusText(he.Code)
			}
			_ = c.JSON(he.Code, echo.Map{"error": msg})
			return
		}
		status := StatusOf(err)
		if status == http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("path", c.Path()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(err))
		}
		_ = Fail(c, err)
	}
}

// ActorFromContext describes the caller for audit entries.
func ActorFromContext(c echo.Context) audit.Actor {
	actor := audit.Actor{
		IP:        c.RealIP(),
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
	}
	if u := auth.UserFromContext(c); u != nil {
		id := u.ID
		actor.UserID = &id
		actor.Username = u.Username
	}
	return actor
}

// ParamID parses a positive numeric path parameter.
func ParamID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return uint(id), nil
}

// QueryUint parses an optional numeric query parameter.
func QueryUint(c echo.Context, name string) (*uint, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, apperr.Validation("invalid %s", name)
	}
	id := uint(v)
	return &id, nil
}

// QueryTime parses an optional date (2006-01-02) or RFC3339 query parameter.
// A date-only upper bound becomes the following midnight, since list
// filters treat the upper bound as exclusive.
func QueryTime(c echo.Context, name string, upper bool) (time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		if upper {
			t = t.AddDate(0, 0, 1)
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid %s: use YYYY-MM-DD or RFC3339", name)
	}
	return t, nil
}

// Page reads limit and offset, defaulting to 50 rows and capping at 500.
func Page(c echo.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	offset, _ = strconv.Atoi(c.QueryParam("offset"))
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
