package auth

import (
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"backoffice.GO/config"
	entity "backoffice.GO/model/entity"
	authRepo "backoffice.GO/model/repository/auth"
)

// Context keys set by the middleware.
const (
	ContextAuthType = "auth_type"
	ContextUser     = "user"
)

// UserHeader names the acting user for requests authenticated with shared credentials.
const UserHeader = "X-User"

// Middleware returns the auth middleware based on AUTH_TYPE env var.
func Middleware(db *gorm.DB) echo.MiddlewareFunc {
	skipper := buildSkipper()
	repo := authRepo.NewAuthRepository(db)
	authType := os.Getenv("AUTH_TYPE")
	switch authType {
	case "key":
		return keyAuth(repo, skipper)
	case "token":
		return tokenAuth(repo, skipper)
	default:
		return basicAuth(repo, skipper)
	}
}

func buildSkipper() middleware.Skipper {
	skipPaths := config.GetAuthSkipperPaths()
	return func(c echo.Context) bool {
		path := c.Path()
		for _, skip := range skipPaths {
			if path == skip {
				return true
			}
		}
		return false
	}
}

func basicAuth(repo *authRepo.AuthRepository, skipper middleware.Skipper) echo.MiddlewareFunc {
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Validator: func(username, password string, c echo.Context) (bool, error) {
			if username != os.Getenv("API_USER") || password != os.Getenv("API_PASS") {
				return false, nil
			}
			c.Set(ContextAuthType, "basic")
			return resolveHeaderUser(repo, c)
		},
		Skipper: skipper,
	})
}

func keyAuth(repo *authRepo.AuthRepository, skipper middleware.Skipper) echo.MiddlewareFunc {
	apiKey := os.Getenv("API_KEY")
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Validator: func(key string, c echo.Context) (bool, error) {
			if key != apiKey {
				return false, nil
			}
			c.Set(ContextAuthType, "key")
			return resolveHeaderUser(repo, c)
		},
		Skipper: skipper,
	})
}

func tokenAuth(repo *authRepo.AuthRepository, skipper middleware.Skipper) echo.MiddlewareFunc {
	staticKey := os.Getenv("API_KEY")
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Validator: func(token string, c echo.Context) (bool, error) {
			if staticKey != "" && token == staticKey {
				c.Set(ContextAuthType, "static")
				return resolveHeaderUser(repo, c)
			}
			apiToken, err := repo.FindActiveToken(token, time.Now())
			if err != nil {
				return false, nil
			}
			c.Set(ContextAuthType, "token")
			c.Set(ContextUser, apiToken.User)
			return true, nil
		},
		Skipper: skipper,
	})
}

// resolveHeaderUser binds the X-User named user, if any. An unknown name
// rejects the request rather than falling back to the shared account.
func resolveHeaderUser(repo *authRepo.AuthRepository, c echo.Context) (bool, error) {
	name := c.Request().Header.Get(UserHeader)
	if name == "" {
		return true, nil
	}
	user, err := repo.FindUserByUsername(name)
	if err != nil {
		return false, nil
	}
	c.Set(ContextUser, user)
	return true, nil
}

// UserFromContext returns the authenticated user, or nil for the shared service account.
func UserFromContext(c echo.Context) *entity.User {
	u, _ := c.Get(ContextUser).(*entity.User)
	return u
}

// RequirePermission rejects requests whose user lacks perm. Requests made
// with the shared credentials and no X-User act as the service account.
func RequirePermission(perm string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := UserFromContext(c)
			if u == nil {
				if c.Get(ContextAuthType) == "token" {
					return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
				}
				return next(c)
			}
			if !u.HasPermission(perm) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "missing permission " + perm})
			}
			return next(c)
		}
	}
}
