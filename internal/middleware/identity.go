package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/questionbank-api/internal/utils"
)

const (
	localUserID   = "user_id"
	localUserRole = "user_role"
)

// Identity reads an optional bearer token. Requests without one pass through anonymously; a
// token that is present but invalid is rejected. With an empty secret the header is ignored.
func Identity(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" || secret == "" {
			return c.Next()
		}

		const bearer = "bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), bearer) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}
		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}
		if subject := subjectFromClaims(claims); subject != "" {
			c.Locals(localUserID, subject)
		}
		if role := roleFromClaims(claims); role != "" {
			c.Locals(localUserRole, role)
		}
		return c.Next()
	}
}

// UserID returns the token subject, or "" for anonymous requests.
func UserID(c *fiber.Ctx) string {
	if value, ok := c.Locals(localUserID).(string); ok {
		return value
	}
	return ""
}

// UserRole returns the lower-cased role claim.
func UserRole(c *fiber.Ctx) string {
	if value, ok := c.Locals(localUserRole).(string); ok {
		return value
	}
	return ""
}

func subjectFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"sub", "user_id", "username", "id"} {
		switch value := claims[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		case float64:
			if value >= 0 {
				return strconv.FormatFloat(value, 'f', -1, 64)
			}
		}
	}
	return ""
}

func roleFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"role", "roles"} {
		switch value := claims[key].(type) {
		case string:
			if role := strings.ToLower(strings.TrimSpace(value)); role != "" {
				return role
			}
		case []interface{}:
			for _, item := range value {
				if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
					return strings.ToLower(strings.TrimSpace(str))
				}
			}
		}
	}
	return ""
}
