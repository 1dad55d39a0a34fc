package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-school-api/internal/models"
	"github.com/noah-isme/gema-school-api/internal/utils"
)

const tokenLeeway = 30 * time.Second

var errInvalidClaim = errors.New("invalid claim value")

// tokenIdentity is the caller identity carried by an access token. Tokens are
// issued elsewhere; this service only verifies them.
type tokenIdentity struct {
	UserID   uint
	Role     string
	SchoolID uint
}

// JWTProtected verifies HMAC-signed bearer tokens and stores the caller's
// user_id, user_role and school_id in the request locals.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(tokenLeeway),
	)
	keyFunc := func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}

	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing or malformed")
		}

		claims := jwt.MapClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, keyFunc)
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		identity, ok := identityFromClaims(claims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "token subject missing")
		}

		c.Locals("user_id", identity.UserID)
		if identity.Role != "" {
			c.Locals("user_role", identity.Role)
		}
		if identity.SchoolID > 0 {
			c.Locals("school_id", identity.SchoolID)
		}

		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func identityFromClaims(claims jwt.MapClaims) (tokenIdentity, bool) {
	var identity tokenIdentity
	for _, key := range []string{"sub", "user_id", "id"} {
		if id, err := claimUint(claims[key]); err == nil && id > 0 {
			identity.UserID = id
			break
		}
	}
	if identity.UserID == 0 {
		return identity, false
	}

	for _, key := range []string{"school_id", "school"} {
		if id, err := claimUint(claims[key]); err == nil && id > 0 {
			identity.SchoolID = id
			break
		}
	}

	identity.Role = claimRole(claims["role"])
	if identity.Role == "" {
		identity.Role = claimRole(claims["roles"])
	}

	return identity, true
}

func claimUint(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 || v != float64(uint(v)) {
			return 0, errInvalidClaim
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, errInvalidClaim
		}
		return uint(parsed), nil
	default:
		return 0, errInvalidClaim
	}
}

// claimRole picks the most privileged known role from a single role string or
// a list of roles. Unknown roles are ignored so RequireRole rejects them.
func claimRole(value interface{}) string {
	var candidates []string
	switch v := value.(type) {
	case string:
		candidates = []string{v}
	case []interface{}:
		for _, item := range v {
			if role, ok := item.(string); ok {
				candidates = append(candidates, role)
			}
		}
	}

	best := -1
	for _, candidate := range candidates {
		rank := roleRank(strings.ToLower(strings.TrimSpace(candidate)))
		if rank >= 0 && (best < 0 || rank < best) {
			best = rank
		}
	}
	if best < 0 {
		return ""
	}
	return models.AllRoles[best]
}

func roleRank(role string) int {
	for i, known := range models.AllRoles {
		if known == role {
			return i
		}
	}
	return -1
}
