package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/requestctx"
)

// Role constants used when checking authorisation boundaries.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	defaultSubjectClaim = "id"
	defaultRoleClaim    = "role"
	defaultEmailClaim   = "email"
	adminFlagClaim      = "isAdmin"
)

// actorFromClaims maps verified token claims onto the request actor. Tokens minted by the login
// flow carry only {id}; the role falls back to the admin flag and then to RoleUser.
func actorFromClaims(claims jwt.MapClaims, subjectClaim, roleClaim, emailClaim string) requestctx.Actor {
	actor := requestctx.Actor{
		UserID: claimAsString(claims, subjectClaim),
		Email:  claimAsString(claims, emailClaim),
		Role:   normaliseRole(claimAsString(claims, roleClaim)),
	}
	if actor.UserID == "" {
		actor.UserID = claimAsString(claims, "sub")
	}
	if actor.Role == "" {
		if flag, ok := claims[adminFlagClaim].(bool); ok && flag {
			actor.Role = RoleAdmin
		} else {
			actor.Role = RoleUser
		}
	}
	return actor
}

func claimAsString(claims jwt.MapClaims, key string) string {
	raw, ok := claims[key]
	if !ok {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	default:
		return ""
	}
}

func normaliseRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", false
	}

	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}
