package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/httpx"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/requestctx"
)

// AdminChecker confirms an actor's admin status against a backing store. It runs after the token
// verified and only for routes that require the admin role.
type AdminChecker func(ctx context.Context, actor requestctx.Actor) (bool, error)

// Authenticator verifies HS256 bearer tokens issued by the login service.
type Authenticator struct {
	secret []byte
	parser *jwt.Parser

	subjectClaim string
	roleClaim    string
	emailClaim   string

	adminCheck AdminChecker
	logger     *zap.Logger
}

// Option customises Authenticator behaviour.
type Option func(*Authenticator)

// WithSubjectClaim overrides the claim holding the user id.
func WithSubjectClaim(claim string) Option {
	return func(a *Authenticator) {
		if claim = strings.TrimSpace(claim); claim != "" {
			a.subjectClaim = claim
		}
	}
}

// WithRoleClaim overrides the claim used for role extraction.
func WithRoleClaim(claim string) Option {
	return func(a *Authenticator) {
		if claim = strings.TrimSpace(claim); claim != "" {
			a.roleClaim = claim
		}
	}
}

// WithAdminChecker installs a store lookup for admin routes.
func WithAdminChecker(check AdminChecker) Option {
	return func(a *Authenticator) {
		a.adminCheck = check
	}
}

// WithLogger sets the logger used for verification failures.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAuthenticator builds an authenticator for the shared signing secret. An empty secret yields
// a disabled authenticator whose guards let every request through.
func NewAuthenticator(secret string, opts ...Option) *Authenticator {
	a := &Authenticator{
		secret:       []byte(strings.TrimSpace(secret)),
		parser:       jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
		subjectClaim: defaultSubjectClaim,
		roleClaim:    defaultRoleClaim,
		emailClaim:   defaultEmailClaim,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Enabled reports whether a signing secret is configured.
func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.secret) > 0
}

// Verify parses the token and returns the actor it identifies.
func (a *Authenticator) Verify(token string) (requestctx.Actor, error) {
	if !a.Enabled() {
		return requestctx.Actor{}, errors.New("auth: signing secret not configured")
	}
	claims := jwt.MapClaims{}
	if _, err := a.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}); err != nil {
		return requestctx.Actor{}, err
	}
	actor := actorFromClaims(claims, a.subjectClaim, a.roleClaim, a.emailClaim)
	if actor.UserID == "" {
		return requestctx.Actor{}, errors.New("auth: token has no subject")
	}
	return actor, nil
}

// Require verifies the bearer token and, when roles are given, that the actor holds one of them.
// The verified actor is stored on the request context.
func (a *Authenticator) Require(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if role = normaliseRole(role); role != "" {
			allowed[role] = struct{}{}
		}
	}
	_, adminOnly := allowed[RoleAdmin]

	return func(next http.Handler) http.Handler {
		if !a.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "Not authorized, no token provided", http.StatusUnauthorized))
				return
			}

			actor, err := a.Verify(token)
			if err != nil {
				a.logger.Debug("token verification failed", zap.Error(err))
				if errors.Is(err, jwt.ErrTokenExpired) {
					httpx.WriteError(ctx, w, httpx.NewError("token_expired", "Token expired, please login again", http.StatusUnauthorized))
					return
				}
				httpx.WriteError(ctx, w, httpx.NewError("invalid_token", "Invalid token", http.StatusUnauthorized))
				return
			}

			if len(allowed) > 0 {
				if _, ok := allowed[actor.Role]; !ok && !a.confirmAdmin(ctx, adminOnly, &actor) {
					httpx.WriteError(ctx, w, httpx.NewError("forbidden", "Access denied. Admin privileges required.", http.StatusForbidden))
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(requestctx.WithActor(ctx, actor)))
		})
	}
}

func (a *Authenticator) confirmAdmin(ctx context.Context, adminRoute bool, actor *requestctx.Actor) bool {
	if !adminRoute || a.adminCheck == nil {
		return false
	}
	ok, err := a.adminCheck(ctx, *actor)
	if err != nil {
		a.logger.Warn("admin lookup failed", zap.String("userId", actor.UserID), zap.Error(err))
		return false
	}
	if ok {
		actor.Role = RoleAdmin
	}
	return ok
}
