package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/verte-zerg/cpctprep/internal/model"
	"github.com/verte-zerg/cpctprep/internal/store"
)

const (
	// TokenCookie carries the admin JWT.
	TokenCookie = "cpct_token"

	issuer          = "cpctprep"
	contextClaimKey = "claims"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
	IsAdmin  bool   `json:"isAdmin,omitempty"`
}

// AdminClaims builds the claims issued to an admin at login.
func AdminClaims(a model.Admin, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: a.Username,
		IsAdmin:  true,
	}
}

// GenerateToken signs the claims with HS256.
func GenerateToken(claims *Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func parseToken(raw string, secret []byte) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

func tokenFromRequest(ctx echo.Context) string {
	if header := ctx.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := ctx.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// authMiddleware requires a valid token in the Authorization header or cookie.
func authMiddleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			raw := tokenFromRequest(ctx)
			if raw == "" {
				return errMissingToken
			}
			claims, err := parseToken(raw, secret)
			if err != nil {
				return err
			}
			ctx.Set(contextClaimKey, claims)
			return next(ctx)
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if !claims.IsAdmin {
				return errHTTPForbidden
			}
			return next(ctx)
		}
	}
}

func getContextClaims(ctx echo.Context) (*Claims, error) {
	if claims, ok := ctx.Get(contextClaimKey).(*Claims); ok {
		return claims, nil
	}
	return nil, errMissingToken
}

type adminAPI struct {
	store        Store
	secret       []byte
	ttl          time.Duration
	secureCookie bool
}

// LoginRequest is the admin login body.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func registerAdminAPI(g *echo.Group, auth echo.MiddlewareFunc, opts *Options) {
	api := &adminAPI{
		store:        opts.Store,
		secret:       opts.JWTSecret,
		ttl:          opts.JWTTTL,
		secureCookie: opts.SecureCookie,
	}
	ag := g.Group("/admin")
	ag.POST("/login", api.login)
	ag.POST("/logout", api.logout)
	ag.GET("/me", api.me, auth, adminMiddleware())
}

func (api *adminAPI) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := ctx.Validate(&data); err != nil {
		return err
	}

	admin, err := api.store.GetAdminByUsername(ctx.Request().Context(), data.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "finding admin")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(data.Password)); err != nil {
		return errAuthenticationFailed
	}
	now := time.Now().UTC()
	if err := api.store.SetAdminLastLogin(ctx.Request().Context(), admin.ID, now); err != nil {
		return errors.Wrap(err, "setting lastLogin")
	}

	claims := AdminClaims(admin, api.ttl)
	token, err := GenerateToken(claims, api.secret)
	if err != nil {
		return err
	}
	expires := claims.ExpiresAt.Time
	ctx.SetCookie(&http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   api.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, ExpiresAt: expires})
}

func (api *adminAPI) logout(ctx echo.Context) error {
	ctx.SetCookie(&http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   api.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminAPI) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"id":        claims.Subject,
		"username":  claims.Username,
		"expiresAt": claims.ExpiresAt.Time,
	})
}

// HashPassword hashes an admin password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hashing password")
	}
	return string(hash), nil
}
