package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/wakahia/baraza/core"
	"github.com/wakahia/baraza/core/profile"
)

const tokenContextKey = "profileToken"

// appJWTConfig builds the JWT auth middleware config, reading the token from
// the Authorization header.
func appJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// appWSJWTConfig is the websocket variant: browsers cannot set headers on a
// websocket handshake, so the token rides a `token` query parameter.
func appWSJWTConfig(conf *core.Config) middleware.JWTConfig {
	c := appJWTConfig(conf)
	c.TokenLookup = "query:token"
	return c
}

// Claims represents the identity claims transmitted via a JWT. Issuing
// tokens is the identity collaborator's job; the messaging panel only reads
// them. A signing helper exists for tests and the admin CLI.
type Claims struct {
	jwt.StandardClaims
	Handle  string `json:"handle,omitempty"`
	Role    string `json:"role,omitempty"`
	IsAdmin bool   `json:"is_admin,omitempty"`
}

func GetProfileClaims(conf *core.Config, prof profile.Profile) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   prof.ID,
			Audience:  "Campus",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Handle:  prof.Handle,
		Role:    prof.Role,
		IsAdmin: prof.Role == profile.RoleAdmin,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)
	return token.SignedString([]byte(conf.SecretKey))
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// contextProfileID returns the authenticated profile id.
func contextProfileID(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
