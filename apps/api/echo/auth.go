package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/studyhub/studyhub/core"
	"github.com/studyhub/studyhub/core/session"
)

const identityTokenKey = "identityToken"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    identityTokenKey,
		Claims:        new(Claims),
	}
}

func GetIdentityClaims(ident session.Identity, conf *core.Config, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   ident.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        ident.Email,
	}
}

// GenerateToken generates a signed JWT token string representing the identity Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(identityTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextIdentity(ctx echo.Context) (session.Identity, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return session.Identity{}, err
	}
	return session.Identity{ID: claims.Subject, Email: claims.Email}, nil
}

// refreshClaims re-issues claims while the original issue time is within the
// refresh window.
func refreshClaims(ctx echo.Context, conf *core.Config) (*Claims, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(cutoff) {
		return nil, errRefreshExpired
	}
	ident := session.Identity{ID: claims.Subject, Email: claims.Email}
	return GetIdentityClaims(ident, conf, claims.OrigIssuedAt), nil
}
