package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/studyhub/studyhub/core"
	"github.com/studyhub/studyhub/core/session"
)

type authApi struct {
	auth session.AuthProvider
	conf *core.Config
	reg  *registry
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options, reg *registry) {
	api := authApi{auth: opts.Auth, conf: opts.Conf, reg: reg}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/signup", api.signUp)
	ag.POST("/signin", api.signIn)

	// authed endpoints
	ag.POST("/token-refresh", api.refreshToken, jwt)
	ag.POST("/signout", api.signOut, jwt)
}

type (
	credentialsRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
	}

	tokenResponse struct {
		Token    string           `json:"token"`
		Identity session.Identity `json:"identity"`
	}
)

func (cr *credentialsRequest) Validate() error {
	cr.Email = core.CleanString(cr.Email, true /* lower */)
	return core.Validate.Struct(cr)
}

func (api *authApi) signUp(ctx echo.Context) error {
	data := new(credentialsRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ident, err := api.auth.SignUp(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return err
	}
	return api.tokenResponse(ctx, http.StatusCreated, ident)
}

func (api *authApi) signIn(ctx echo.Context) error {
	data := new(credentialsRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ident, err := api.auth.SignIn(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return err
	}
	return api.tokenResponse(ctx, http.StatusOK, ident)
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := refreshClaims(ctx, api.conf)
	if err != nil {
		return err
	}
	token, err := GenerateToken(claims, api.conf)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tokenResponse{
		Token:    token,
		Identity: session.Identity{ID: claims.Subject, Email: claims.Email},
	})
}

// signOut drops the identity's cached engines. The token itself simply
// expires; there is no server-side session to revoke.
func (api *authApi) signOut(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	api.reg.drop(ident.ID)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) tokenResponse(ctx echo.Context, code int, ident session.Identity) error {
	token, err := GenerateToken(GetIdentityClaims(ident, api.conf), api.conf)
	if err != nil {
		return err
	}
	return ctx.JSON(code, tokenResponse{Token: token, Identity: ident})
}
