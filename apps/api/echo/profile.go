package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/studyhub/studyhub/core/profile"
)

type profileApi struct {
	reg *registry
}

func registerProfileAPI(g *echo.Group, jwt echo.MiddlewareFunc, reg *registry) {
	api := profileApi{reg: reg}

	pg := g.Group("/profile", jwt)
	pg.GET("", api.retrieve)
	pg.POST("", api.create)
	pg.PUT("", api.update)
	pg.GET("/avatars", api.queryAvatars)
}

type profileResponse struct {
	Profile    *profile.Profile `json:"profile"`
	IsComplete bool             `json:"is_complete"`
}

func (api *profileApi) engines(ctx echo.Context) (*engineSet, error) {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return api.reg.get(ident), nil
}

func (api *profileApi) retrieve(ctx echo.Context) error {
	set, err := api.engines(ctx)
	if err != nil {
		return err
	}
	if !set.profile.ProfileExists() {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, profileResponse{
		Profile:    set.profile.Profile(),
		IsComplete: set.profile.IsComplete(),
	})
}

func (api *profileApi) create(ctx echo.Context) error {
	set, err := api.engines(ctx)
	if err != nil {
		return err
	}

	data := new(profile.NewProfile)
	if err = ctx.Bind(data); err != nil {
		return err
	}
	if err = set.profile.Create(ctx.Request().Context(), *data); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusCreated)
}

func (api *profileApi) update(ctx echo.Context) error {
	set, err := api.engines(ctx)
	if err != nil {
		return err
	}

	data := new(profile.NewProfile)
	if err = ctx.Bind(data); err != nil {
		return err
	}
	if err = set.profile.Update(ctx.Request().Context(), *data); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusOK)
}

func (api *profileApi) queryAvatars(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, profile.Avatars)
}
