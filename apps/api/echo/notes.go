package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/studyhub/studyhub/core/notes"
)

type notesApi struct {
	reg *registry
}

func registerNotesAPI(g *echo.Group, jwt echo.MiddlewareFunc, reg *registry) {
	api := notesApi{reg: reg}

	ng := g.Group("/study/subjects/:subjectID/notes", jwt)
	ng.GET("", api.query)
	ng.POST("", api.create)
	ng.DELETE("/:id", api.destroy)
}

func (api *notesApi) engines(ctx echo.Context) (*engineSet, error) {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return api.reg.get(ident), nil
}

func (api *notesApi) query(ctx echo.Context) error {
	set, err := api.engines(ctx)
	if err != nil {
		return err
	}
	if err = set.notes.Load(ctx.Request().Context(), ctx.Param("subjectID")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, set.notes.Notes())
}

// create accepts a multipart form with a "file" part. The subject must exist
// in the owner's study plan; its name is denormalized onto the note.
func (api *notesApi) create(ctx echo.Context) error {
	set, err := api.engines(ctx)
	if err != nil {
		return err
	}

	subject, ok := set.plan.SubjectByID(ctx.Param("subjectID"))
	if !ok {
		return errHttpNotFound
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "a file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	if err = set.notes.Load(ctx.Request().Context(), subject.ID); err != nil {
		return err
	}
	note, err := set.notes.Add(ctx.Request().Context(), subject.ID, subject.Name, notes.Upload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Content:     src,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, note)
}

func (api *notesApi) destroy(ctx echo.Context) error {
	set, err := api.engines(ctx)
	if err != nil {
		return err
	}
	if err = set.notes.Load(ctx.Request().Context(), ctx.Param("subjectID")); err != nil {
		return err
	}
	if err = set.notes.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
