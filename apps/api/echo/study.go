package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/studyhub/studyhub/core/studyplan"
)

type studyApi struct {
	reg *registry
}

func registerStudyAPI(g *echo.Group, jwt echo.MiddlewareFunc, reg *registry) {
	api := studyApi{reg: reg}

	sg := g.Group("/study", jwt)

	sg.GET("/subjects", api.querySubjects)
	sg.POST("/subjects", api.createSubject)
	sg.DELETE("/subjects/:id", api.destroySubject)

	sg.GET("/assignments", api.queryAssignments)
	sg.POST("/assignments", api.createAssignment)
	sg.PUT("/assignments/:id/status", api.updateAssignmentStatus)
	sg.DELETE("/assignments/:id", api.destroyAssignment)

	sg.GET("/exams", api.queryExams)
	sg.POST("/exams", api.createExam)
	sg.DELETE("/exams/:id", api.destroyExam)

	sg.GET("/stats", api.retrieveStats)
}

func (api *studyApi) engines(ctx echo.Context) (*engineSet, error) {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return api.reg.get(ident), nil
}

func (api *studyApi) querySubjects(ctx echo.Context) error {
	set, err := api.engines(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, set.plan.Subjects())
}

func (api *studyApi) createSubject(ctx echo.Context) error {
	set, err := api.engines(ctx)
	if err != nil {
		return err
	}

	data := new(studyplan.NewSubject)
	if err = ctx.Bind(data); err != nil {
		return err
	}
	sub, err := set.plan.AddSubject(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *studyApi) destroySubject(ctx echo.Context) error {
	set, err := api.engines(ctx)
	if err != nil {
		return err
	}
	if err = set.plan.DeleteSubject(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studyApi) queryAssignments(ctx echo.Context) error {
	set, err := api.engines(ctx)
	if err != nil {
		return err
	}
	if subjectID := ctx.QueryParam("subject"); subjectID != "" {
		return ctx.JSON(http.StatusOK, set.plan.AssignmentsBySubject(subjectID))
	}
	return ctx.JSON(http.StatusOK, set.plan.Assignments())
}

func (api *studyApi) createAssignment(ctx echo.Context) error {
	set, err := api.engines(ctx)
	if err != nil {
		return err
	}

	data := new(studyplan.NewAssignment)
	if err = ctx.Bind(data); err != nil {
		return err
	}
	asg, err := set.plan.AddAssignment(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, asg)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (api *studyApi) updateAssignmentStatus(ctx echo.Context) error {
	set, err := api.engines(ctx)
	if err != nil {
		return err
	}

	data := new(statusRequest)
	if err = ctx.Bind(data); err != nil {
		return err
	}
	if err = set.plan.UpdateAssignmentStatus(ctx.Request().Context(), ctx.Param("id"), data.Status); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusOK)
}

func (api *studyApi) destroyAssignment(ctx echo.Context) error {
	set, err := api.engines(ctx)
	if err != nil {
		return err
	}
	if err = set.plan.DeleteAssignment(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studyApi) queryExams(ctx echo.Context) error {
	set, err := api.engines(ctx)
	if err != nil {
		return err
	}
	if subjectID := ctx.QueryParam("subject"); subjectID != "" {
		return ctx.JSON(http.StatusOK, set.plan.ExamsBySubject(subjectID))
	}
	if ctx.QueryParam("upcoming") == "true" {
		return ctx.JSON(http.StatusOK, set.plan.UpcomingExams())
	}
	return ctx.JSON(http.StatusOK, set.plan.Exams())
}

func (api *studyApi) createExam(ctx echo.Context) error {
	set, err := api.engines(ctx)
	if err != nil {
		return err
	}

	data := new(studyplan.NewExam)
	if err = ctx.Bind(data); err != nil {
		return err
	}
	exam, err := set.plan.AddExam(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, exam)
}

func (api *studyApi) destroyExam(ctx echo.Context) error {
	set, err := api.engines(ctx)
	if err != nil {
		return err
	}
	if err = set.plan.DeleteExam(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studyApi) retrieveStats(ctx echo.Context) error {
	set, err := api.engines(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, set.plan.Stats())
}
