package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/user"
)

type attendanceApi struct {
	svc     attendance.Service
	userSvc user.Service
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc attendance.Service, userSvc user.Service) {
	api := attendanceApi{svc: svc, userSvc: userSvc}

	ag := g.Group("/attendance", jwt)
	ag.POST("", api.checkIn, staffMiddleware())
	ag.GET("", api.query, staffMiddleware())
	ag.PATCH("/status", api.setPresent, staffMiddleware())
	ag.GET("/:id", api.retrieve, staffMiddleware())
}

// AttendanceListResponse carries one page of rows plus the unpaginated
// present/absent counts for the same filter.
type AttendanceListResponse struct {
	Results []attendance.Attendance `json:"results"`
	Stats   attendance.Statistics   `json:"stats"`
	Meta    core.ListMeta           `json:"meta"`
}

func (api *attendanceApi) checkIn(ctx echo.Context) error {
	var data attendance.CheckIn
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckIn")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actorID, err := api.actorID(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.Record(ctx.Request().Context(), data, actorID)
	if err != nil {
		return err
	}
	code := http.StatusOK
	if res.Outcome == attendance.OutcomeCreated {
		code = http.StatusCreated
	}
	return ctx.JSON(code, res)
}

func (api *attendanceApi) setPresent(ctx echo.Context) error {
	var data attendance.SetPresent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetPresent")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actorID, err := api.actorID(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.SetPresent(ctx.Request().Context(), data, actorID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	atts, stats, meta, err := api.svc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if atts == nil {
		atts = []attendance.Attendance{}
	}
	return ctx.JSON(http.StatusOK, AttendanceListResponse{Results: atts, Stats: stats, Meta: meta})
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	att, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *attendanceApi) actorID(ctx echo.Context) (*int, error) {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return nil, errors.Wrap(err, "getting context user")
	}
	return &ctxUsr.ID, nil
}
