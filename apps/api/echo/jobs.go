package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/scheduler"
)

type jobsApi struct {
	sched *scheduler.Scheduler
}

func registerJobsAPI(g *echo.Group, jwt echo.MiddlewareFunc, sched *scheduler.Scheduler) {
	api := jobsApi{sched: sched}

	jg := g.Group("/jobs", jwt, adminMiddleware())
	jg.GET("", api.query)
	jg.GET("/:name", api.retrieve)
	jg.POST("/:name/start", api.start)
	jg.POST("/:name/stop", api.stop)
	jg.POST("/:name/run", api.run)
}

func (api *jobsApi) query(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.sched.Statuses())
}

func (api *jobsApi) retrieve(ctx echo.Context) error {
	status, err := api.sched.Status(ctx.Param("name"))
	if err != nil {
		return jobErr(err)
	}
	return ctx.JSON(http.StatusOK, status)
}

func (api *jobsApi) start(ctx echo.Context) error {
	if err := api.sched.Start(ctx.Param("name")); err != nil {
		return jobErr(err)
	}
	return api.retrieve(ctx)
}

func (api *jobsApi) stop(ctx echo.Context) error {
	if err := api.sched.Stop(ctx.Param("name")); err != nil {
		return jobErr(err)
	}
	return api.retrieve(ctx)
}

func (api *jobsApi) run(ctx echo.Context) error {
	// RunNow is synchronous; the run's outcome is reflected in the status
	if err := api.sched.RunNow(ctx.Param("name")); err != nil {
		switch errors.Cause(err) {
		case scheduler.ErrJobNotFound, scheduler.ErrJobBusy:
			return jobErr(err)
		}
	}
	return api.retrieve(ctx)
}

func jobErr(err error) error {
	switch errors.Cause(err) {
	case scheduler.ErrJobNotFound:
		return errHttpNotFound
	case scheduler.ErrJobBusy:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return err
}
