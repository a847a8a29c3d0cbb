package report

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"backoffice.GO/api"
	"backoffice.GO/core/apperr"
	"backoffice.GO/core/auth"
	entity "backoffice.GO/model/entity"
	reportEntity "backoffice.GO/model/entity/report"
	reportService "backoffice.GO/service/report"
)

// queryParams turns every query value except the definition selector into a
// report parameter. Repeated keys are joined into one comma-separated list.
func queryParams(c echo.Context) map[string]interface{} {
	out := map[string]interface{}{}
	for k, vs := range c.QueryParams() {
		if k == "definition_id" || len(vs) == 0 {
			continue
		}
		out[k] = strings.Join(vs, ",")
	}
	return out
}

// RegisterReportRoutes mounts report runs, saved definitions and CSV export under /reports.
func RegisterReportRoutes(apiGroup *echo.Group, d *api.Deps) {
	g := apiGroup.Group("/reports")
	run := auth.RequirePermission(entity.PermReportsRun)

	g.GET("/kinds", func(c echo.Context) error {
		start := time.Now()
		return api.Respond(c, http.StatusOK, start, echo.Map{"kinds": reportService.AllKinds()})
	})

	// POST /api/reports/run {"kind":"daily","params":{"date":"2025-03-03"}}
	g.POST("/run", func(c echo.Context) error {
		start := time.Now()
		var body reportService.RunRequest
		if err := c.Bind(&body); err != nil {
			return api.BadRequest(c, err.Error())
		}
		gen, result, err := d.Reports.Run(c.Request().Context(), body, api.ActorFromContext(c))
		if err != nil {
			if gen != nil {
				return c.JSON(api.StatusOf(err), echo.Map{"error": apperr.PublicMessage(err), "run_token": gen.RunToken})
			}
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"run": gen, "result": result})
	}, run)

	// GET /api/reports/export/inventory?low_stock_only=true – CSV download
	g.GET("/export/:kind", func(c echo.Context) error {
		req := reportService.RunRequest{Kind: c.Param("kind"), Params: queryParams(c)}
		defID, err := api.QueryUint(c, "definition_id")
		if err != nil {
			return api.Fail(c, err)
		}
		req.DefinitionID = defID
		gen, result, err := d.Reports.Run(c.Request().Context(), req, api.ActorFromContext(c))
		if err != nil {
			return api.Fail(c, err)
		}
		filename := fmt.Sprintf("%s_%s.csv", result.Kind, gen.StartedAt.Format("20060102_150405"))
		c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
		c.Response().WriteHeader(http.StatusOK)
		return reportService.WriteCSV(c.Response(), result)
	}, run)

	g.GET("/runs", func(c echo.Context) error {
		start := time.Now()
		limit, _ := strconv.Atoi(c.QueryParam("limit"))
		runs, err := d.Reports.Runs(c.Request().Context(), limit)
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"runs": runs, "count": len(runs)})
	})

	g.GET("/runs/:token", func(c echo.Context) error {
		start := time.Now()
		gen, err := d.Reports.RunByToken(c.Request().Context(), c.Param("token"))
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"run": gen})
	})

	g.GET("/definitions", func(c echo.Context) error {
		start := time.Now()
		defs, err := d.Reports.Definitions(c.Request().Context())
		if err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusOK, start, echo.Map{"definitions": defs, "count": len(defs)})
	})

	g.POST("/definitions", func(c echo.Context) error {
		start := time.Now()
		var def reportEntity.Definition
		if err := c.Bind(&def); err != nil {
			return api.BadRequest(c, err.Error())
		}
		def.ID = 0
		def.IsActive = true
		if err := d.Reports.CreateDefinition(c.Request().Context(), &def); err != nil {
			return api.Fail(c, err)
		}
		return api.Respond(c, http.StatusCreated, start, echo.Map{"definition": def})
	}, run)
}

