package stock

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"backoffice.GO/api"
	"backoffice.GO/core/auth"
	entity "backoffice.GO/model/entity"
	"backoffice.GO/service/stockimport"
)

type importBody struct {
	Items     []stockimport.ItemInput `json:"items"`
	Mode      string                  `json:"mode"`
	BatchSize int                     `json:"batch_size"`
	Reason    string                  `json:"reason"`
}

func RegisterStockRoutes(apiGroup *echo.Group, d *api.Deps) {
	g := apiGroup.Group("/stock")

	// POST /api/stock/import – stock counts or receipts, JSON items or a CSV "file"
	g.POST("/import", func(c echo.Context) error {
		start := time.Now()
		ctx := c.Request().Context()
		actor := api.ActorFromContext(c)

		if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
			fh, err := c.FormFile("file")
			if err != nil {
				return api.BadRequest(c, "multipart field 'file' is required")
			}
			f, err := fh.Open()
			if err != nil {
				return api.BadRequest(c, err.Error())
			}
			defer f.Close()
			batchSize, _ := strconv.Atoi(c.FormValue("batch_size"))
			opts := stockimport.Options{
				Mode:      stockimport.Mode(strings.ToLower(c.FormValue("mode"))),
				BatchSize: batchSize,
				Reason:    c.FormValue("reason"),
			}
			res, err := d.StockImport.ImportCSV(ctx, f, opts, actor)
			if err != nil {
				return api.Fail(c, err)
			}
			return respond(c, start, res)
		}

		var body importBody
		if err := c.Bind(&body); err != nil {
			return api.BadRequest(c, err.Error())
		}
		if len(body.Items) == 0 {
			return api.BadRequest(c, "items array is required and must not be empty")
		}
		opts := stockimport.Options{
			Mode:      stockimport.Mode(strings.ToLower(body.Mode)),
			BatchSize: body.BatchSize,
			Reason:    body.Reason,
		}
		res, err := d.StockImport.Import(ctx, body.Items, opts, actor)
		if err != nil {
			return api.Fail(c, err)
		}
		return respond(c, start, res)
	}, auth.RequirePermission(entity.PermInventoryWrite))
}

func respond(c echo.Context, start time.Time, res *stockimport.Result) error {
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return api.Respond(c, http.StatusOK, start, echo.Map{
		"total_rows": res.TotalRows,
		"imported":   res.Imported,
		"skipped":    res.Skipped,
		"movements":  res.Movements,
		"warnings":   warnings,
	})
}
