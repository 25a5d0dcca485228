package httpapi

import (
	"errors"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/covid-trends/internal/chart"
	"github.com/i474232898/covid-trends/internal/covid"
	"github.com/i474232898/covid-trends/internal/observability"
)

var validate = validator.New()

// RegisterRoutes wires the HTML form and chart handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *covid.Service, renderer *chart.Renderer, labels covid.Labels, metrics *observability.Metrics) {
	form := func(c *fiber.Ctx) error {
		page := indexPage{AreaTypes: areaTypes}
		for _, key := range labels.Metrics() {
			page.Metrics = append(page.Metrics, metricOption{Key: key, Label: labels.Label(key)})
		}
		return render(c, fiber.StatusOK, "index", page)
	}
	app.Get("/", form)
	app.Post("/", form)

	image := func(c *fiber.Ctx) error {
		req := bindImageRequest(c)
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, describeValidation(err))
		}

		sel := req.selector()
		series, window, err := service.BuildSeries(c.UserContext(), sel, req.StartDate, req.EndDate)
		if err != nil {
			return err
		}

		png, err := renderer.Render(series, sel.Metric, sel.AreaName, window)
		metrics.RecordChart(err)
		if err != nil {
			log.Printf("ERROR: chart render failed for %s: %v", sel.Key(), err)
			return err
		}

		return render(c, fiber.StatusOK, "image", imagePage{
			Title: labels.Label(sel.Metric) + " in " + sel.AreaName,
			From:  window.FromString(),
			To:    window.ToString(),
			Image: pngDataURL(png),
		})
	}
	app.Get("/image", image)
	app.Post("/image", image)
}

// imageRequest holds the form fields submitted from the index page.
type imageRequest struct {
	AreaType      string `validate:"required"`
	AreaName      string `validate:"required"`
	DataToDisplay string `validate:"required"`
	StartDate     string
	EndDate       string
}

func (r imageRequest) selector() covid.Selector {
	return covid.Selector{
		AreaType: r.AreaType,
		AreaName: r.AreaName,
		Metric:   r.DataToDisplay,
	}
}

// bindImageRequest reads fields from the urlencoded/multipart body or the query string.
func bindImageRequest(c *fiber.Ctx) imageRequest {
	return imageRequest{
		AreaType:      strings.TrimSpace(c.FormValue("areaType")),
		AreaName:      strings.TrimSpace(c.FormValue("areaName")),
		DataToDisplay: strings.TrimSpace(c.FormValue("data_to_display")),
		StartDate:     strings.TrimSpace(c.FormValue("start_date")),
		EndDate:       strings.TrimSpace(c.FormValue("end_date")),
	}
}

var formFieldNames = map[string]string{
	"AreaType":      "areaType",
	"AreaName":      "areaName",
	"DataToDisplay": "data_to_display",
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, formFieldNames[fe.Field()])
	}
	return "missing required field(s): " + strings.Join(missing, ", ")
}
