package httpapi

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/covid-trends/internal/chart"
	"github.com/i474232898/covid-trends/internal/covid"
)

// ErrorHandler renders failures as an HTML page with a matching status code.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "failed to build the chart"

	var fe *covid.FetchError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		msg = fiberErr.Message
	case errors.Is(err, covid.ErrNoData):
		code = fiber.StatusNotFound
		msg = "the data provider returned no data for this area and metric"
	case errors.Is(err, chart.ErrNoPoints):
		code = fiber.StatusNotFound
		msg = "the selected period has no values to plot"
	case errors.As(err, &fe):
		code = fiber.StatusBadGateway
		msg = "could not fetch data for " + fe.Selector.AreaName + " (" + fe.Selector.Metric + ") from the data provider"
	}

	if code >= fiber.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Method(), c.OriginalURL(), err)
	}

	if renderErr := render(c, code, "error", errorPage{Message: msg}); renderErr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}
