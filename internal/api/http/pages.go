package httpapi

import (
	"bytes"
	"embed"
	"encoding/base64"
	"html/template"

	"github.com/gofiber/fiber/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// areaTypes are the geographic levels understood by the upstream API.
var areaTypes = []string{"overview", "nation", "region", "nhsRegion", "utla", "ltla"}

type metricOption struct {
	Key   string
	Label string
}

type indexPage struct {
	AreaTypes []string
	Metrics   []metricOption
}

type imagePage struct {
	Title string
	From  string
	To    string
	Image template.URL
}

type errorPage struct {
	Message string
}

// pngDataURL embeds png as an inline image source.
func pngDataURL(png []byte) template.URL {
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
}

func render(c *fiber.Ctx, status int, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}
