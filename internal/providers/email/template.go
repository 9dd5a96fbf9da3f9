package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var baseTemplate = template.Must(template.ParseFS(templateFS, "templates/base.html"))

// Render produces the HTML body for a message using the embedded layout.
func Render(msg Message) (string, error) {
	var body bytes.Buffer
	if err := baseTemplate.Execute(&body, msg); err != nil {
		return "", fmt.Errorf("render mail template: %w", err)
	}
	return body.String(), nil
}
