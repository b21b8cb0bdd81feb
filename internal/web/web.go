// Package web holds the embedded HTML templates and the error page renderer.
package web

import (
	"embed"
	"html/template"
	"net/http"

	"lottery_system/internal/domain"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var files embed.FS

// helpers are available to every page template
var helpers = template.FuncMap{
	"drawMin": func() int { return domain.DrawMinNumber },
	"drawMax": func() int { return domain.DrawMaxNumber },
}

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(helpers).ParseFS(files, "templates/*.html"))
}

var errorTitles = map[int]string{
	http.StatusBadRequest:          "Bad Request",
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "Page Not Found",
	http.StatusTooManyRequests:     "Too Many Requests",
	http.StatusInternalServerError: "Internal Server Error",
	http.StatusServiceUnavailable:  "Service Unavailable",
}

// RenderError writes the fixed error page for status and aborts the chain.
func RenderError(c *gin.Context, status int) {
	title, ok := errorTitles[status]
	if !ok {
		status, title = http.StatusInternalServerError, errorTitles[http.StatusInternalServerError]
	}
	c.HTML(status, "error.html", gin.H{"status": status, "title": title})
	c.Abort()
}
