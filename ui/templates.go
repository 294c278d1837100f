package ui

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"gouplift/domain/core"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

func parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"short": func(id core.RunID) string {
			s := id.String()
			if len(s) > 13 {
				return s[:13]
			}
			return s
		},
	}
	return template.New("ui").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
}

// renderTemplate executes into a buffer and writes nothing on failure
func (s *Server) renderTemplate(c *gin.Context, templateName string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		s.logger.Error("template %s: %v", templateName, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "template rendering failed"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
