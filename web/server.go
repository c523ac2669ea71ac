// Package web serves the intake form and the history sidebar.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"virtual-ward-intake/app"

	"github.com/google/uuid"
	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

type renderer struct {
	templates *template.Template
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

func NewServer(session *app.Session) (*echo.Echo, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = &renderer{templates: tmpl}

	e.Use(Recovery(session.Log))
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			c.Set("request_id", id)
		},
	}))
	e.Use(Logger(session.Log))
	if mb := session.Config.MaxUploadMB; mb > 0 {
		// Leave headroom for the text fields and multipart framing.
		e.Use(echomw.BodyLimit(fmt.Sprintf("%dM", mb+1)))
	}

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	h := &Handler{
		intake:  session.Intake,
		history: session.History,
		decoder: decoder,
		log:     session.Log,
	}

	e.GET("/", h.Index)
	e.POST("/submit", h.Submit)
	e.GET("/api/history", h.HistoryJSON)
	e.GET("/health", h.Health)

	return e, nil
}
