package handler

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/brewline/console/internal/core/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names accepted by Renderer.
const (
	pageLanding   = "landing"
	pageLogin     = "login"
	pageRegister  = "register"
	pageDashboard = "dashboard"
	pageSection   = "section"
)

// Renderer implements echo.Renderer over the embedded console templates.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page together with the shared layout.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{pageLanding, pageLogin, pageRegister, pageDashboard, pageSection} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// page is the view model shared by every console template.
type page struct {
	Title  string
	User   *domain.User
	Notice string
	Error  string

	// Form echoes, never the password.
	Email       string
	CompanyName string

	Sections []section
}

type section struct {
	Name string
	Path string
}
