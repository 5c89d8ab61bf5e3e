// Package view renders the server-side pages.
package view

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/inventory-web/internal/core/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const layoutFile = "templates/layout.tmpl"

// Renderer implements echo.Renderer over the embedded page templates. Each
// page is parsed together with the shared layout.
type Renderer struct {
	pages  map[string]*template.Template
	logger zerolog.Logger
}

// PageData is the model every page template receives.
type PageData struct {
	Title     string
	User      *domain.User
	Profile   *domain.Profile
	IsManager bool
	Error     string
	Notice    string

	Stats    domain.DashboardStats
	Products []domain.Product
	Profiles []domain.Profile
	Editing  *domain.Product
}

func NewRenderer(logger zerolog.Logger) (*Renderer, error) {
	return newRenderer(templateFS, logger)
}

func newRenderer(fsys fs.FS, logger zerolog.Logger) (*Renderer, error) {
	files, err := fs.Glob(fsys, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template), logger: logger}
	for _, f := range files {
		if f == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(f), ".tmpl")
		t, err := template.New(name).Funcs(funcs).ParseFS(fsys, layoutFile, f)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		r.pages[name] = t
	}
	if len(r.pages) == 0 {
		return nil, errors.New("no page templates found")
	}
	return r, nil
}

// Render executes the layout of page name into w.
func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.logger.Error().Err(err).Str("page", name).Msg("template execution failed")
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

var funcs = template.FuncMap{
	"money":    money,
	"lowStock": lowStock,
	"deref":    deref,
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func lowStock(qty int) bool {
	return qty < domain.LowStockThreshold
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
