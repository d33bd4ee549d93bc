package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/live"
)

//go:embed templates/*.html
var templateFS embed.FS

// DateLayout is how bookmark creation dates are shown.
const DateLayout = "Jan 2, 2006, 03:04 PM"

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"countLabel":  CountLabel,
	"displayDate": func(t time.Time) string { return t.Local().Format(DateLayout) },
}).ParseFS(templateFS, "templates/*.html"))

// CountLabel renders "1 bookmark" / "N bookmarks".
func CountLabel(n int) string {
	if n == 1 {
		return "1 bookmark"
	}
	return fmt.Sprintf("%d bookmarks", n)
}

type landingData struct {
	LoginFailed bool
}

type bookmarksData struct {
	Email string
	List  live.Snapshot
}

// RenderList renders the list fragment the live view pushes.
func RenderList(s live.Snapshot) (string, error) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, "list", s); err != nil {
		return "", fmt.Errorf("render list: %w", err)
	}
	return buf.String(), nil
}

// render buffers the page so a template error still yields a clean 500.
func render(w http.ResponseWriter, name string, data any) error {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, err := buf.WriteTo(w)
	return err
}
