package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strings"
)

//go:embed templates/*.html
var templateFiles embed.FS

var templates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// Metadata is the document-level title and description.
type Metadata struct {
	Title       string
	Description string
}

// Font is a web font loaded from Google Fonts and applied to the body.
type Font struct {
	Family string
	// Subsets lists the character subsets the page needs. The css2 API
	// serves every subset as its own unicode-range face, so browsers only
	// download what a page uses; the field documents intent and is not sent.
	Subsets []string
	// ClassName is the body class that applies the family.
	ClassName string
}

// StylesheetURL is the Google Fonts css2 stylesheet for the family.
func (f Font) StylesheetURL() string {
	q := url.Values{}
	q.Set("family", f.Family)
	q.Set("display", "swap")
	return "https://fonts.googleapis.com/css2?" + q.Encode()
}

// Theme holds the classes set on <body> next to the font class.
type Theme struct {
	BodyClasses []string
}

// Layout is the root document wrapped around every page.
type Layout struct {
	Lang        string
	Metadata    Metadata
	Font        Font
	Theme       Theme
	Stylesheets []string
}

// DefaultLayout is the layout of the movies demo.
func DefaultLayout() Layout {
	return Layout{
		Lang: "en",
		Metadata: Metadata{
			Title:       "DynamoDB Movies Demo",
			Description: "List movies from an Amazon DynamoDB table.",
		},
		Font: Font{
			Family:    "Geist Mono",
			Subsets:   []string{"latin"},
			ClassName: "font-geist-mono",
		},
		Theme: Theme{
			BodyClasses: []string{"antialiased", "bg-white", "dark:bg-black"},
		},
		Stylesheets: []string{"/static/globals.css"},
	}
}

// BodyClass is the font class followed by the theme classes.
func (l Layout) BodyClass() string {
	classes := make([]string, 0, len(l.Theme.BodyClasses)+1)
	if l.Font.ClassName != "" {
		classes = append(classes, l.Font.ClassName)
	}
	classes = append(classes, l.Theme.BodyClasses...)
	return strings.Join(classes, " ")
}

type layoutData struct {
	Layout
	FontURL string
	Child   template.HTML
}

// Render writes the full document with child as the body content.
// child is trusted markup and is written as is.
func (l Layout) Render(w io.Writer, child template.HTML) error {
	var buf bytes.Buffer
	data := layoutData{Layout: l, Child: child}
	if l.Font.Family != "" {
		data.FontURL = l.Font.StylesheetURL()
	}
	if err := templates.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("render layout: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// renderPartial executes a page template into markup for Render.
func renderPartial(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}
