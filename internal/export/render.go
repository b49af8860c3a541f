package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/phrazzld/artisan-api/internal/domain"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

var documentTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{- range .Meta}}
<meta name="{{.Name}}" content="{{.Content}}">
{{- end}}
<style>
body { max-width: 48rem; margin: 2rem auto; padding: 0 1rem; font-family: sans-serif; line-height: 1.6; }
hr { margin: 2rem 0; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

type metaTag struct {
	Name    string
	Content string
}

// CombineArticles joins articles into one Markdown document, each article
// introduced by its title and followed by a horizontal rule.
func CombineArticles(articles []domain.GeneratedArticle) string {
	var b strings.Builder
	for _, a := range articles {
		fmt.Fprintf(&b, "# %s\n\n%s\n\n---\n\n", a.Title, a.Content)
	}
	return b.String()
}

// RenderHTML converts Markdown into a complete HTML document.
func RenderHTML(content, title string, meta *Metadata) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(content), &body); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	if strings.TrimSpace(title) == "" {
		title = "Export"
	}

	data := struct {
		Title string
		Meta  []metaTag
		Body  template.HTML
	}{
		Title: title,
		Meta:  meta.tags(),
		// Without WithUnsafe goldmark drops raw HTML from the source and leaves
		// a "raw HTML omitted" comment in its place.
		Body: template.HTML(body.String()),
	}

	var out bytes.Buffer
	if err := documentTemplate.Execute(&out, data); err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}
	return out.Bytes(), nil
}

// withFrontMatter prefixes content with meta as a YAML front matter block.
func withFrontMatter(content string, meta *Metadata) ([]byte, error) {
	if meta == nil {
		return []byte(content), nil
	}
	header, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}

	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")
	b.WriteString(content)
	return b.Bytes(), nil
}

// render produces the file body for the text based formats.
func render(content string, format Format, title string, meta *Metadata) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return withFrontMatter(content, meta)
	case FormatText:
		return []byte(content), nil
	case FormatHTML:
		return RenderHTML(content, title, meta)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Preview returns what an export of content in format would look like.
// Formats without a textual preview yield a short placeholder.
func Preview(content string, format Format) (string, error) {
	switch format {
	case FormatMarkdown, FormatText:
		return content, nil
	case FormatHTML:
		out, err := RenderHTML(content, "Preview", nil)
		if err != nil {
			return "", err
		}
		return string(out), nil
	default:
		return fmt.Sprintf("Preview for %s format", format), nil
	}
}
