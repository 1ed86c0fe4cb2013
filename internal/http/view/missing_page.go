package view

import (
	"html/template"
	"strings"
)

// MissingPageData feeds the "link not found" page shown instead of a bare 404.
type MissingPageData struct {
	Title   string
	Code    string
	HomeURL string
}

var missingPageTmpl = template.Must(template.New("missing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <style>
    body {
      margin: 0;
      min-height: 100vh;
      display: flex;
      align-items: center;
      justify-content: center;
      font-family: -apple-system, "Segoe UI", Roboto, sans-serif;
      background: #f4f5f7;
      color: #1f2430;
    }
    .card {
      background: #fff;
      border-radius: 12px;
      box-shadow: 0 8px 24px rgba(31, 36, 48, 0.08);
      padding: 40px 48px;
      max-width: 420px;
      text-align: center;
    }
    .card h1 {
      margin: 0 0 8px;
      font-size: 22px;
    }
    .card p {
      margin: 0 0 24px;
      color: #6b7280;
      line-height: 1.5;
    }
    .card code {
      background: #f4f5f7;
      border-radius: 4px;
      padding: 2px 6px;
    }
    .card a {
      display: inline-block;
      padding: 10px 24px;
      border-radius: 8px;
      background: #2563eb;
      color: #fff;
      text-decoration: none;
    }
  </style>
</head>
<body>
  <div class="card">
    <h1>{{.Title}}</h1>
    {{if .Code}}
    <p>The short link <code>{{.Code}}</code> does not exist or is no longer available.</p>
    {{else}}
    <p>The short link you followed does not exist or is no longer available.</p>
    {{end}}
    <a href="{{.HomeURL}}">Go home</a>
  </div>
</body>
</html>
`))

// RenderMissingPage renders the not-found page for unknown short codes.
func RenderMissingPage(data MissingPageData) (string, error) {
	if data.Title == "" {
		data.Title = "Link not found"
	}
	if data.HomeURL == "" {
		data.HomeURL = "/"
	}

	var sb strings.Builder
	if err := missingPageTmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
