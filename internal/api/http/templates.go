package httpapi

import "html/template"

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>County COVID-19 Charts</title>
<style>
body { font-family: sans-serif; margin: 2em; }
ul { columns: 3; list-style: none; padding: 0; }
li { margin: 0.2em 0; }
.avg { color: #666; font-size: 0.9em; }
</style>
</head>
<body>
<h1>County COVID-19 Death/Cases Charts</h1>
<p>Select a county to chart its daily deaths and cases.</p>
<ul>
{{- range .Counties }}
<li><a href="/death-chart?county={{ .Name }}">{{ .Name }}</a>
{{- if .Digest }} <span class="avg">({{ .Digest.DeathAverage.StringFixed 2 }} deaths/day as of {{ .Digest.LastDate }})</span>{{ end }}</li>
{{- end }}
</ul>
</body>
</html>
`))
