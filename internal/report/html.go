package report

import (
	"bytes"
	"fmt"
	"html"

	"gouplift/domain/run"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const pageStyle = `body{font-family:system-ui,sans-serif;max-width:64rem;margin:2rem auto;padding:0 1rem;color:#222}
table{border-collapse:collapse;margin:1rem 0}th,td{border:1px solid #ccc;padding:.25rem .6rem}
th{background:#f4f4f4}td{font-variant-numeric:tabular-nums}code{background:#f4f4f4;padding:0 .2rem}`

// MarkdownToHTML converts a Markdown fragment to HTML
func MarkdownToHTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse(md)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return markdown.Render(doc, renderer)
}

// HTML renders the run as a standalone HTML page
func HTML(r *run.Report) []byte {
	body := MarkdownToHTML([]byte(Markdown(r)))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Uplift run %s</title>\n<style>%s</style>\n</head>\n<body>\n",
		html.EscapeString(string(r.Manifest.RunID)), pageStyle)
	buf.Write(body)
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes()
}
