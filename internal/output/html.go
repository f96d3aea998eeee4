package output

import (
	"bytes"
	"fmt"
	"html"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/umbrella-scan/umbrella/internal/types"
)

// HTMLFormatter renders the markdown report to a standalone HTML page.
type HTMLFormatter struct {
	Verbose bool
}

const htmlStyle = `body{font-family:system-ui,sans-serif;max-width:960px;margin:2rem auto;padding:0 1rem;color:#222}
table{border-collapse:collapse;width:100%}th,td{border:1px solid #ccc;padding:.3rem .5rem;text-align:left}
th{background:#f3f3f3}code{font-size:.9em}`

func (f *HTMLFormatter) Format(w io.Writer, result *types.ScanResult) error {
	var src bytes.Buffer
	md := &MarkdownFormatter{Verbose: f.Verbose, Plain: true}
	if err := md.Format(&src, result); err != nil {
		return err
	}

	var body bytes.Buffer
	gm := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := gm.Convert(src.Bytes(), &body); err != nil {
		return fmt.Errorf("render html: %w", err)
	}

	title := "Umbrella scan report"
	if result.Target != "" {
		title += ": " + result.Target
	}
	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n<style>\n%s\n</style>\n</head>\n<body>\n%s</body>\n</html>\n",
		html.EscapeString(title), htmlStyle, body.String())
	return err
}
