// Package export renders a conversation transcript into a standalone HTML
// document, with assistant markdown rendered through goldmark.
package export

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("monokai"),
		),
	),
)

const pageHeader = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
.user { background: #eef; padding: 0.5rem 1rem; border-radius: 8px; }
.assistant { padding: 0.5rem 1rem; }
.role { font-weight: bold; margin-bottom: 0.25rem; }
pre { overflow-x: auto; padding: 0.5rem; }
</style>
</head>
<body>
<h1>%s</h1>
`

// HTML renders conv into a full HTML page. User turns are escaped verbatim;
// assistant turns go through markdown rendering.
func HTML(conv models.Conversation) ([]byte, error) {
	title := conv.Title
	if title == "" {
		title = "Conversation"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, pageHeader, html.EscapeString(title), html.EscapeString(title))

	for _, msg := range conv.Messages {
		switch msg.Role {
		case models.RoleUser:
			sb.WriteString(`<div class="user"><div class="role">You</div>`)
			sb.WriteString("<p>" + html.EscapeString(msg.Content) + "</p>")
			for _, att := range msg.Attachments {
				fmt.Fprintf(&sb, `<p><em>Attachment: %s</em></p>`, html.EscapeString(att.Name))
			}
			sb.WriteString("</div>\n")
		case models.RoleAssistant:
			var buf bytes.Buffer
			if err := md.Convert([]byte(msg.Content), &buf); err != nil {
				return nil, fmt.Errorf("failed to render markdown: %w", err)
			}
			sb.WriteString(`<div class="assistant"><div class="role">Gemini</div>`)
			sb.Write(buf.Bytes())
			sb.WriteString("</div>\n")
		}
	}

	sb.WriteString("</body>\n</html>\n")
	return []byte(sb.String()), nil
}

// WriteFile renders conv and writes it to path.
func WriteFile(path string, conv models.Conversation) error {
	out, err := HTML(conv)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
