package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"

	"github.com/ziadkadry99/sketchiq/internal/diagram"
	"github.com/ziadkadry99/sketchiq/internal/session"
)

const timeLayout = "2006-01-02 15:04"

// TranscriptMarkdown renders the conversation and every committed source.
func TranscriptMarkdown(st session.State, lang diagram.Language) string {
	var sb strings.Builder
	sb.WriteString("# sketchiq transcript\n\n")

	sb.WriteString("## Conversation\n\n")
	if len(st.Turns) == 0 {
		sb.WriteString("_No messages yet._\n\n")
	}
	for _, t := range st.Turns {
		who := "System"
		if t.Role == session.RoleUser {
			who = "You"
		}
		fmt.Fprintf(&sb, "**%s** (%s): %s\n\n", who, t.CreatedAt.Format(timeLayout), t.Content)
	}

	sb.WriteString("## History\n\n")
	if len(st.Entries) == 0 {
		sb.WriteString("_No diagrams yet._\n\n")
	}
	for i, e := range st.Entries {
		fmt.Fprintf(&sb, "### %d. %s\n\n", i+1, e.Prompt)
		writeFenced(&sb, string(lang), e.Source)
	}

	if st.Source != "" {
		sb.WriteString("## Current diagram\n\n")
		writeFenced(&sb, string(lang), st.Source)
	}
	return sb.String()
}

// writeFenced picks a fence longer than any backtick run in body.
func writeFenced(sb *strings.Builder, info, body string) {
	longest, run := 0, 0
	for _, r := range body {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	fence := strings.Repeat("`", max(3, longest+1))
	fmt.Fprintf(sb, "%s%s\n%s\n%s\n\n", fence, info, strings.TrimRight(body, "\n"), fence)
}

var transcriptPage = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>sketchiq transcript</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; }
pre { padding: 1rem; overflow-x: auto; border-radius: 6px; }
</style>
</head>
<body>
{{.}}
</body>
</html>
`))

// TranscriptHTML converts TranscriptMarkdown into a standalone HTML page.
// Raw HTML in user messages is not passed through.
func TranscriptHTML(st session.State, lang diagram.Language) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
	)

	var body bytes.Buffer
	if err := md.Convert([]byte(TranscriptMarkdown(st, lang)), &body); err != nil {
		return nil, fmt.Errorf("converting transcript: %w", err)
	}

	var page bytes.Buffer
	if err := transcriptPage.Execute(&page, template.HTML(body.String())); err != nil {
		return nil, fmt.Errorf("rendering transcript page: %w", err)
	}
	return page.Bytes(), nil
}
