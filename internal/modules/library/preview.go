package library

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

const previewMaxLength = 300

var previewEngine = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// plainTextPreview walks the markdown AST and joins its text content,
// skipping code blocks and raw HTML. Used for catalog previews of chunk
// content.
func plainTextPreview(markdown string) string {
	source := []byte(markdown)
	root := previewEngine.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.Heading, *ast.Paragraph, *ast.ListItem:
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})

	preview := strings.Join(strings.Fields(b.String()), " ")
	runes := []rune(preview)
	if len(runes) <= previewMaxLength {
		return preview
	}
	return string(runes[:previewMaxLength])
}
