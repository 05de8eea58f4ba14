package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// LoadDraft reads an operator draft. Markdown files are flattened to plain
// text so formatting syntax is not read aloud.
func LoadDraft(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read draft: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FlattenMarkdown(data), nil
	default:
		return strings.TrimSpace(string(data)), nil
	}
}

// FlattenMarkdown renders Markdown source as plain paragraphs separated by
// blank lines. Headings and list items become their own paragraphs; inline
// markup is dropped and its text kept.
func FlattenMarkdown(source []byte) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))
	var b strings.Builder
	var para strings.Builder

	flush := func() {
		line := strings.Join(strings.Fields(para.String()), " ")
		para.Reset()
		if line == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(line)
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				para.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					para.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				para.Write(node.Value)
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					para.Write(seg.Value(source))
					para.WriteByte(' ')
				}
				flush()
				return ast.WalkSkipChildren, nil
			}
		default:
			if !entering && n.Type() == ast.TypeBlock && n.Kind() != ast.KindList && n.Kind() != ast.KindDocument {
				flush()
			}
		}
		return ast.WalkContinue, nil
	})
	flush()
	return b.String()
}
