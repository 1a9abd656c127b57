package parser

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// extractPayload locates the <code_changes> document inside source. LLM
// responses usually wrap the document in a fenced code block surrounded by
// prose, so fenced blocks are searched first; the raw text is scanned as a
// fallback.
func extractPayload(source string) (string, bool) {
	for _, block := range fencedBlocks([]byte(source)) {
		if payload, ok := sliceContainer(block); ok {
			return payload, true
		}
	}
	return sliceContainer(source)
}

// fencedBlocks uses a markdown AST to collect the raw contents of every
// fenced code block in source.
func fencedBlocks(source []byte) []string {
	var blocks []string
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var content bytes.Buffer
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(source))
		}
		blocks = append(blocks, content.String())
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil
	}
	return blocks
}

// sliceContainer cuts the text between the container's open and close
// markers, both of which must be present. The last close marker wins: a
// CDATA payload may legitimately contain the literal close marker, and
// cutting at the first occurrence would truncate the document mid-entry.
func sliceContainer(s string) (string, bool) {
	openMarker := "<" + rootTag
	closeMarker := "</" + rootTag + ">"

	start := strings.Index(s, openMarker)
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(s[start:], closeMarker)
	if end < 0 {
		return "", false
	}
	return s[start : start+end+len(closeMarker)], true
}
