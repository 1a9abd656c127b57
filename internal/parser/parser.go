package parser

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/sokinpui/xtf/model"
)

const (
	rootTag  = "code_changes"
	blockTag = "changed_files"
	fileTag  = "file"

	summaryTag   = "file_summary"
	operationTag = "file_operation"
	pathTag      = "file_path"
	codeTag      = "file_code"
)

// FormatError reports a change document that cannot yield any valid entries.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid change document: %s (expected <%s> containing <%s> blocks)", e.Reason, rootTag, blockTag)
}

// Skip records an entry that was dropped during parsing and why.
type Skip struct {
	Path   string // empty when the entry had no usable path
	Reason string
}

// Result is the outcome of parsing a change document.
type Result struct {
	Changes []model.FileChange // valid entries, in document order
	Skipped []Skip             // dropped entries, for diagnostics
}

// Parse extracts the ordered list of file changes from a change document.
// Entries that fail validation are dropped and recorded in Result.Skipped;
// Parse fails with a *FormatError only when the container itself is malformed
// or no entry at all survives.
func Parse(document string) (*Result, error) {
	if strings.TrimSpace(document) == "" {
		return nil, &FormatError{Reason: "document is empty"}
	}

	payload, ok := extractPayload(document)
	if !ok {
		return nil, &FormatError{Reason: fmt.Sprintf("missing <%s> container", rootTag)}
	}

	doc := etree.NewDocument()
	// Without this, CDATA sections are folded into plain character data and
	// the preference in codeOf can never trigger.
	doc.ReadSettings.PreserveCData = true
	if err := doc.ReadFromString(payload); err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("malformed markup: %v", err)}
	}

	root := doc.Root()
	if root == nil || root.Tag != rootTag {
		return nil, &FormatError{Reason: fmt.Sprintf("root element is not <%s>", rootTag)}
	}

	blocks := doc.FindElements("//" + blockTag)
	if len(blocks) == 0 {
		return nil, &FormatError{Reason: fmt.Sprintf("no <%s> blocks found", blockTag)}
	}

	res := &Result{}
	for _, block := range blocks {
		if files := block.SelectElements(fileTag); len(files) > 0 {
			res.parseWrapped(files)
		} else {
			res.parseFlat(block)
		}
	}

	if len(res.Changes) == 0 {
		return nil, &FormatError{Reason: "no valid file entries found"}
	}
	return res, nil
}

// parseWrapped handles the current dialect: one <file> element per entry.
func (r *Result) parseWrapped(files []*etree.Element) {
	for _, f := range files {
		r.add(entryFromElements(
			f.SelectElement(summaryTag),
			f.SelectElement(operationTag),
			f.SelectElement(pathTag),
			f.SelectElement(codeTag),
		))
	}
}

// parseFlat handles the legacy dialect: entries laid out as repeating runs of
// file_summary, file_operation, file_path, file_code directly under the
// block. Scanning stops at the first run that deviates from that order;
// trailing children are dropped instead of failing the whole document.
func (r *Result) parseFlat(block *etree.Element) {
	children := block.ChildElements()
	for i := 0; i+3 < len(children); i += 4 {
		if children[i].Tag != summaryTag ||
			children[i+1].Tag != operationTag ||
			children[i+2].Tag != pathTag ||
			children[i+3].Tag != codeTag {
			return
		}
		r.add(entryFromElements(children[i], children[i+1], children[i+2], children[i+3]))
	}
}

// rawEntry is one extracted but not yet validated entry.
type rawEntry struct {
	summary   string
	operation string
	path      string
	code      *string // nil when the element is missing or has no content
}

func entryFromElements(summary, operation, path, code *etree.Element) rawEntry {
	return rawEntry{
		summary:   textOf(summary),
		operation: strings.ToUpper(textOf(operation)),
		path:      textOf(path),
		code:      codeOf(code),
	}
}

func textOf(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// codeOf prefers the content of a CDATA section over the element's plain
// text. An absent element or one without content yields nil, not "".
func codeOf(el *etree.Element) *string {
	if el == nil {
		return nil
	}
	for _, child := range el.Child {
		cd, ok := child.(*etree.CharData)
		if !ok || !cd.IsCData() {
			continue
		}
		if s := strings.TrimSpace(cd.Data); s != "" {
			return &s
		}
	}
	if s := strings.TrimSpace(el.Text()); s != "" {
		return &s
	}
	return nil
}

// add validates a raw entry and either appends it to Changes or records it in
// Skipped. Invalid entries never abort the surrounding document.
func (r *Result) add(e rawEntry) {
	switch {
	case e.summary == "":
		r.skip(e.path, "missing "+summaryTag)
	case e.operation == "":
		r.skip(e.path, "missing "+operationTag)
	case e.path == "":
		r.skip("", "missing "+pathTag)
	default:
		op := model.Operation(e.operation)
		if !op.Valid() {
			r.skip(e.path, fmt.Sprintf("unsupported operation %q", e.operation))
			return
		}
		if op.NeedsCode() && e.code == nil {
			r.skip(e.path, fmt.Sprintf("%s without %s", op, codeTag))
			return
		}
		change := model.FileChange{
			Summary:   e.summary,
			Operation: op,
			Path:      e.path,
		}
		if e.code != nil {
			change.Code = *e.code
		}
		r.Changes = append(r.Changes, change)
	}
}

func (r *Result) skip(path, reason string) {
	r.Skipped = append(r.Skipped, Skip{Path: path, Reason: reason})
}
