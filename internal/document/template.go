// Package document renders one document per account from a text template.
package document

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"
	"text/template/parse"

	"github.com/Veraticus/dossier/internal/common"
)

// DefaultExtension is used for output files when the template name has none.
const DefaultExtension = ".txt"

// Placeholders every template must reference. RowFields must appear inside
// a {{range .Rows}} block.
var (
	RequiredFields = []string{"Account", "Date", "Total", "Services"}
	RowFields      = []string{"plan", "payer", "invoice", "amount", "date"}
)

// Template is a parsed template that has passed placeholder validation.
type Template struct {
	tmpl *template.Template
	name string
	path string
	ext  string
}

// LoadTemplate reads and validates the template at path.
func LoadTemplate(path string) (*Template, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &common.TemplateError{Reason: "no template configured"}
	}

	content, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, &common.TemplateError{Path: path, Reason: "cannot read template", Err: err}
	}

	t, err := ParseTemplate(filepath.Base(path), string(content))
	if err != nil {
		var tmplErr *common.TemplateError
		if errors.As(err, &tmplErr) {
			tmplErr.Path = path
		}
		return nil, err
	}
	t.path = path
	return t, nil
}

// ParseTemplate parses text and checks that it references every required
// placeholder. name supplies the output file extension.
func ParseTemplate(name, text string) (*Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, &common.TemplateError{Reason: "cannot parse template", Err: err}
	}

	if missing := missingPlaceholders(tmpl); len(missing) > 0 {
		return nil, &common.TemplateError{
			Reason: "missing required placeholders: " + strings.Join(missing, ", "),
		}
	}

	ext := filepath.Ext(name)
	if ext == "" {
		ext = DefaultExtension
	}
	return &Template{tmpl: tmpl, name: name, ext: ext}, nil
}

// Name returns the template name.
func (t *Template) Name() string {
	return t.name
}

// Path returns the file the template was loaded from, if any.
func (t *Template) Path() string {
	return t.path
}

// Extension returns the extension given to rendered files.
func (t *Template) Extension() string {
	return t.ext
}

func (t *Template) valid() bool {
	return t != nil && t.tmpl != nil
}

// placeholderSet records the field references found in a template.
type placeholderSet struct {
	top       map[string]bool
	row       map[string]bool
	rowsRange bool
}

func missingPlaceholders(tmpl *template.Template) []string {
	found := placeholderSet{top: map[string]bool{}, row: map[string]bool{}}
	for _, t := range tmpl.Templates() {
		if t.Tree != nil && t.Root != nil {
			found.walk(t.Root, false)
		}
	}

	var missing []string
	for _, f := range RequiredFields {
		if !found.top[f] {
			missing = append(missing, "."+f)
		}
	}
	if !found.rowsRange {
		missing = append(missing, "range .Rows")
	}
	for _, f := range RowFields {
		if !found.row[f] {
			missing = append(missing, "."+f+" (inside range .Rows)")
		}
	}
	return missing
}

func (p *placeholderSet) walk(node parse.Node, inRows bool) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			p.walk(child, inRows)
		}
	case *parse.ActionNode:
		p.pipe(n.Pipe, inRows)
	case *parse.IfNode:
		p.branch(&n.BranchNode, inRows)
	case *parse.WithNode:
		p.branch(&n.BranchNode, inRows)
	case *parse.RangeNode:
		p.pipe(n.Pipe, inRows)
		overRows := !inRows && rangesOverRows(n.Pipe)
		if overRows {
			p.rowsRange = true
		}
		p.walk(n.List, inRows || overRows)
		p.walk(n.ElseList, inRows)
	case *parse.TemplateNode:
		p.pipe(n.Pipe, inRows)
	}
}

func (p *placeholderSet) branch(n *parse.BranchNode, inRows bool) {
	p.pipe(n.Pipe, inRows)
	p.walk(n.List, inRows)
	p.walk(n.ElseList, inRows)
}

func (p *placeholderSet) pipe(pipe *parse.PipeNode, inRows bool) {
	if pipe == nil {
		return
	}
	for _, cmd := range pipe.Cmds {
		for _, arg := range cmd.Args {
			switch a := arg.(type) {
			case *parse.FieldNode:
				p.field(a.Ident, inRows)
			case *parse.VariableNode:
				// $.Account reaches the root; $row.plan a range variable.
				if len(a.Ident) > 1 {
					p.field(a.Ident[1:], inRows && a.Ident[0] != "$")
				}
			case *parse.PipeNode:
				p.pipe(a, inRows)
			}
		}
	}
}

func (p *placeholderSet) field(ident []string, inRows bool) {
	if len(ident) == 0 {
		return
	}
	if inRows {
		p.row[ident[0]] = true
		return
	}
	p.top[ident[0]] = true
}

func rangesOverRows(pipe *parse.PipeNode) bool {
	if pipe == nil || len(pipe.Cmds) != 1 {
		return false
	}
	args := pipe.Cmds[0].Args
	if len(args) != 1 {
		return false
	}
	f, ok := args[0].(*parse.FieldNode)
	return ok && slices.Equal(f.Ident, []string{"Rows"})
}
