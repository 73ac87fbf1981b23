// Package filter implements the provider-property filter expressions used to
// narrow dependency matching. The grammar is a small prefix form over
// parenthesized terms:
//
//	(&(lang=en)(ranking>=5))   conjunction
//	(|(proto=udp)(proto=tcp))  disjunction
//	(!(deprecated=true))       negation
//	(endpoint=*)               presence
//	(name=data-*)              substring wildcard
//
// Comparisons are numeric when both sides parse as numbers, string equality
// otherwise. An empty expression matches everything. Malformed expressions are
// rejected at parse time so misconfiguration surfaces before any tracking
// starts.
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/c360/beanbridge/errors"
)

// Filter is a parsed, reusable filter expression
type Filter struct {
	expr string
	root node
}

type node interface {
	matches(props map[string]any) bool
}

// Parse parses an expression into a reusable Filter.
// An empty expression yields a filter that matches every property set.
func Parse(expr string) (*Filter, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return &Filter{expr: expr, root: matchAll{}}, nil
	}

	p := &parser{input: trimmed}
	root, err := p.parseFilter()
	if err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q: %v", errors.ErrInvalidFilter, expr, err),
			"Filter", "Parse", "expression validation")
	}
	if p.pos != len(p.input) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q: trailing input at offset %d", errors.ErrInvalidFilter, expr, p.pos),
			"Filter", "Parse", "expression validation")
	}
	return &Filter{expr: expr, root: root}, nil
}

// MustParse parses an expression and panics on error. Intended for tests and
// static expressions known to be valid.
func MustParse(expr string) *Filter {
	f, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return f
}

// String returns the original expression text
func (f *Filter) String() string {
	return f.expr
}

// Matches evaluates the filter against a property set
func (f *Filter) Matches(props map[string]any) bool {
	return f.root.matches(props)
}

// matchAll is the empty-expression filter
type matchAll struct{}

func (matchAll) matches(map[string]any) bool { return true }

type andNode struct{ children []node }

func (n andNode) matches(props map[string]any) bool {
	for _, c := range n.children {
		if !c.matches(props) {
			return false
		}
	}
	return true
}

type orNode struct{ children []node }

func (n orNode) matches(props map[string]any) bool {
	for _, c := range n.children {
		if c.matches(props) {
			return true
		}
	}
	return false
}

type notNode struct{ child node }

func (n notNode) matches(props map[string]any) bool {
	return !n.child.matches(props)
}

type compareOp int

const (
	opEqual compareOp = iota
	opGreaterEqual
	opLessEqual
	opPresent
	opSubstring
)

type compareNode struct {
	attr     string
	op       compareOp
	value    string
	segments []string // substring pattern split on '*'
}

func (n compareNode) matches(props map[string]any) bool {
	raw, ok := props[n.attr]
	if !ok {
		return false
	}
	if n.op == opPresent {
		return true
	}

	actual := stringify(raw)
	switch n.op {
	case opEqual:
		if af, aerr := strconv.ParseFloat(actual, 64); aerr == nil {
			if vf, verr := strconv.ParseFloat(n.value, 64); verr == nil {
				return af == vf
			}
		}
		return actual == n.value
	case opGreaterEqual, opLessEqual:
		af, aerr := strconv.ParseFloat(actual, 64)
		vf, verr := strconv.ParseFloat(n.value, 64)
		if aerr == nil && verr == nil {
			if n.op == opGreaterEqual {
				return af >= vf
			}
			return af <= vf
		}
		if n.op == opGreaterEqual {
			return actual >= n.value
		}
		return actual <= n.value
	case opSubstring:
		return matchSegments(actual, n.segments)
	default:
		return false
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// matchSegments checks a wildcard pattern pre-split on '*' against a value.
// Empty leading/trailing segments anchor the match accordingly.
func matchSegments(value string, segments []string) bool {
	if len(segments) == 0 {
		return value == ""
	}

	// Leading segment must anchor at the start unless empty.
	first := segments[0]
	if !strings.HasPrefix(value, first) {
		return false
	}
	rest := value[len(first):]

	for i := 1; i < len(segments)-1; i++ {
		idx := strings.Index(rest, segments[i])
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(segments[i]):]
	}

	if len(segments) == 1 {
		return rest == ""
	}
	last := segments[len(segments)-1]
	return strings.HasSuffix(rest, last)
}

type parser struct {
	input string
	pos   int
}

func (p *parser) parseFilter() (node, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}

	var result node
	var err error
	switch p.peek() {
	case '&':
		p.pos++
		result, err = p.parseList(func(children []node) node { return andNode{children} })
	case '|':
		p.pos++
		result, err = p.parseList(func(children []node) node { return orNode{children} })
	case '!':
		p.pos++
		var child node
		child, err = p.parseFilter()
		if err == nil {
			result = notNode{child}
		}
	default:
		result, err = p.parseComparison()
	}
	if err != nil {
		return nil, err
	}

	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *parser) parseList(combine func([]node) node) (node, error) {
	var children []node
	for p.peek() == '(' {
		child, err := p.parseFilter()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("empty composite at offset %d", p.pos)
	}
	return combine(children), nil
}

func (p *parser) parseComparison() (node, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '=' || c == '>' || c == '<' || c == '(' || c == ')' {
			break
		}
		p.pos++
	}
	attr := strings.TrimSpace(p.input[start:p.pos])
	if attr == "" {
		return nil, fmt.Errorf("missing attribute at offset %d", start)
	}

	var op compareOp
	switch p.peek() {
	case '=':
		p.pos++
		op = opEqual
	case '>':
		p.pos++
		if err := p.expect('='); err != nil {
			return nil, err
		}
		op = opGreaterEqual
	case '<':
		p.pos++
		if err := p.expect('='); err != nil {
			return nil, err
		}
		op = opLessEqual
	default:
		return nil, fmt.Errorf("expected comparison operator at offset %d", p.pos)
	}

	vstart := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != ')' && p.input[p.pos] != '(' {
		p.pos++
	}
	value := p.input[vstart:p.pos]

	if op == opEqual {
		if value == "*" {
			return compareNode{attr: attr, op: opPresent}, nil
		}
		if strings.Contains(value, "*") {
			return compareNode{attr: attr, op: opSubstring, segments: strings.Split(value, "*")}, nil
		}
	}
	return compareNode{attr: attr, op: op, value: value}, nil
}

func (p *parser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) expect(c byte) error {
	if p.pos >= len(p.input) || p.input[p.pos] != c {
		return fmt.Errorf("expected %q at offset %d", string(c), p.pos)
	}
	p.pos++
	return nil
}
