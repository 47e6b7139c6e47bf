// Package host is a reference adapter demonstrating engine.Resolve end to
// end: it parses a GraphQL-shaped selection set into a list of leaf field
// paths and drives the engine one path at a time, the way a generated goa
// transport layer maps a request onto service method calls, just with a
// dynamic field set instead of a fixed generated signature.
package host

import (
	"fmt"
	"strings"
)

// FieldPath is a leaf selection, e.g. {user{name}} yields FieldPath{"user",
// "name"}.
type FieldPath []string

// ParseSelection parses a minimal GraphQL-shaped selection set — nested
// "{ field field { nested } }" groups, no arguments, aliases, variables, or
// fragments — into the list of leaf field paths it names. This is
// deliberately a small subset: SPEC_FULL.md's Non-goals keep a full GraphQL
// implementation out of scope, this exists only to exercise
// engine.Resolve's field-path contract with a realistic, nested caller
// shape instead of a flat parameter list.
func ParseSelection(src string) ([]FieldPath, error) {
	toks := tokenize(src)
	p := &parser{toks: toks}
	paths, err := p.parseSet()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("host: unexpected trailing input at token %d", p.pos)
	}
	return paths, nil
}

func tokenize(src string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range src {
		switch {
		case r == '{' || r == '}':
			flush()
			toks = append(toks, string(r))
		case r == ' ' || r == '\n' || r == '\t' || r == '\r' || r == ',':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

type parser struct {
	toks []string
	pos  int
}

func (p *parser) peek() (string, bool) {
	if p.pos >= len(p.toks) {
		return "", false
	}
	return p.toks[p.pos], true
}

func (p *parser) next() (string, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

// parseSet parses a sequence of field selections up to (but not consuming)
// a closing '}' or end of input, optionally wrapped in a leading '{'...'}'
// pair.
func (p *parser) parseSet() ([]FieldPath, error) {
	wrapped := false
	if t, ok := p.peek(); ok && t == "{" {
		p.next()
		wrapped = true
	}

	var paths []FieldPath
	for {
		t, ok := p.peek()
		if !ok || t == "}" {
			break
		}
		name, _ := p.next()
		if name == "{" || name == "}" {
			return nil, fmt.Errorf("host: expected field name, got %q", name)
		}
		if nt, ok := p.peek(); ok && nt == "{" {
			nested, err := p.parseSet()
			if err != nil {
				return nil, err
			}
			for _, np := range nested {
				full := append(FieldPath{name}, np...)
				paths = append(paths, full)
			}
			continue
		}
		paths = append(paths, FieldPath{name})
	}

	if wrapped {
		t, ok := p.next()
		if !ok || t != "}" {
			return nil, fmt.Errorf("host: unterminated selection set")
		}
	}
	return paths, nil
}
