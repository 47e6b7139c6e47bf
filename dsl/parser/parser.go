// Package parser turns a token stream from dsl/lexer into a dsl/ast.Program.
// Two modes are supported: Strict, which aborts on the first syntax error
// (used for runtime compilation), and Recovery, which records every
// diagnostic and keeps parsing as much of the program as it can (used for IDE
// diagnostics).
package parser

import (
	"fmt"

	"goa.design/bridge/dsl/ast"
	"goa.design/bridge/dsl/lexer"
)

// SupportedVersion is the only `version` pragma value this parser accepts.
const SupportedVersion = "1.4"

// Mode selects strict or recovery parsing.
type Mode int

const (
	Strict Mode = iota
	Recovery
)

// Diagnostic is one parse error, always anchored to a source line.
type Diagnostic struct {
	Line    int
	Message string
}

func (d Diagnostic) Error() string { return fmt.Sprintf("line %d: %s", d.Line, d.Message) }

// Result is the outcome of a Parse call.
type Result struct {
	Program     *ast.Program
	Diagnostics []Diagnostic
}

// Parser is a hand-written recursive-descent parser over the bridge grammar.
type Parser struct {
	lex  *lexer.Lexer
	mode Mode

	tok     lexer.Token
	pending []lexer.Token // single-token lookahead buffer

	diags []Diagnostic
	// bail is set in Strict mode once the first diagnostic fires, causing
	// every subsequent parse function to return immediately.
	bail bool
}

// New constructs a Parser over src in the given mode.
func New(src string, mode Mode) *Parser {
	p := &Parser{lex: lexer.New(src), mode: mode}
	p.advance()
	return p
}

// Parse runs a full program parse.
func Parse(src string, mode Mode) Result {
	p := New(src, mode)
	prog := p.parseProgram()
	return Result{Program: prog, Diagnostics: p.diags}
}

func (p *Parser) advance() {
	if len(p.pending) > 0 {
		p.tok = p.pending[0]
		p.pending = p.pending[1:]
		return
	}
	tok, err := p.lex.Next()
	if err != nil {
		if lexErr, ok := err.(*lexer.Error); ok {
			p.errorf(lexErr.Line, "%s", lexErr.Message)
		} else {
			p.errorf(p.tok.Line, "%s", err.Error())
		}
		p.tok = lexer.Token{Kind: lexer.EOF, Line: p.tok.Line}
		return
	}
	p.tok = tok
}

func (p *Parser) errorf(line int, format string, args ...any) {
	d := Diagnostic{Line: line, Message: fmt.Sprintf(format, args...)}
	p.diags = append(p.diags, d)
	if p.mode == Strict {
		p.bail = true
	}
}

func (p *Parser) failed() bool { return p.mode == Strict && p.bail }

func (p *Parser) isKeyword(kw string) bool {
	return p.tok.Kind == lexer.Keyword && p.tok.Keyword == kw
}

func (p *Parser) expectKeyword(kw string) bool {
	if !p.isKeyword(kw) {
		p.errorf(p.tok.Line, "expected keyword %q, got %s %q", kw, p.tok.Kind, p.tok.Text)
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(kind lexer.Kind) (lexer.Token, bool) {
	if p.tok.Kind != kind {
		p.errorf(p.tok.Line, "expected %s, got %s %q", kind, p.tok.Kind, p.tok.Text)
		return lexer.Token{}, false
	}
	tok := p.tok
	p.advance()
	return tok, true
}

// identLike accepts an Ident token or a Keyword token used as a plain
// identifier (keyword-as-identifier overloading), returning its text.
func (p *Parser) identLike() (string, bool) {
	if p.tok.Kind == lexer.Ident || p.tok.Kind == lexer.Keyword {
		text := p.tok.Text
		p.advance()
		return text, true
	}
	p.errorf(p.tok.Line, "expected identifier, got %s %q", p.tok.Kind, p.tok.Text)
	return "", false
}

// dottedName parses Name ("." Name)* and returns the joined segments.
func (p *Parser) dottedName() ([]string, bool) {
	first, ok := p.identLike()
	if !ok {
		return nil, false
	}
	segs := []string{first}
	for p.tok.Kind == lexer.Dot {
		p.advance()
		seg, ok := p.identLike()
		if !ok {
			return nil, false
		}
		segs = append(segs, seg)
	}
	return segs, true
}

func (p *Parser) parseProgram() *ast.Program {
	prog := &ast.Program{}
	if !p.expectKeyword("version") {
		return prog
	}
	if p.failed() {
		return prog
	}
	verLine := p.tok.Line
	numTok, ok := p.expect(lexer.Number)
	if !ok {
		return prog
	}
	prog.Version = numTok.Text
	prog.VersionLine = verLine
	if numTok.Text != SupportedVersion {
		p.errorf(verLine, "unsupported bridge version %q, expected %q", numTok.Text, SupportedVersion)
		if p.mode == Strict {
			return prog
		}
	}
	for p.tok.Kind != lexer.EOF {
		if p.failed() {
			return prog
		}
		decl := p.parseDecl()
		if decl != nil {
			prog.Decls = append(prog.Decls, decl)
		} else if p.mode == Recovery {
			// Skip a token to make forward progress past an unparseable decl.
			if p.tok.Kind != lexer.EOF {
				p.advance()
			} else {
				break
			}
		} else {
			break
		}
	}
	return prog
}

func (p *Parser) parseDecl() ast.Decl {
	switch {
	case p.isKeyword("const"):
		return p.parseConstDecl()
	case p.isKeyword("tool"):
		return p.parseToolBlock()
	case p.isKeyword("define"):
		return p.parseDefineBlock()
	case p.isKeyword("bridge"):
		return p.parseBridgeBlock()
	default:
		p.errorf(p.tok.Line, "expected one of const/tool/define/bridge, got %s %q", p.tok.Kind, p.tok.Text)
		return nil
	}
}

func (p *Parser) parseConstDecl() ast.Decl {
	line := p.tok.Line
	p.advance() // const
	name, ok := p.identLike()
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.Equal); !ok {
		return nil
	}
	val := p.parseJSONValue()
	if val == nil {
		return nil
	}
	return &ast.ConstDecl{Name: name, Value: val, Line: line}
}
