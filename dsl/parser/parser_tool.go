package parser

import (
	"strings"

	"goa.design/bridge/dsl/ast"
	"goa.design/bridge/dsl/lexer"
)

func (p *Parser) parseToolBlock() ast.Decl {
	line := p.tok.Line
	p.advance() // tool
	nameSegs, ok := p.dottedName()
	if !ok {
		return nil
	}
	if !p.expectKeyword("from") {
		return nil
	}
	srcSegs, ok := p.dottedName()
	if !ok {
		return nil
	}
	block := &ast.ToolBlock{Name: strings.Join(nameSegs, "."), Source: strings.Join(srcSegs, "."), Line: line}
	if p.tok.Kind != lexer.LBrace {
		return block
	}
	p.advance() // {
	for p.tok.Kind != lexer.RBrace {
		if p.failed() || p.tok.Kind == lexer.EOF {
			p.errorf(p.tok.Line, "unterminated tool block")
			return block
		}
		tl, ok := p.parseToolLine()
		if !ok {
			return block
		}
		block.Lines = append(block.Lines, tl)
	}
	p.advance() // }
	return block
}

func (p *Parser) parseToolLine() (ast.ToolLine, bool) {
	line := p.tok.Line
	switch {
	case p.isKeyword("with"):
		return p.parseToolWith(line)
	case p.isKeyword("on"):
		return p.parseToolOnError(line)
	case p.tok.Kind == lexer.Dot:
		return p.parseToolField(line)
	default:
		p.errorf(line, "expected with/on error/.field in tool block, got %s %q", p.tok.Kind, p.tok.Text)
		return ast.ToolLine{}, false
	}
}

func (p *Parser) parseToolWith(line int) (ast.ToolLine, bool) {
	p.advance() // with
	var handle string
	switch {
	case p.isKeyword("context"):
		handle = "context"
		p.advance()
	case p.isKeyword("const"):
		handle = "const"
		p.advance()
	default:
		segs, ok := p.dottedName()
		if !ok {
			return ast.ToolLine{}, false
		}
		handle = strings.Join(segs, ".")
	}
	alias := handle
	if p.isKeyword("as") {
		p.advance()
		a, ok := p.identLike()
		if !ok {
			return ast.ToolLine{}, false
		}
		alias = a
	}
	return ast.ToolLine{Kind: ast.ToolLineWith, WithHandle: handle, WithAlias: alias, Line: line}, true
}

func (p *Parser) parseToolOnError(line int) (ast.ToolLine, bool) {
	p.advance() // on
	if !p.expectKeyword("error") {
		return ast.ToolLine{}, false
	}
	if p.tok.Kind == lexer.Equal {
		p.advance()
		val := p.parseJSONValue()
		if val == nil {
			return ast.ToolLine{}, false
		}
		return ast.ToolLine{Kind: ast.ToolLineOnError, OnErrorValue: val, Line: line}, true
	}
	if _, ok := p.expect(lexer.Arrow); !ok {
		return ast.ToolLine{}, false
	}
	segs, ok := p.dottedName()
	if !ok {
		return ast.ToolLine{}, false
	}
	return ast.ToolLine{Kind: ast.ToolLineOnError, OnErrorSource: strings.Join(segs, "."), Line: line}, true
}

func (p *Parser) parseToolField(line int) (ast.ToolLine, bool) {
	p.advance() // leading dot
	path, ok := p.dottedName()
	if !ok {
		return ast.ToolLine{}, false
	}
	if p.tok.Kind == lexer.Equal {
		p.advance()
		bv := p.parseBareValue()
		if bv == nil {
			return ast.ToolLine{}, false
		}
		return ast.ToolLine{Kind: ast.ToolLineField, FieldPath: path, FieldValue: bv, Line: line}, true
	}
	if _, ok := p.expect(lexer.Arrow); !ok {
		return ast.ToolLine{}, false
	}
	segs, ok := p.dottedName()
	if !ok {
		return ast.ToolLine{}, false
	}
	return ast.ToolLine{Kind: ast.ToolLineField, FieldPath: path, FieldFrom: strings.Join(segs, "."), Line: line}, true
}
