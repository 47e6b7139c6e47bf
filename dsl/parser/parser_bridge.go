package parser

import (
	"strings"

	"goa.design/bridge/dsl/ast"
	"goa.design/bridge/dsl/lexer"
)

func (p *Parser) parseDefineBlock() ast.Decl {
	line := p.tok.Line
	p.advance() // define
	name, ok := p.identLike()
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.LBrace); !ok {
		return nil
	}
	block := &ast.DefineBlock{Name: name, Line: line}
	for p.tok.Kind != lexer.RBrace {
		if p.failed() || p.tok.Kind == lexer.EOF {
			p.errorf(p.tok.Line, "unterminated define block")
			return block
		}
		bl, ok := p.parseBridgeLine()
		if !ok {
			return block
		}
		block.Lines = append(block.Lines, bl)
	}
	p.advance() // }
	return block
}

func (p *Parser) parseBridgeBlock() ast.Decl {
	line := p.tok.Line
	p.advance() // bridge
	typeName, ok := p.identLike()
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.Dot); !ok {
		return nil
	}
	fieldName, ok := p.identLike()
	if !ok {
		return nil
	}
	block := &ast.BridgeBlock{Type: typeName, Field: fieldName, Line: line}
	if p.isKeyword("with") {
		p.advance()
		segs, ok := p.dottedName()
		if !ok {
			return nil
		}
		block.PassthroughHandle = strings.Join(segs, ".")
		return block
	}
	if _, ok := p.expect(lexer.LBrace); !ok {
		return nil
	}
	for p.tok.Kind != lexer.RBrace {
		if p.failed() || p.tok.Kind == lexer.EOF {
			p.errorf(p.tok.Line, "unterminated bridge block")
			return block
		}
		bl, ok := p.parseBridgeLine()
		if !ok {
			return block
		}
		block.Lines = append(block.Lines, bl)
	}
	p.advance() // }
	return block
}

func (p *Parser) parseBridgeLine() (ast.BridgeLine, bool) {
	line := p.tok.Line
	if p.isKeyword("with") {
		p.advance()
		var handle string
		switch {
		case p.isKeyword("input"):
			handle = "input"
			p.advance()
		case p.isKeyword("output"):
			handle = "output"
			p.advance()
		case p.isKeyword("context"):
			handle = "context"
			p.advance()
		case p.isKeyword("const"):
			handle = "const"
			p.advance()
		default:
			segs, ok := p.dottedName()
			if !ok {
				return ast.BridgeLine{}, false
			}
			handle = strings.Join(segs, ".")
		}
		alias := handle
		if p.isKeyword("as") {
			p.advance()
			a, ok := p.identLike()
			if !ok {
				return ast.BridgeLine{}, false
			}
			alias = a
		}
		return ast.BridgeLine{Kind: ast.BridgeLineWith, WithHandle: handle, WithAlias: alias, Line: line}, true
	}
	wire, ok := p.parseWire(false)
	if !ok {
		return ast.BridgeLine{}, false
	}
	return ast.BridgeLine{Kind: ast.BridgeLineWire, Wire: wire, Line: line}, true
}

// parseAddr parses `Name ("." Name)*` into a handle plus drilldown path.
func (p *Parser) parseAddr() (ast.Addr, bool) {
	line := p.tok.Line
	segs, ok := p.dottedName()
	if !ok {
		return ast.Addr{}, false
	}
	return ast.Addr{Handle: segs[0], Path: segs[1:], Line: line}, true
}

// parseWire parses a wire target and its RHS. When elem is true, the target
// is an implicit-handle ". dottedPath" form (inside an array-mapping block);
// otherwise the target is a full addr.
func (p *Parser) parseWire(elem bool) (*ast.Wire, bool) {
	line := p.tok.Line
	var target ast.Addr
	if elem {
		if _, ok := p.expect(lexer.Dot); !ok {
			return nil, false
		}
		path, ok := p.dottedName()
		if !ok {
			return nil, false
		}
		target = ast.Addr{Path: path, Line: line}
	} else {
		t, ok := p.parseAddr()
		if !ok {
			return nil, false
		}
		target = t
	}

	w := &ast.Wire{Target: target, Line: line}

	switch p.tok.Kind {
	case lexer.Equal:
		p.advance()
		bv := p.parseBareValue()
		if bv == nil {
			return nil, false
		}
		w.ConstValue = bv
		return w, true
	case lexer.Arrow, lexer.ForceArrow:
		w.Force = p.tok.Kind == lexer.ForceArrow
		p.advance()
	default:
		p.errorf(p.tok.Line, "expected '=' or '<-' after wire target, got %s %q", p.tok.Kind, p.tok.Text)
		return nil, false
	}

	src, ok := p.parseSourceExpr()
	if !ok {
		return nil, false
	}
	w.Source = src

	if p.tok.Kind == lexer.LBrack {
		am, ok := p.parseArrayMap()
		if !ok {
			return nil, false
		}
		w.ArrayMap = am
	}

	for p.tok.Kind == lexer.Or {
		p.advance()
		alt, ok := p.parseAlt()
		if !ok {
			return nil, false
		}
		w.OrAlts = append(w.OrAlts, alt)
	}
	if p.tok.Kind == lexer.Coalesce {
		p.advance()
		alt, ok := p.parseAlt()
		if !ok {
			return nil, false
		}
		w.CoalesceAlt = &alt
	}
	return w, true
}

func (p *Parser) parseSourceExpr() (*ast.SourceExpr, bool) {
	first, ok := p.parseAddr()
	if !ok {
		return nil, false
	}
	se := &ast.SourceExpr{Segments: []ast.Addr{first}}
	for p.tok.Kind == lexer.Colon {
		p.advance()
		next, ok := p.parseAddr()
		if !ok {
			return nil, false
		}
		se.Segments = append(se.Segments, next)
	}
	return se, true
}

func (p *Parser) parseAlt() (ast.Alt, bool) {
	line := p.tok.Line
	switch p.tok.Kind {
	case lexer.String, lexer.Number, lexer.Bool, lexer.Null, lexer.LBrace:
		val := p.parseJSONValue()
		if val == nil {
			return ast.Alt{}, false
		}
		return ast.Alt{Kind: ast.AltLiteral, Lit: val, Line: line}, true
	case lexer.Ident, lexer.Keyword:
		src, ok := p.parseSourceExpr()
		if !ok {
			return ast.Alt{}, false
		}
		return ast.Alt{Kind: ast.AltSource, Source: src, Line: line}, true
	default:
		p.errorf(line, "expected an alternative value, got %s %q", p.tok.Kind, p.tok.Text)
		return ast.Alt{}, false
	}
}

func (p *Parser) parseArrayMap() (*ast.ArrayMap, bool) {
	line := p.tok.Line
	p.advance() // [
	if _, ok := p.expect(lexer.RBrack); !ok {
		return nil, false
	}
	if !p.expectKeyword("as") {
		return nil, false
	}
	iterName, ok := p.identLike()
	if !ok {
		return nil, false
	}
	if _, ok := p.expect(lexer.LBrace); !ok {
		return nil, false
	}
	am := &ast.ArrayMap{IterName: iterName, Line: line}
	for p.tok.Kind != lexer.RBrace {
		if p.failed() || p.tok.Kind == lexer.EOF {
			p.errorf(p.tok.Line, "unterminated array map block")
			return am, false
		}
		w, ok := p.parseWire(true)
		if !ok {
			return am, false
		}
		am.Elems = append(am.Elems, ast.ElemLine{Wire: *w})
	}
	p.advance() // }
	return am, true
}
