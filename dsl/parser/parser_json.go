package parser

import (
	"goa.design/bridge/dsl/ast"
	"goa.design/bridge/dsl/lexer"
)

// parseJSONValue parses a full JSON literal: object, array, string, number,
// bool, or null. Used by const declarations and tool onError literals.
func (p *Parser) parseJSONValue() *ast.JSONValue {
	line := p.tok.Line
	switch p.tok.Kind {
	case lexer.String:
		v := &ast.JSONValue{Kind: ast.JSONString, String: p.tok.StrVal, Line: line}
		p.advance()
		return v
	case lexer.Number:
		v := &ast.JSONValue{Kind: ast.JSONNumber, Number: p.tok.NumVal, Line: line}
		p.advance()
		return v
	case lexer.Bool:
		v := &ast.JSONValue{Kind: ast.JSONBool, Bool: p.tok.BoolVal, Line: line}
		p.advance()
		return v
	case lexer.Null:
		v := &ast.JSONValue{Kind: ast.JSONNull, Line: line}
		p.advance()
		return v
	case lexer.LBrack:
		return p.parseJSONArray()
	case lexer.LBrace:
		return p.parseJSONObject()
	default:
		p.errorf(line, "expected json value, got %s %q", p.tok.Kind, p.tok.Text)
		return nil
	}
}

func (p *Parser) parseJSONArray() *ast.JSONValue {
	line := p.tok.Line
	p.advance() // [
	v := &ast.JSONValue{Kind: ast.JSONArray, Line: line}
	if p.tok.Kind == lexer.RBrack {
		p.advance()
		return v
	}
	for {
		elem := p.parseJSONValue()
		if elem == nil {
			return nil
		}
		v.Array = append(v.Array, elem)
		if p.tok.Kind == lexer.Comma {
			p.advance()
			continue
		}
		break
	}
	if _, ok := p.expect(lexer.RBrack); !ok {
		return nil
	}
	return v
}

func (p *Parser) parseJSONObject() *ast.JSONValue {
	line := p.tok.Line
	p.advance() // {
	v := &ast.JSONValue{Kind: ast.JSONObject, Line: line, Object: map[string]*ast.JSONValue{}}
	if p.tok.Kind == lexer.RBrace {
		p.advance()
		return v
	}
	for {
		var key string
		switch p.tok.Kind {
		case lexer.String:
			key = p.tok.StrVal
			p.advance()
		case lexer.Ident, lexer.Keyword:
			key = p.tok.Text
			p.advance()
		default:
			p.errorf(p.tok.Line, "expected object key, got %s %q", p.tok.Kind, p.tok.Text)
			return nil
		}
		if _, ok := p.expect(lexer.Colon); !ok {
			return nil
		}
		val := p.parseJSONValue()
		if val == nil {
			return nil
		}
		if _, exists := v.Object[key]; !exists {
			v.Keys = append(v.Keys, key)
		}
		v.Object[key] = val
		if p.tok.Kind == lexer.Comma {
			p.advance()
			continue
		}
		break
	}
	if _, ok := p.expect(lexer.RBrace); !ok {
		return nil
	}
	return v
}

// parseBareValue parses a scalar literal (string/number/bool/null/path),
// used where the grammar calls for bareValue. Unlike parseJSONValue it never
// recurses into arrays/objects.
func (p *Parser) parseBareValue() *ast.BareValue {
	line := p.tok.Line
	switch p.tok.Kind {
	case lexer.String:
		v := &ast.BareValue{Kind: ast.JSONString, Text: p.tok.StrVal, Line: line}
		p.advance()
		return v
	case lexer.Number:
		v := &ast.BareValue{Kind: ast.JSONNumber, Text: p.tok.Text, Line: line}
		p.advance()
		return v
	case lexer.Bool:
		v := &ast.BareValue{Kind: ast.JSONBool, Text: p.tok.Text, Line: line}
		p.advance()
		return v
	case lexer.Null:
		v := &ast.BareValue{Kind: ast.JSONNull, Text: "null", Line: line}
		p.advance()
		return v
	case lexer.Path:
		v := &ast.BareValue{Kind: ast.JSONString, Text: p.tok.Text, IsPath: true, Line: line}
		p.advance()
		return v
	default:
		p.errorf(line, "expected a literal value, got %s %q", p.tok.Kind, p.tok.Text)
		return nil
	}
}
