package compile

import (
	"fmt"
	"strconv"
	"strings"

	"goa.design/bridge/dsl/ast"
)

// renderJSONValue re-serializes a parsed JSON literal back into compact JSON
// text, preserving object key order. Used for ConstDef.JSONText and for
// constant/fallback wire literals, so ir.ParseJSONText can decode it again at
// request time.
func renderJSONValue(v *ast.JSONValue) string {
	var sb strings.Builder
	writeJSONValue(&sb, v)
	return sb.String()
}

func writeJSONValue(sb *strings.Builder, v *ast.JSONValue) {
	switch v.Kind {
	case ast.JSONNull:
		sb.WriteString("null")
	case ast.JSONBool:
		sb.WriteString(strconv.FormatBool(v.Bool))
	case ast.JSONNumber:
		sb.WriteString(strconv.FormatFloat(v.Number, 'g', -1, 64))
	case ast.JSONString:
		sb.WriteString(strconv.Quote(v.String))
	case ast.JSONArray:
		sb.WriteByte('[')
		for i, elem := range v.Array {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeJSONValue(sb, elem)
		}
		sb.WriteByte(']')
	case ast.JSONObject:
		sb.WriteByte('{')
		for i, key := range v.Keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(key))
			sb.WriteByte(':')
			writeJSONValue(sb, v.Object[key])
		}
		sb.WriteByte('}')
	}
}

// renderBareValue renders a scalar bareValue literal into the same textual
// form stored on ir.Wire.Value / ir.ToolWire.Value. Path literals are kept
// verbatim (they are not JSON); everything else renders as compact JSON so
// ir.ParseJSONText can decode it.
func renderBareValue(v *ast.BareValue) string {
	if v.IsPath {
		return v.Text
	}
	switch v.Kind {
	case ast.JSONNull:
		return "null"
	case ast.JSONBool:
		return v.Text
	case ast.JSONNumber:
		return v.Text
	case ast.JSONString:
		return strconv.Quote(v.Text)
	default:
		return fmt.Sprintf("%q", v.Text)
	}
}
