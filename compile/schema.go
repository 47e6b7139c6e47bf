package compile

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaDirectiveRE matches a `# schema: <ref>` leading comment on its own
// line, immediately followed (ignoring blank lines) by a `tool <name> from`
// declaration. This mines metadata the lexer already discards as a comment,
// the same way the teacher mines doc comments ahead of a declaration for
// generated titles.
var schemaDirectiveRE = regexp.MustCompile(`^\s*#\s*schema:\s*(\S+)\s*$`)
var toolDeclRE = regexp.MustCompile(`^\s*tool\s+(\S+)\s+from\s`)

// extractSchemaDirectives scans raw source text (before lexing) for
// `# schema: <path-or-url>` comments directly preceding a tool declaration,
// returning a map from tool name to schema reference.
func extractSchemaDirectives(source string) map[string]string {
	lines := strings.Split(source, "\n")
	out := map[string]string{}
	var pending string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := schemaDirectiveRE.FindStringSubmatch(line); m != nil {
			pending = m[1]
			continue
		}
		if m := toolDeclRE.FindStringSubmatch(line); m != nil {
			if pending != "" {
				out[m[1]] = pending
			}
			pending = ""
			continue
		}
		pending = ""
	}
	return out
}

// validateToolLiterals validates every constant/onError literal a tool block
// carries against the schema named by its `# schema:` directive, when
// present. Literals are the compiler's own renderJSONValue/renderBareValue
// output, so a validation failure here reflects a real mismatch between the
// DSL author's literal and the declared shape, not a parsing bug.
func validateToolLiterals(toolName string, jsonLiterals []string, directives map[string]string, line int) []Diagnostic {
	ref, ok := directives[toolName]
	if !ok {
		return nil
	}
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(ref)
	if err != nil {
		return []Diagnostic{diag(line, KindInvalidJSONLit, "tool %q: compile schema %q: %s", toolName, ref, err)}
	}

	var diags []Diagnostic
	for _, text := range jsonLiterals {
		var doc any
		if err := json.Unmarshal([]byte(text), &doc); err != nil {
			diags = append(diags, diag(line, KindInvalidJSONLit, "tool %q: literal %q is not valid JSON: %s", toolName, text, err))
			continue
		}
		if err := schema.Validate(doc); err != nil {
			diags = append(diags, diag(line, KindInvalidJSONLit, "tool %q: literal %q fails schema %q: %s", toolName, text, ref, err))
		}
	}
	return diags
}
