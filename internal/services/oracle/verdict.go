package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"X402/internal/domain/models"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

const verdictSchemaJSON = `{
  "type": "object",
  "required": ["signal", "confidence", "reasoning"],
  "properties": {
    "signal": {"type": "string", "enum": ["BUY", "SELL", "WAIT"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 100},
    "reasoning": {"type": "string"}
  }
}`

var verdictSchema = mustCompileSchema("verdict.json", verdictSchemaJSON)

func mustCompileSchema(name, raw string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("oracle: add schema: %v", err))
	}
	s, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("oracle: compile schema: %v", err))
	}
	return s
}

// ParseVerdict decodes model output into a Verdict. Markdown code fences and
// surrounding prose are tolerated; anything that fails the schema is an error.
func ParseVerdict(text string) (models.Verdict, error) {
	var v models.Verdict
	raw := extractJSON(text)
	if raw == "" {
		return v, fmt.Errorf("oracle reply is empty")
	}
	if !gjson.Valid(raw) {
		return v, fmt.Errorf("oracle reply is not valid json")
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return v, fmt.Errorf("decode oracle reply: %w", err)
	}
	if err := verdictSchema.Validate(doc); err != nil {
		return v, fmt.Errorf("oracle reply schema: %w", err)
	}

	parsed := gjson.Parse(raw)
	v.Signal = models.Signal(parsed.Get("signal").String())
	v.Confidence = parsed.Get("confidence").Float()
	v.Reasoning = strings.TrimSpace(parsed.Get("reasoning").String())
	return v, nil
}

func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)
	if gjson.Valid(s) {
		return s
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
