package evaluator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const ruleSetSchemaURL = "codequest://schemas/rule-set.json"

const ruleSetSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "anyOf": [
      {"required": ["kind"]},
      {"required": ["type"]}
    ],
    "properties": {
      "kind": {"$ref": "#/definitions/kind"},
      "type": {"$ref": "#/definitions/kind"},
      "description": {"type": "string", "maxLength": 500},
      "points": {"$ref": "#/definitions/count"},
      "selector": {"type": "string", "maxLength": 200},
      "expected": {"type": ["string", "number", "boolean"]},
      "property": {"type": "string", "maxLength": 100},
      "function": {"type": "string", "maxLength": 100},
      "codeType": {"enum": ["html", "css", "js", "javascript", "HTML", "CSS", "JS"]},
      "pattern": {"type": "string", "maxLength": 1000},
      "threshold": {
        "anyOf": [
          {"type": "number", "minimum": 0, "maximum": 100},
          {"type": "string", "pattern": "^\\s*\\d{1,3}(\\.\\d+)?\\s*$"}
        ]
      }
    }
  },
  "definitions": {
    "kind": {
      "enum": [
        "element_exists",
        "element_text",
        "element_text_contains",
        "css_property",
        "javascript_function",
        "code_contains",
        "similarity_check"
      ]
    },
    "count": {
      "anyOf": [
        {"type": "number", "minimum": 0, "maximum": 1000000},
        {"type": "string", "pattern": "^\\s*(1000000|\\d{1,6})(\\.\\d+)?\\s*$"}
      ]
    }
  }
}`

var (
	compiledSchemaOnce sync.Once
	compiledSchema     *jsonschema.Schema
	compiledSchemaErr  error
)

func ruleSchema() (*jsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(ruleSetSchemaURL, strings.NewReader(ruleSetSchema)); err != nil {
			compiledSchemaErr = fmt.Errorf("add rule-set schema: %w", err)
			return
		}
		compiledSchema, compiledSchemaErr = compiler.Compile(ruleSetSchemaURL)
	})
	return compiledSchema, compiledSchemaErr
}

// ValidateRuleSet checks authored rule-set JSON against the rule-set schema
// and returns the decoded rules. It is meant for authoring paths; Evaluate
// itself tolerates malformed rules.
func ValidateRuleSet(data []byte) ([]Rule, error) {
	schema, err := ruleSchema()
	if err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var document interface{}
	if err := decoder.Decode(&document); err != nil {
		return nil, fmt.Errorf("rule set is not valid JSON: %w", err)
	}

	if err := schema.Validate(document); err != nil {
		return nil, fmt.Errorf("rule set does not match schema: %w", err)
	}

	rules, err := DecodeRules(data)
	if err != nil {
		return nil, err
	}
	for i, rule := range rules {
		if reason := rule.DecodeError(); reason != "" {
			return nil, fmt.Errorf("rule %d: %s", i, reason)
		}
	}
	return rules, nil
}
