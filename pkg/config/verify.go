package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var embeddedSchema string

// VerifyAgainstEmbeddedSchema checks raw YAML config data against the embedded JSON schema.
// Unknown keys, wrong value kinds and integers out of the schema range are reported.
func VerifyAgainstEmbeddedSchema(data []byte) error {
	var schema map[string]any
	if err := json.Unmarshal([]byte(embeddedSchema), &schema); err != nil {
		return fmt.Errorf("parse embedded schema: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	var problems []string
	verifyObject(schema, schema, "", doc, &problems)
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// verifyObject checks values of doc against properties of node, problems are collected
func verifyObject(root, node map[string]any, prefix string, doc map[string]any, problems *[]string) {
	node = resolveRef(root, node)
	props, _ := node["properties"].(map[string]any)
	for key, val := range doc {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		prop, ok := props[key].(map[string]any)
		if !ok {
			*problems = append(*problems, fmt.Sprintf("unknown key %s", name))
			continue
		}
		prop = resolveRef(root, prop)
		verifyValue(root, prop, name, val, problems)
	}
}

func verifyValue(root, prop map[string]any, name string, val any, problems *[]string) {
	typ, _ := prop["type"].(string)
	switch typ {
	case "object":
		sub, ok := val.(map[string]any)
		if !ok {
			if val != nil {
				*problems = append(*problems, fmt.Sprintf("%s must be an object", name))
			}
			return
		}
		verifyObject(root, prop, name, sub, problems)
	case "integer":
		var n int64
		switch v := val.(type) {
		case int:
			n = int64(v)
		case int64:
			n = v
		case string:
			// durations are integers in the schema, written as 30s in yaml
			if _, err := time.ParseDuration(v); err != nil {
				*problems = append(*problems, fmt.Sprintf("%s must be an integer or a duration", name))
			}
			return
		default:
			*problems = append(*problems, fmt.Sprintf("%s must be an integer", name))
			return
		}
		if minimum, ok := prop["minimum"].(float64); ok && float64(n) < minimum {
			*problems = append(*problems, fmt.Sprintf("%s must be at least %v", name, minimum))
		}
		if maximum, ok := prop["maximum"].(float64); ok && float64(n) > maximum {
			*problems = append(*problems, fmt.Sprintf("%s must be at most %v", name, maximum))
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			*problems = append(*problems, fmt.Sprintf("%s must be a boolean", name))
		}
	case "string":
		if _, ok := val.(string); !ok {
			*problems = append(*problems, fmt.Sprintf("%s must be a string", name))
		}
	}
}

// resolveRef follows a local "#/$defs/Name" reference
func resolveRef(root, node map[string]any) map[string]any {
	ref, ok := node["$ref"].(string)
	if !ok {
		return node
	}
	defs, _ := root["$defs"].(map[string]any)
	if def, ok := defs[strings.TrimPrefix(ref, "#/$defs/")].(map[string]any); ok {
		return def
	}
	return node
}

// GenerateSchema generates a JSON schema for the Config struct
func GenerateSchema() (*jsonschema.Schema, error) {
	return jsonschema.Reflect(&Config{}), nil
}
