package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// loadData reads template variables from a JSON or YAML file and applies
// the key=value assignments on top.
func loadData(path string, sets []string) (map[string]interface{}, error) {
	data := make(map[string]interface{})
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read data: %w", err)
		}
		if data, err = parseData(raw, filepath.Ext(path)); err != nil {
			return nil, fmt.Errorf("parse data %s: %w", path, err)
		}
	}

	for _, set := range sets {
		if err := applySet(data, set); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// parseData decodes raw as JSON for a .json extension and as YAML
// otherwise. YAML is a superset of JSON, so unknown extensions still work.
func parseData(raw []byte, ext string) (map[string]interface{}, error) {
	data := make(map[string]interface{})
	if len(bytes.TrimSpace(raw)) == 0 {
		return data, nil
	}

	if strings.EqualFold(ext, ".json") {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return nil, err
		}
		return data, nil
	}

	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// applySet assigns one key=value pair. Dotted keys create nested maps, and
// the value is decoded as a YAML scalar so numbers and booleans keep their
// type.
func applySet(data map[string]interface{}, set string) error {
	key, raw, ok := strings.Cut(set, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("invalid --set %q, expected key=value", set)
	}

	var value interface{} = raw
	if raw != "" {
		var decoded interface{}
		if err := yaml.Unmarshal([]byte(raw), &decoded); err == nil {
			switch decoded.(type) {
			case map[string]interface{}, []interface{}, nil:
				// keep the literal text
			default:
				value = decoded
			}
		}
	}

	parts := strings.Split(key, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
	return nil
}
