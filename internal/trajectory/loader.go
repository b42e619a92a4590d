package trajectory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Loader resolves trajectory files from configured search paths. JSON files
// are validated against the schema; YAML files are converted to JSON first so
// both formats go through the same validation.
type Loader struct {
	cache       sync.Map
	validator   *Validator
	searchPaths []string
}

func NewLoader(searchPaths []string) (*Loader, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	return &Loader{
		validator:   validator,
		searchPaths: searchPaths,
	}, nil
}

func (l *Loader) Load(name string) (*Trajectory, error) {
	if cached, ok := l.cache.Load(name); ok {
		return cached.(*Trajectory), nil
	}

	data, foundPath, err := l.find(name)
	if err != nil {
		return nil, err
	}

	if filepath.Ext(foundPath) != ".json" {
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s: %w", foundPath, err)
		}
	}

	if err := l.validator.Validate(data); err != nil {
		return nil, fmt.Errorf("validation failed for %s: %w", foundPath, err)
	}

	tr, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse trajectory: %w", err)
	}

	l.cache.Store(name, tr)

	return tr, nil
}

func (l *Loader) find(name string) ([]byte, string, error) {
	for _, searchPath := range l.searchPaths {
		for _, ext := range []string{".json", ".yaml", ".yml"} {
			fullPath := filepath.Join(searchPath, name+ext)
			data, err := os.ReadFile(fullPath)
			if err == nil {
				return data, fullPath, nil
			}
		}
	}

	return nil, "", fmt.Errorf("trajectory not found: %s (searched in: %v)", name, l.searchPaths)
}

func (l *Loader) ClearCache() {
	l.cache.Range(func(key, value interface{}) bool {
		l.cache.Delete(key)
		return true
	})
}

// yamlToJSON re-encodes a YAML document as JSON for schema validation.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	return json.Marshal(normalizeKeys(doc))
}

// normalizeKeys rewrites map[interface{}]interface{} nodes from the YAML
// decoder into map[string]interface{} so they survive json.Marshal.
func normalizeKeys(v interface{}) interface{} {
	switch v := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, val := range v {
			m[fmt.Sprintf("%v", k)] = normalizeKeys(val)
		}
		return m
	case map[string]interface{}:
		for k, val := range v {
			v[k] = normalizeKeys(val)
		}
		return v
	case []interface{}:
		for i, val := range v {
			v[i] = normalizeKeys(val)
		}
		return v
	default:
		return v
	}
}
