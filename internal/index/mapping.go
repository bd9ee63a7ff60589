package index

import (
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

var ErrInvalidMapping = errors.New("invalid mapping")

// Mapping is the wire form of a schema's fields.
type Mapping struct {
	Properties map[string]Property `json:"properties"`
}

// Property is the wire form of a single field.
type Property struct {
	Type           string `json:"type"`
	Analyzer       string `json:"analyzer,omitempty"`
	SearchAnalyzer string `json:"search_analyzer,omitempty"`
	Index          *bool  `json:"index,omitempty"`
}

// ParseMapping decodes {"properties": {...}}. The properties may also be
// wrapped in a single type name, as in {"_doc": {"properties": {...}}}.
// Fields are returned sorted by name.
func ParseMapping(data []byte) ([]FieldDef, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}
	raw, ok := top["properties"]
	if !ok && len(top) == 1 {
		for typeName, inner := range top {
			var wrapped map[string]json.RawMessage
			if err := json.Unmarshal(inner, &wrapped); err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidMapping, typeName, err)
			}
			raw, ok = wrapped["properties"]
		}
	}
	if !ok {
		if len(top) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: missing properties", ErrInvalidMapping)
	}

	var props map[string]Property
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("%w: properties: %v", ErrInvalidMapping, err)
	}
	return FieldsFromProperties(props), nil
}

// FieldsFromProperties converts wire properties into field definitions.
func FieldsFromProperties(props map[string]Property) []FieldDef {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]FieldDef, 0, len(names))
	for _, name := range names {
		p := props[name]
		indexed := p.Type != FieldTypeStoredOnly
		if p.Index != nil {
			indexed = *p.Index
		}
		fields = append(fields, FieldDef{
			Name:           name,
			Type:           p.Type,
			Analyzer:       p.Analyzer,
			SearchAnalyzer: p.SearchAnalyzer,
			Indexed:        indexed,
		})
	}
	return fields
}

// Mapping returns the wire form of the schema.
func (s *Schema) Mapping() Mapping {
	m := Mapping{Properties: make(map[string]Property, len(s.Fields))}
	for _, f := range s.Fields {
		p := Property{
			Type:           f.Type,
			Analyzer:       f.Analyzer,
			SearchAnalyzer: f.SearchAnalyzer,
		}
		if f.Indexed == (f.Type == FieldTypeStoredOnly) {
			indexed := f.Indexed
			p.Index = &indexed
		}
		m.Properties[f.Name] = p
	}
	return m
}
