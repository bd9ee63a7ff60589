package index

import (
	"errors"
	"fmt"
	"time"

	"ViSearch/internal/analysis"
)

// Field type constants.
const (
	FieldTypeText       = "text"
	FieldTypeKeyword    = "keyword"
	FieldTypeStoredOnly = "stored_only"
)

// Schema limits.
const (
	MaxFieldsPerSchema = 256
	MaxFieldNameLength = 255
)

// Reserved field names that cannot be used in user schemas.
var reservedFieldNames = map[string]bool{
	"_id":     true,
	"_score":  true,
	"_source": true,
}

var (
	ErrSchemaFieldLimit       = errors.New("schema exceeds maximum field count")
	ErrSchemaReservedField    = errors.New("field name is reserved")
	ErrSchemaDuplicateField   = errors.New("duplicate field name")
	ErrSchemaInvalidType      = errors.New("invalid field type")
	ErrSchemaInvalidAnalyzer  = errors.New("invalid analyzer")
	ErrSchemaFieldNameTooLong = errors.New("field name exceeds maximum length")
	ErrSchemaEmptyFieldName   = errors.New("field name is empty")
	ErrSchemaFieldConflict    = errors.New("mapping conflicts with existing field")
)

// AnalyzerSet reports which analyzer names are available.
type AnalyzerSet interface {
	Has(name string) bool
}

// Schema is the field mapping of an index. A Schema value is never modified
// once an index uses it; Merge returns a new one.
type Schema struct {
	Version         uint32     `json:"version"`
	CreatedAt       time.Time  `json:"created_at"`
	Fields          []FieldDef `json:"fields"`
	DefaultAnalyzer string     `json:"default_analyzer,omitempty"`
}

// FieldDef defines a single field in the schema.
type FieldDef struct {
	Name string `json:"name"`
	Type string `json:"type"`
	// Analyzer is the index-time analyzer of a text field.
	Analyzer string `json:"analyzer,omitempty"`
	// SearchAnalyzer analyzes match query text. Defaults to Analyzer.
	SearchAnalyzer string `json:"search_analyzer,omitempty"`
	Indexed        bool   `json:"indexed"`
}

// FieldID returns the position of the named field, or -1 if not found.
func (s *Schema) FieldID(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Field returns the named field definition.
func (s *Schema) Field(name string) (FieldDef, bool) {
	if id := s.FieldID(name); id >= 0 {
		return s.Fields[id], true
	}
	return FieldDef{}, false
}

// IndexAnalyzer returns the analyzer used to index f.
func (s *Schema) IndexAnalyzer(f FieldDef) string {
	switch {
	case f.Analyzer != "":
		return f.Analyzer
	case s.DefaultAnalyzer != "":
		return s.DefaultAnalyzer
	default:
		return analysis.StandardAnalyzerName
	}
}

// SearchAnalyzer returns the analyzer used for match queries against f.
func (s *Schema) SearchAnalyzer(f FieldDef) string {
	if f.SearchAnalyzer != "" {
		return f.SearchAnalyzer
	}
	return s.IndexAnalyzer(f)
}

// Validate checks the schema for correctness. Analyzer names are checked
// against analyzers when it is non-nil.
func (s *Schema) Validate(analyzers AnalyzerSet) error {
	if len(s.Fields) > MaxFieldsPerSchema {
		return fmt.Errorf("%w: %d fields (max %d)", ErrSchemaFieldLimit, len(s.Fields), MaxFieldsPerSchema)
	}

	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return ErrSchemaEmptyFieldName
		}
		if reservedFieldNames[f.Name] {
			return fmt.Errorf("%w: %q", ErrSchemaReservedField, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: %q", ErrSchemaDuplicateField, f.Name)
		}
		seen[f.Name] = true

		if len(f.Name) > MaxFieldNameLength {
			return fmt.Errorf("%w: %q (%d bytes, max %d)", ErrSchemaFieldNameTooLong, f.Name, len(f.Name), MaxFieldNameLength)
		}
		if err := validateFieldType(f.Type); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		if f.Type != FieldTypeText && (f.Analyzer != "" || f.SearchAnalyzer != "") {
			return fmt.Errorf("field %q: %w: analyzers only apply to text fields", f.Name, ErrSchemaInvalidAnalyzer)
		}
		for _, name := range []string{f.Analyzer, f.SearchAnalyzer} {
			if err := validateAnalyzer(analyzers, name); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
		if f.Type == FieldTypeStoredOnly && f.Indexed {
			return fmt.Errorf("field %q: %w: stored_only fields cannot be indexed", f.Name, ErrSchemaInvalidType)
		}
	}

	if err := validateAnalyzer(analyzers, s.DefaultAnalyzer); err != nil {
		return fmt.Errorf("default_analyzer: %w", err)
	}
	return nil
}

// Merge returns a new schema with fields added. Re-declaring an existing
// field is allowed only if the definition is unchanged.
func (s *Schema) Merge(fields []FieldDef) (*Schema, error) {
	merged := &Schema{
		Version:         s.Version,
		CreatedAt:       s.CreatedAt,
		Fields:          append([]FieldDef(nil), s.Fields...),
		DefaultAnalyzer: s.DefaultAnalyzer,
	}

	added := false
	for _, f := range fields {
		existing, ok := s.Field(f.Name)
		if !ok {
			merged.Fields = append(merged.Fields, f)
			added = true
			continue
		}
		if existing != f {
			return nil, fmt.Errorf("%w: %q", ErrSchemaFieldConflict, f.Name)
		}
	}
	if added {
		merged.Version++
	}
	return merged, nil
}

func validateFieldType(t string) error {
	switch t {
	case FieldTypeText, FieldTypeKeyword, FieldTypeStoredOnly:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrSchemaInvalidType, t)
	}
}

func validateAnalyzer(analyzers AnalyzerSet, name string) error {
	if name == "" || analyzers == nil || analyzers.Has(name) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrSchemaInvalidAnalyzer, name)
}
