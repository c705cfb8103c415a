package models

import (
	"math"
	"strings"
	"time"
)

// FieldKind is the type of a document store field.
type FieldKind string

const (
	FieldTitle    FieldKind = "title"
	FieldRichText FieldKind = "rich_text"
	FieldNumber   FieldKind = "number"
	FieldSelect   FieldKind = "select"
	FieldDate     FieldKind = "date"
	FieldCheckbox FieldKind = "checkbox"
)

// Value is a single typed field value of a document store record.
// Text carries title, rich_text, select and date (YYYY-MM-DD) values.
type Value struct {
	Kind     FieldKind `json:"kind"`
	Text     string    `json:"text,omitempty"`
	Number   *float64  `json:"number,omitempty"`
	Checkbox bool      `json:"checkbox,omitempty"`
}

func TitleValue(s string) Value    { return Value{Kind: FieldTitle, Text: s} }
func RichTextValue(s string) Value { return Value{Kind: FieldRichText, Text: s} }
func SelectValue(s string) Value   { return Value{Kind: FieldSelect, Text: s} }
func DateValue(s string) Value     { return Value{Kind: FieldDate, Text: s} }
func CheckboxValue(b bool) Value   { return Value{Kind: FieldCheckbox, Checkbox: b} }

// NumberValue returns a number value.
func NumberValue(f float64) Value {
	return Value{Kind: FieldNumber, Number: &f}
}

// Fields maps field names to values.
type Fields map[string]Value

// Record is a page/row of a document store database.
type Record struct {
	ID        string    `json:"id"`
	Database  string    `json:"database"`
	Fields    Fields    `json:"fields"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// field returns the named field when present with one of the given kinds.
func (r *Record) field(name string, kinds ...FieldKind) (Value, bool) {
	if r == nil || name == "" {
		return Value{}, false
	}
	v, ok := r.Fields[name]
	if !ok {
		return Value{}, false
	}
	for _, k := range kinds {
		if v.Kind == k {
			return v, true
		}
	}
	return Value{}, false
}

// Text returns the trimmed plain text of a title, rich text or select field.
// Empty text is reported as absent.
func (r *Record) Text(name string) (string, bool) {
	v, ok := r.field(name, FieldTitle, FieldRichText, FieldSelect)
	if !ok {
		return "", false
	}
	s := strings.TrimSpace(v.Text)
	return s, s != ""
}

// Select returns the option name of a select field.
func (r *Record) Select(name string) (string, bool) {
	v, ok := r.field(name, FieldSelect)
	if !ok {
		return "", false
	}
	s := strings.TrimSpace(v.Text)
	return s, s != ""
}

// Number returns a finite number field.
func (r *Record) Number(name string) (float64, bool) {
	v, ok := r.field(name, FieldNumber)
	if !ok || v.Number == nil {
		return 0, false
	}
	f := *v.Number
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Date returns the start date of a date field as stored (YYYY-MM-DD or timestamp).
func (r *Record) Date(name string) (string, bool) {
	v, ok := r.field(name, FieldDate)
	if !ok {
		return "", false
	}
	s := strings.TrimSpace(v.Text)
	return s, s != ""
}

// Checkbox returns a checkbox field.
func (r *Record) Checkbox(name string) (bool, bool) {
	v, ok := r.field(name, FieldCheckbox)
	if !ok {
		return false, false
	}
	return v.Checkbox, true
}

// FieldSchema describes one field of a database.
type FieldSchema struct {
	Kind    FieldKind `json:"kind"`
	Options []string  `json:"options,omitempty"` // select option names
}

// Schema describes the fields of a database.
type Schema struct {
	Database string                 `json:"database"`
	Fields   map[string]FieldSchema `json:"fields"`
}

// HasField reports whether the schema declares the named field.
func (s *Schema) HasField(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Fields[name]
	return ok
}

// Observe declares fields seen on a written record that the schema lacks and
// collects new select options. Stores without a declared schema use it to
// derive one from their contents.
func (s *Schema) Observe(fields Fields) {
	if s.Fields == nil {
		s.Fields = make(map[string]FieldSchema)
	}
	for name, v := range fields {
		fs, ok := s.Fields[name]
		if !ok {
			fs = FieldSchema{Kind: v.Kind}
		}
		if v.Kind == FieldSelect && fs.Kind == FieldSelect {
			opt := strings.TrimSpace(v.Text)
			if opt != "" && !containsString(fs.Options, opt) {
				fs.Options = append(fs.Options, opt)
			}
		}
		s.Fields[name] = fs
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Fields = make(Fields, len(r.Fields))
	for k, v := range r.Fields {
		if v.Number != nil {
			n := *v.Number
			v.Number = &n
		}
		c.Fields[k] = v
	}
	return &c
}

// TitleField returns the name of the title field, if any.
func (s *Schema) TitleField() (string, bool) {
	if s == nil {
		return "", false
	}
	for name, f := range s.Fields {
		if f.Kind == FieldTitle {
			return name, true
		}
	}
	return "", false
}

// Sort orders query results by a field.
type Sort struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending,omitempty"`
}

// Query describes one page request against a database.
type Query struct {
	Filter   *Filter `json:"filter,omitempty"`
	Sorts    []Sort  `json:"sorts,omitempty"`
	Cursor   string  `json:"cursor,omitempty"`
	PageSize int     `json:"page_size,omitempty"`
}

// DefaultPageSize is the page size used when a query does not set one.
const DefaultPageSize = 100

// QueryPage is one page of query results.
type QueryPage struct {
	Records    []*Record `json:"records"`
	NextCursor string    `json:"next_cursor,omitempty"`
}
