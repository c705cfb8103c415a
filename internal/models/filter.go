package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FilterOp is a filter node operator.
type FilterOp string

const (
	OpAnd            FilterOp = "and"
	OpOr             FilterOp = "or"
	OpEquals         FilterOp = "equals"
	OpDateOnOrAfter  FilterOp = "on_or_after"
	OpDateOnOrBefore FilterOp = "on_or_before"
	OpCheckbox       FilterOp = "checkbox"
)

// Filter is a boolean combination of field conditions.
type Filter struct {
	Op       FilterOp `json:"op"`
	Field    string   `json:"field,omitempty"`
	Value    Value    `json:"value,omitempty"`
	Children []Filter `json:"children,omitempty"`
}

// And combines filters with logical AND. A single child is returned as is.
func And(filters ...Filter) *Filter {
	if len(filters) == 1 {
		return &filters[0]
	}
	return &Filter{Op: OpAnd, Children: filters}
}

// Or combines filters with logical OR.
func Or(filters ...Filter) Filter {
	return Filter{Op: OpOr, Children: filters}
}

// Equals matches a field whose value equals v.
func Equals(field string, v Value) Filter {
	return Filter{Op: OpEquals, Field: field, Value: v}
}

// DateOnOrAfter matches a date field on or after date (YYYY-MM-DD).
func DateOnOrAfter(field, date string) Filter {
	return Filter{Op: OpDateOnOrAfter, Field: field, Value: DateValue(date)}
}

// DateOnOrBefore matches a date field on or before date (YYYY-MM-DD).
func DateOnOrBefore(field, date string) Filter {
	return Filter{Op: OpDateOnOrBefore, Field: field, Value: DateValue(date)}
}

// CheckboxIs matches a checkbox field with the given state.
func CheckboxIs(field string, checked bool) Filter {
	return Filter{Op: OpCheckbox, Field: field, Value: CheckboxValue(checked)}
}

// datePart returns the calendar date portion of a stored date value.
func datePart(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// Matches evaluates the filter against a record. A nil filter matches everything.
func (f *Filter) Matches(r *Record) bool {
	if f == nil {
		return true
	}
	switch f.Op {
	case OpAnd:
		for i := range f.Children {
			if !f.Children[i].Matches(r) {
				return false
			}
		}
		return true
	case OpOr:
		for i := range f.Children {
			if f.Children[i].Matches(r) {
				return true
			}
		}
		return false
	case OpDateOnOrAfter, OpDateOnOrBefore:
		d, ok := r.Date(f.Field)
		if !ok {
			return false
		}
		d = datePart(d)
		if f.Op == OpDateOnOrAfter {
			return d >= f.Value.Text
		}
		return d <= f.Value.Text
	case OpCheckbox:
		// Absent checkboxes read as unchecked.
		checked, _ := r.Checkbox(f.Field)
		return checked == f.Value.Checkbox
	case OpEquals:
		v, ok := r.Fields[f.Field]
		if !ok {
			return false
		}
		switch f.Value.Kind {
		case FieldNumber:
			return v.Number != nil && f.Value.Number != nil && *v.Number == *f.Value.Number
		case FieldCheckbox:
			return v.Checkbox == f.Value.Checkbox
		case FieldDate:
			return datePart(v.Text) == datePart(f.Value.Text)
		default:
			return strings.TrimSpace(v.Text) == strings.TrimSpace(f.Value.Text)
		}
	}
	return false
}

// compareValues orders two values of a field; absent values sort first.
func compareValues(a, b Value, aok, bok bool) int {
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	if a.Kind == FieldNumber || b.Kind == FieldNumber {
		var x, y float64
		if a.Number != nil {
			x = *a.Number
		}
		if b.Number != nil {
			y = *b.Number
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	if a.Kind == FieldCheckbox {
		switch {
		case a.Checkbox == b.Checkbox:
			return 0
		case !a.Checkbox:
			return -1
		}
		return 1
	}
	return strings.Compare(a.Text, b.Text)
}

// SortRecords orders records in place by the given sorts. The sort is stable,
// so records with equal keys keep their creation order.
func SortRecords(records []*Record, sorts []Sort) {
	if len(sorts) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, s := range sorts {
			a, aok := records[i].Fields[s.Field]
			b, bok := records[j].Fields[s.Field]
			c := compareValues(a, b, aok, bok)
			if c == 0 {
				continue
			}
			if s.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// PageRecords evaluates a query against an in-process record set: filter, sort,
// then slice one page. The cursor is the decimal offset of the page's first record.
func PageRecords(records []*Record, q Query) (*QueryPage, error) {
	matched := make([]*Record, 0, len(records))
	for _, r := range records {
		if q.Filter.Matches(r) {
			matched = append(matched, r)
		}
	}
	SortRecords(matched, q.Sorts)

	offset := 0
	if q.Cursor != "" {
		n, err := strconv.Atoi(q.Cursor)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid cursor %q", q.Cursor)
		}
		offset = n
	}
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}

	page := &QueryPage{Records: []*Record{}}
	if offset >= len(matched) {
		return page, nil
	}
	end := offset + size
	if end > len(matched) {
		end = len(matched)
	}
	page.Records = matched[offset:end]
	if end < len(matched) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}
