package notion

import (
	"strings"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

type richText struct {
	PlainText string `json:"plain_text"`
}

func plainText(parts []richText) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.PlainText)
	}
	return b.String()
}

type namedOption struct {
	Name string `json:"name"`
}

type dateValue struct {
	Start string `json:"start"`
}

type formulaValue struct {
	Type    string     `json:"type"`
	Number  *float64   `json:"number"`
	String  *string    `json:"string"`
	Boolean *bool      `json:"boolean"`
	Date    *dateValue `json:"date"`
}

// propertyValue is a page property as returned by the API
type propertyValue struct {
	Type     string        `json:"type"`
	Title    []richText    `json:"title"`
	RichText []richText    `json:"rich_text"`
	Number   *float64      `json:"number"`
	Select   *namedOption  `json:"select"`
	Status   *namedOption  `json:"status"`
	Date     *dateValue    `json:"date"`
	Checkbox bool          `json:"checkbox"`
	Formula  *formulaValue `json:"formula"`
}

// toValue converts an API property into a record value. Property types the
// store does not model are reported as not ok.
func (p propertyValue) toValue() (models.Value, bool) {
	switch p.Type {
	case "title":
		return models.TitleValue(plainText(p.Title)), true
	case "rich_text":
		return models.RichTextValue(plainText(p.RichText)), true
	case "number":
		if p.Number == nil {
			return models.Value{Kind: models.FieldNumber}, true
		}
		return models.NumberValue(*p.Number), true
	case "select":
		if p.Select == nil {
			return models.SelectValue(""), true
		}
		return models.SelectValue(p.Select.Name), true
	case "status":
		if p.Status == nil {
			return models.SelectValue(""), true
		}
		return models.SelectValue(p.Status.Name), true
	case "date":
		if p.Date == nil {
			return models.DateValue(""), true
		}
		return models.DateValue(p.Date.Start), true
	case "checkbox":
		return models.CheckboxValue(p.Checkbox), true
	case "formula":
		if p.Formula == nil {
			return models.Value{}, false
		}
		switch p.Formula.Type {
		case "number":
			if p.Formula.Number == nil {
				return models.Value{Kind: models.FieldNumber}, true
			}
			return models.NumberValue(*p.Formula.Number), true
		case "string":
			if p.Formula.String == nil {
				return models.RichTextValue(""), true
			}
			return models.RichTextValue(*p.Formula.String), true
		case "boolean":
			return models.CheckboxValue(p.Formula.Boolean != nil && *p.Formula.Boolean), true
		case "date":
			if p.Formula.Date == nil {
				return models.DateValue(""), true
			}
			return models.DateValue(p.Formula.Date.Start), true
		}
	}
	return models.Value{}, false
}

// page is a Notion page object
type page struct {
	ID             string                   `json:"id"`
	CreatedTime    time.Time                `json:"created_time"`
	LastEditedTime time.Time                `json:"last_edited_time"`
	Parent         pageParent               `json:"parent"`
	Properties     map[string]propertyValue `json:"properties"`
}

type pageParent struct {
	Type       string `json:"type"`
	DatabaseID string `json:"database_id"`
}

func (p *page) toRecord() *models.Record {
	r := &models.Record{
		ID:        p.ID,
		Database:  p.Parent.DatabaseID,
		Fields:    make(models.Fields, len(p.Properties)),
		CreatedAt: p.CreatedTime,
		UpdatedAt: p.LastEditedTime,
	}
	for name, prop := range p.Properties {
		if v, ok := prop.toValue(); ok {
			r.Fields[name] = v
		}
	}
	return r
}

// Notion rejects rich text content longer than 2000 characters.
const maxTextContent = 2000

func textContent(s string) []map[string]interface{} {
	if len([]rune(s)) > maxTextContent {
		s = string([]rune(s)[:maxTextContent])
	}
	return []map[string]interface{}{
		{"type": "text", "text": map[string]string{"content": s}},
	}
}

// encodeValue renders a record value as an API property value
func encodeValue(v models.Value) interface{} {
	switch v.Kind {
	case models.FieldTitle:
		return map[string]interface{}{"title": textContent(v.Text)}
	case models.FieldRichText:
		return map[string]interface{}{"rich_text": textContent(v.Text)}
	case models.FieldNumber:
		if v.Number == nil {
			return map[string]interface{}{"number": nil}
		}
		return map[string]interface{}{"number": *v.Number}
	case models.FieldSelect:
		if strings.TrimSpace(v.Text) == "" {
			return map[string]interface{}{"select": nil}
		}
		return map[string]interface{}{"select": map[string]string{"name": v.Text}}
	case models.FieldDate:
		if strings.TrimSpace(v.Text) == "" {
			return map[string]interface{}{"date": nil}
		}
		return map[string]interface{}{"date": map[string]string{"start": v.Text}}
	case models.FieldCheckbox:
		return map[string]interface{}{"checkbox": v.Checkbox}
	}
	return nil
}

func encodeFields(fields models.Fields) map[string]interface{} {
	props := make(map[string]interface{}, len(fields))
	for name, v := range fields {
		if enc := encodeValue(v); enc != nil {
			props[name] = enc
		}
	}
	return props
}

// databaseProperty is a property definition of a database
type databaseProperty struct {
	Type   string `json:"type"`
	Select *struct {
		Options []namedOption `json:"options"`
	} `json:"select"`
	Status *struct {
		Options []namedOption `json:"options"`
	} `json:"status"`
}

type database struct {
	ID         string                      `json:"id"`
	Properties map[string]databaseProperty `json:"properties"`
}

func (d *database) toSchema() *models.Schema {
	s := &models.Schema{Database: d.ID, Fields: make(map[string]models.FieldSchema, len(d.Properties))}
	for name, p := range d.Properties {
		fs := models.FieldSchema{Kind: models.FieldKind(p.Type)}
		var opts []namedOption
		switch {
		case p.Select != nil:
			opts = p.Select.Options
		case p.Status != nil:
			fs.Kind = models.FieldSelect
			opts = p.Status.Options
		}
		for _, o := range opts {
			if o.Name != "" {
				fs.Options = append(fs.Options, o.Name)
			}
		}
		s.Fields[name] = fs
	}
	return s
}
