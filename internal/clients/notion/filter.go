package notion

import "github.com/bobmcallan/folio/internal/models"

// encodeFilter translates a filter tree into the Notion query filter format
func encodeFilter(f *models.Filter) map[string]interface{} {
	if f == nil {
		return nil
	}
	switch f.Op {
	case models.OpAnd, models.OpOr:
		children := make([]map[string]interface{}, 0, len(f.Children))
		for i := range f.Children {
			if c := encodeFilter(&f.Children[i]); c != nil {
				children = append(children, c)
			}
		}
		return map[string]interface{}{string(f.Op): children}
	case models.OpDateOnOrAfter, models.OpDateOnOrBefore:
		return map[string]interface{}{
			"property": f.Field,
			"date":     map[string]string{string(f.Op): f.Value.Text},
		}
	case models.OpCheckbox:
		return map[string]interface{}{
			"property": f.Field,
			"checkbox": map[string]bool{"equals": f.Value.Checkbox},
		}
	case models.OpEquals:
		var cond interface{}
		switch f.Value.Kind {
		case models.FieldNumber:
			var n float64
			if f.Value.Number != nil {
				n = *f.Value.Number
			}
			cond = map[string]float64{"equals": n}
		case models.FieldCheckbox:
			cond = map[string]bool{"equals": f.Value.Checkbox}
		default:
			cond = map[string]string{"equals": f.Value.Text}
		}
		kind := string(f.Value.Kind)
		if kind == "" {
			kind = string(models.FieldRichText)
		}
		return map[string]interface{}{
			"property": f.Field,
			kind:       cond,
		}
	}
	return nil
}

func encodeSorts(sorts []models.Sort) []map[string]string {
	if len(sorts) == 0 {
		return nil
	}
	out := make([]map[string]string, 0, len(sorts))
	for _, s := range sorts {
		dir := "ascending"
		if s.Descending {
			dir = "descending"
		}
		out = append(out, map[string]string{"property": s.Field, "direction": dir})
	}
	return out
}
