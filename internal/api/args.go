package api

import "github.com/storegraph/storegraph/internal/filter"

// ParseWhereArgs converts the raw "where" argument map into criteria. It is
// deliberately lenient: missing or mistyped fields are treated as absent
// rather than rejected, matching the rest of the degrade-don't-fail policy.
func ParseWhereArgs(raw interface{}) filter.Criteria {
	criteria := filter.Criteria{}

	where, ok := raw.(map[string]interface{})
	if !ok {
		return criteria
	}

	if v, ok := floatArg(where["minPrice"]); ok {
		criteria.MinPrice = &v
	}
	if v, ok := floatArg(where["maxPrice"]); ok {
		criteria.MaxPrice = &v
	}

	if tf, ok := where["taxonomyFilter"].(map[string]interface{}); ok {
		if filters, ok := tf["filters"].([]interface{}); ok {
			for _, entry := range filters {
				m, ok := entry.(map[string]interface{})
				if !ok {
					continue
				}
				taxonomy, ok := m["taxonomy"].(string)
				if !ok || taxonomy == "" {
					continue
				}
				criteria.TaxonomyFilters = append(criteria.TaxonomyFilters, filter.TaxonomyFilter{
					Taxonomy: taxonomy,
					Terms:    stringSliceArg(m["terms"]),
				})
			}
		}
	}

	if ranges, ok := where["attributeRange"].([]interface{}); ok {
		for _, entry := range ranges {
			m, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			attribute, ok := m["attribute"].(string)
			if !ok || attribute == "" {
				continue
			}
			min, _ := floatArg(m["min"])
			max, _ := floatArg(m["max"])
			criteria.AttributeRanges = append(criteria.AttributeRanges, filter.RangeConstraint{
				Attribute: attribute,
				Min:       min,
				Max:       max,
			})
		}
	}

	return criteria
}

// floatArg accepts the numeric shapes graphql-go hands resolvers depending
// on whether the value came inline or through variables.
func floatArg(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func stringSliceArg(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			result = append(result, s)
		}
	}
	return result
}
