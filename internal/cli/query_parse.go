package cli

import (
	"strings"

	"github.com/calvinalkan/jsonstore/pkg/docstore"
)

// parseSort parses a comma-separated sort spec such as "priority,-title"
// into [docstore.SortField]s. A leading "-" on a field reverses it;
// otherwise the field sorts ascending. Order in the list is the sort's
// left-to-right precedence (spec.md §4.6).
func parseSort(spec string) []docstore.SortField {
	if spec == "" {
		return nil
	}

	parts := strings.Split(spec, ",")
	fields := make([]docstore.SortField, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		desc := false
		if strings.HasPrefix(p, "-") {
			desc = true
			p = p[1:]
		} else if strings.HasPrefix(p, "+") {
			p = p[1:]
		}

		if p == "" {
			continue
		}

		fields = append(fields, docstore.SortField{Field: p, Desc: desc})
	}

	return fields
}

// parseSelect splits a comma-separated projection field list.
func parseSelect(spec string) []string {
	if spec == "" {
		return nil
	}

	parts := strings.Split(spec, ",")
	fields := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			fields = append(fields, p)
		}
	}

	return fields
}
