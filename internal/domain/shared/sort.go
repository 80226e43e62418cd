package shared

import (
	"fmt"
	"strings"
)

// SortDirection is ASC or DESC
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// SortTerm is one ordering clause: a storage column and a direction
type SortTerm struct {
	Column    string
	Direction SortDirection
}

// ParseSortSpec parses the sort mini-language used by the list endpoints.
//
// A spec is a pipe-separated list of field_DIRECTION tokens, e.g.
// "amount_DESC|created_at". The direction is the text after the last
// underscore when it is asc or desc (any case); otherwise the whole token is
// the field and the direction is ASC. Terms apply in the listed order.
// Fields are resolved through allowed (field -> column); an unknown field is
// a validation error. A repeated field keeps its first position and its last
// direction. An empty spec yields fallback.
func ParseSortSpec(spec string, allowed map[string]string, fallback []SortTerm) ([]SortTerm, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return fallback, nil
	}

	terms := make([]SortTerm, 0, 2)
	seen := make(map[string]int)
	for _, token := range strings.Split(spec, "|") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		field, dir := token, SortAsc
		if idx := strings.LastIndex(token, "_"); idx > 0 {
			switch strings.ToUpper(token[idx+1:]) {
			case string(SortAsc):
				field = token[:idx]
			case string(SortDesc):
				field, dir = token[:idx], SortDesc
			}
		}

		column, ok := allowed[field]
		if !ok {
			return nil, NewValidationError(fmt.Sprintf("Unsupported sort field: %s", field))
		}
		if i, ok := seen[column]; ok {
			terms[i].Direction = dir
			continue
		}
		seen[column] = len(terms)
		terms = append(terms, SortTerm{Column: column, Direction: dir})
	}

	if len(terms) == 0 {
		return fallback, nil
	}
	return terms, nil
}
