package persistence

import (
	"github.com/sawi/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// columnSet builds a whitelist from a public field -> column map
func columnSet(fields map[string]string) map[string]bool {
	set := make(map[string]bool, len(fields))
	for _, column := range fields {
		set[column] = true
	}
	return set
}

// applySort adds ORDER BY terms in the given order. Columns outside allowed
// are dropped; when nothing survives, fallback is used. The primary key is
// appended last so paging is stable.
func applySort(query *gorm.DB, terms []shared.SortTerm, allowed map[string]bool, fallback []shared.SortTerm) *gorm.DB {
	valid := make([]shared.SortTerm, 0, len(terms))
	for _, term := range terms {
		if allowed[term.Column] {
			valid = append(valid, term)
		}
	}
	if len(valid) == 0 {
		valid = fallback
	}

	for _, term := range valid {
		query = query.Order(clause.OrderByColumn{
			Column: clause.Column{Name: term.Column},
			Desc:   term.Direction == shared.SortDesc,
		})
	}
	return query.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
}

// applyPage adds LIMIT/OFFSET after normalizing the page
func applyPage(query *gorm.DB, page shared.Page) *gorm.DB {
	page = page.Normalize()
	return query.Limit(page.Limit).Offset(page.Offset)
}
