package plans

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SortField names a column the plan table can be ordered by.
type SortField string

const (
	SortByPrice    SortField = "price"
	SortByCompany  SortField = "company"
	SortByProduct  SortField = "product"
	SortByCategory SortField = "category"
)

// ParseSortField accepts the column names used by the API and CLI. Empty means price.
func ParseSortField(s string) (SortField, error) {
	switch SortField(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByPrice:
		return SortByPrice, nil
	case SortByCompany:
		return SortByCompany, nil
	case SortByProduct:
		return SortByProduct, nil
	case SortByCategory:
		return SortByCategory, nil
	default:
		return "", fmt.Errorf("unknown sort field %q", s)
	}
}

// Sort orders plans in place. Text columns compare case-insensitively; equal keys keep their order.
func (ps *Plans) Sort(field SortField, desc bool) {
	compare := func(a, b *Plan) int {
		switch field {
		case SortByCompany:
			return cmp.Compare(strings.ToLower(a.CompanyName), strings.ToLower(b.CompanyName))
		case SortByProduct:
			return cmp.Compare(strings.ToLower(a.ProductName), strings.ToLower(b.ProductName))
		case SortByCategory:
			return cmp.Compare(strings.ToLower(a.ProductCategory), strings.ToLower(b.ProductCategory))
		default:
			return cmp.Compare(a.MonthlyPrice, b.MonthlyPrice)
		}
	}

	slices.SortStableFunc(ps.Items, func(a, b *Plan) int {
		if desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
}
