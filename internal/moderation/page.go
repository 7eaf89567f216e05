package moderation

// Page is one page of a listing. Pages is ceil(Total/limit).
type Page[T any] struct {
	Items []T
	Page  int
	Pages int
	Total int64
}

func newPage[T any](items []T, page, limit int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Page[T]{Items: items, Page: page, Pages: pages, Total: total}
}

// paging clamps page to >= 1 and limit to [1, max], using def for
// non-positive limits.
func paging(page, limit, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = def
	case limit > max:
		limit = max
	}
	return page, limit
}
