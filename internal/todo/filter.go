package todo

import (
	"fmt"
	"strings"

	"firetodo/internal/storage"
)

type Filter string

const (
	FilterAll     Filter = "all"
	FilterDone    Filter = "done"
	FilterPending Filter = "pending"
)

func Filters() []Filter {
	return []Filter{FilterAll, FilterDone, FilterPending}
}

func ParseFilter(v string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(v))); f {
	case FilterAll, FilterDone, FilterPending:
		return f, nil
	case "":
		return FilterAll, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFilter, v)
}

func (f Filter) Match(t storage.Task) bool {
	switch f {
	case FilterDone:
		return t.Done
	case FilterPending:
		return !t.Done
	}
	return true
}

// Label is the button caption for the filter bar.
func (f Filter) Label() string {
	switch f {
	case FilterDone:
		return "Done"
	case FilterPending:
		return "Pending"
	}
	return "All"
}

// matchSearch reports whether text contains query; query is already lowercased.
func matchSearch(text, query string) bool {
	return query == "" || strings.Contains(strings.ToLower(text), query)
}
