package browser

import "strings"

// ResourceFilter decides which outgoing requests a page aborts.
type ResourceFilter struct {
	blocked map[string]struct{}
}

// NewResourceFilter blocks the given resource types, matched case-insensitively.
func NewResourceFilter(types []string) ResourceFilter {
	blocked := make(map[string]struct{}, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			blocked[t] = struct{}{}
		}
	}
	return ResourceFilter{blocked: blocked}
}

// ShouldAbort reports whether a request of resourceType must be aborted.
func (f ResourceFilter) ShouldAbort(resourceType string) bool {
	_, ok := f.blocked[strings.ToLower(resourceType)]
	return ok
}
