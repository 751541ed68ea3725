package domain

import "strings"

// CleanItem canonicalizes a raw line of tool output into an Item. It returns
// false for blank lines and wildcard entries.
func CleanItem(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, ".")
	if s == "" || strings.Contains(s, "*") || strings.ContainsAny(s, " \t/") {
		return "", false
	}
	return s, true
}

// InScope reports whether item is root itself or one of its subdomains.
func InScope(item, root string) bool {
	item = strings.TrimSuffix(strings.ToLower(item), ".")
	root = strings.TrimSuffix(strings.ToLower(root), ".")
	if root == "" || strings.Contains(item, "*") {
		return false
	}
	return item == root || strings.HasSuffix(item, "."+root)
}

// FilterScope keeps the items that are in scope of root, preserving order.
func FilterScope(items []string, root string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if InScope(it, root) {
			out = append(out, it)
		}
	}
	return out
}
