package searchquery

import (
	"regexp"
	"strings"
)

// Match reports whether a book with the given title and authors
// satisfies the query tree. A nil node matches everything.
func Match(n Node, title string, authors []string) bool {
	if n == nil {
		return true
	}

	switch q := n.(type) {
	case *Filter:
		return matchFilter(q, title, authors)

	case *Logical:
		if q.Op == LogicalAnd {
			for _, sub := range q.Nodes {
				if !Match(sub, title, authors) {
					return false
				}
			}
			return true
		}
		for _, sub := range q.Nodes {
			if Match(sub, title, authors) {
				return true
			}
		}
		return false

	case *Not:
		return !Match(q.Node, title, authors)
	}
	return false
}

func matchFilter(f *Filter, title string, authors []string) bool {
	var haystack []string
	switch f.Field {
	case "title":
		haystack = []string{title}
	case "author", "authors":
		haystack = authors
	default: // "any" and unknown fields search everything
		haystack = append([]string{title}, authors...)
	}

	for _, s := range haystack {
		if matchValue(f, s) {
			return true
		}
	}
	return false
}

func matchValue(f *Filter, s string) bool {
	switch f.Operator {
	case OpEquals:
		return strings.EqualFold(s, f.Value)
	case OpRegex:
		pat := strings.TrimSuffix(strings.TrimPrefix(f.Value, "/"), "/")
		re, err := regexp.Compile("(?i)" + pat)
		if err != nil {
			return false
		}
		return re.MatchString(s)
	default:
		return strings.Contains(strings.ToLower(s), strings.ToLower(f.Value))
	}
}
