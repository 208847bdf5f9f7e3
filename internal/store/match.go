package store

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/Easy-Rad/wally/internal/model"
)

func foldEqual(a, b string) bool {
	if a == "" {
		return false
	}
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}

// matchers are tried in order; the first identifier that matches exactly
// one candidate wins.
var matchers = []func(model.Person, string) bool{
	func(p model.Person, q string) bool { return foldEqual(p.Handle, q) },
	func(p model.Person, q string) bool { return foldEqual(p.LoginName, q) },
	func(p model.Person, q string) bool { return foldEqual(p.ScheduleCode, q) },
	func(p model.Person, q string) bool {
		return p.FirstName != "" && p.LastName != "" && foldEqual(p.FirstName+" "+p.LastName, q)
	},
	func(p model.Person, q string) bool { return foldEqual(p.LastName, q) },
	func(p model.Person, q string) bool { return foldEqual(p.FirstName, q) },
}

// Match picks the person a free-text query refers to. Identifiers are
// compared case-insensitively in this order: chat handle, reporting login,
// schedule code, full name, last name, first name. If the first identifier
// that matches anyone matches more than one person, the query is ambiguous
// and Match reports no match.
func Match(query string, candidates []model.Person) (model.Person, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return model.Person{}, false
	}
	for _, matches := range matchers {
		var found []model.Person
		for _, p := range candidates {
			if matches(p, query) {
				found = append(found, p)
			}
		}
		switch len(found) {
		case 0:
			continue
		case 1:
			return found[0], true
		default:
			return model.Person{}, false
		}
	}
	return model.Person{}, false
}
