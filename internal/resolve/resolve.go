package resolve

import (
	"fmt"
	"strings"
)

// Candidate is one entity returned by a listing endpoint, eligible for
// name/id resolution.
type Candidate struct {
	// ID is the canonical, opaque identifier.
	ID string

	// Name is the display name used for matching.
	Name string

	// Email is an optional address; when set, specs containing '@' are
	// matched against it before the substring fallback.
	Email string

	// Scope is an optional parent-scope display name (e.g. the space a list
	// lives in), surfaced in ambiguity reports to help disambiguation.
	Scope string
}

// NotFoundError indicates a spec matched no candidate by id, exact name,
// or substring.
type NotFoundError struct {
	// Kind names the entity type searched, e.g. "team" or "list".
	Kind string

	// Spec is the user-supplied string that failed to resolve.
	Spec string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s matched: %s", e.Kind, e.Spec)
}

// AmbiguousError indicates a spec matched two or more equally-ranked
// candidates. Matches holds every candidate that tied.
type AmbiguousError struct {
	Kind    string
	Spec    string
	Matches []Candidate
}

func (e *AmbiguousError) Error() string {
	names := make([]string, 0, len(e.Matches))
	for _, c := range e.Matches {
		if c.Scope != "" {
			names = append(names, fmt.Sprintf("%s (%s, id %s)", c.Name, c.Scope, c.ID))
			continue
		}
		names = append(names, fmt.Sprintf("%s (id %s)", c.Name, c.ID))
	}
	return fmt.Sprintf("ambiguous %s %q; matches: %s (narrow the name or use an exact id)",
		e.Kind, e.Spec, strings.Join(names, ", "))
}

// Resolve applies the matching ladder to spec over candidates and returns the
// single winning id. kind is used only for error messages.
func Resolve(kind, spec string, candidates []Candidate) (string, error) {
	// Rule 1: literal id short-circuits name matching entirely.
	for _, c := range candidates {
		if c.ID == spec {
			return c.ID, nil
		}
	}

	lower := strings.ToLower(spec)

	// Rule 2: exact name matches take priority over and suppress substring
	// matches, even when the substring search would also find them.
	var exact []Candidate
	for _, c := range candidates {
		if strings.ToLower(c.Name) == lower {
			exact = append(exact, c)
		}
	}
	if len(exact) == 1 {
		return exact[0].ID, nil
	}
	if len(exact) > 1 {
		return "", &AmbiguousError{Kind: kind, Spec: spec, Matches: exact}
	}

	// Email-aware step: an '@' spec is checked against email-keyed lookup
	// before falling back to substrings.
	if strings.Contains(spec, "@") {
		var byEmail []Candidate
		for _, c := range candidates {
			if c.Email != "" && strings.ToLower(c.Email) == lower {
				byEmail = append(byEmail, c)
			}
		}
		if len(byEmail) == 1 {
			return byEmail[0].ID, nil
		}
		if len(byEmail) > 1 {
			return "", &AmbiguousError{Kind: kind, Spec: spec, Matches: byEmail}
		}
	}

	// Rule 3: substring on names (and emails, where present).
	var subs []Candidate
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Name), lower) {
			subs = append(subs, c)
			continue
		}
		if c.Email != "" && strings.Contains(strings.ToLower(c.Email), lower) {
			subs = append(subs, c)
		}
	}
	switch len(subs) {
	case 0:
		return "", &NotFoundError{Kind: kind, Spec: spec}
	case 1:
		return subs[0].ID, nil
	default:
		return "", &AmbiguousError{Kind: kind, Spec: spec, Matches: subs}
	}
}

// ResolveAll resolves each spec independently against candidates and returns
// the ids deduplicated in first-seen order. The whole batch fails on the first
// spec that is unresolvable or ambiguous; there is no partial success.
func ResolveAll(kind string, specs []string, candidates []Candidate) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		id, err := Resolve(kind, spec, candidates)
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}
