package lifecycle

import "strings"

// TrailerStripper removes boilerplate trailing sections from generated
// bodies. The heading list is policy data from configuration; matching is a
// case-insensitive prefix check at the start of a line, not a regex.
type TrailerStripper struct {
	headings []string
}

func NewTrailerStripper(headings []string) *TrailerStripper {
	lowered := make([]string, len(headings))
	for i, h := range headings {
		lowered[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return &TrailerStripper{headings: lowered}
}

// Strip truncates the body at the first line opening one of the configured
// sections and trims trailing whitespace. A body with no such section passes
// through unchanged.
func (s *TrailerStripper) Strip(body string) string {
	lines := strings.Split(body, "\n")

	cut := -1
	for i, line := range lines {
		trimmed := strings.ToLower(strings.TrimSpace(line))
		if trimmed == "" {
			continue
		}
		for _, heading := range s.headings {
			if heading != "" && strings.HasPrefix(trimmed, heading) {
				cut = i
				break
			}
		}
		if cut >= 0 {
			break
		}
	}

	if cut < 0 {
		return strings.TrimRight(body, " \t\n")
	}
	return strings.TrimRight(strings.Join(lines[:cut], "\n"), " \t\n")
}
