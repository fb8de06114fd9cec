package parsers

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxHostlistNames caps expansion so a corrupt range cannot exhaust memory.
const MaxHostlistNames = 65536

// ExpandHostlist expands a Slurm hostlist expression:
//
//	gpu[01-04,07],cpu01        -> gpu01 gpu02 gpu03 gpu04 gpu07 cpu01
//	rack[1-2]-node[1-2]        -> rack1-node1 rack1-node2 rack2-node1 rack2-node2
//
// Zero padding of a range start is kept. "(null)", "None assigned" and ""
// expand to nothing.
func ExpandHostlist(expr string) ([]string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || expr == "(null)" || expr == "None assigned" {
		return nil, nil
	}

	var names []string
	for _, item := range splitOutside(expr, ',', '[', ']') {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		expanded, err := expandHost(item, MaxHostlistNames-len(names))
		if err != nil {
			return nil, err
		}
		names = append(names, expanded...)
	}
	return names, nil
}

// expandHostlistLenient expands expr and falls back to a plain comma split
// when it is not a valid hostlist.
func expandHostlistLenient(expr string) ([]string, error) {
	names, err := ExpandHostlist(expr)
	if err == nil {
		return names, nil
	}
	var literal []string
	for _, item := range splitOutside(expr, ',', '[', ']') {
		if item = strings.TrimSpace(item); item != "" {
			literal = append(literal, item)
		}
	}
	return literal, err
}

// expandHost expands every bracket group in one host pattern.
func expandHost(pattern string, limit int) ([]string, error) {
	open := strings.IndexByte(pattern, '[')
	if open < 0 {
		if strings.IndexByte(pattern, ']') >= 0 {
			return nil, fmt.Errorf("hostlist %q: unbalanced ']'", pattern)
		}
		return []string{pattern}, nil
	}
	end := strings.IndexByte(pattern[open:], ']')
	if end < 0 {
		return nil, fmt.Errorf("hostlist %q: missing ']'", pattern)
	}
	end += open

	prefix := pattern[:open]
	values, err := expandRanges(pattern[open+1:end], pattern)
	if err != nil {
		return nil, err
	}
	suffixes, err := expandHost(pattern[end+1:], limit)
	if err != nil {
		return nil, err
	}
	if len(values)*len(suffixes) > limit {
		return nil, fmt.Errorf("hostlist %q: expands to more than %d names", pattern, MaxHostlistNames)
	}

	out := make([]string, 0, len(values)*len(suffixes))
	for _, v := range values {
		for _, s := range suffixes {
			out = append(out, prefix+v+s)
		}
	}
	return out, nil
}

// expandRanges expands the inside of one bracket group, e.g. "01-04,07".
func expandRanges(body, pattern string) ([]string, error) {
	if body == "" {
		return nil, fmt.Errorf("hostlist %q: empty brackets", pattern)
	}
	var out []string
	for _, part := range strings.Split(body, ",") {
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			if !isDigits(part) {
				return nil, fmt.Errorf("hostlist %q: %q is not a number", pattern, part)
			}
			out = append(out, part)
			continue
		}
		if !isDigits(lo) || !isDigits(hi) {
			return nil, fmt.Errorf("hostlist %q: bad range %q", pattern, part)
		}
		start, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("hostlist %q: bad range %q", pattern, part)
		}
		stop, err := strconv.Atoi(hi)
		if err != nil || stop < start {
			return nil, fmt.Errorf("hostlist %q: bad range %q", pattern, part)
		}
		// stop-start cannot overflow since both are non-negative.
		count := stop - start
		if count >= MaxHostlistNames-len(out) {
			return nil, fmt.Errorf("hostlist %q: expands to more than %d names", pattern, MaxHostlistNames)
		}
		width := len(lo)
		for i := 0; i <= count; i++ {
			out = append(out, fmt.Sprintf("%0*d", width, start+i))
		}
	}
	return out, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
