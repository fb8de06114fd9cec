package parsers

import (
	"strconv"
	"strings"

	"github.com/rileyhilliard/sgpu/internal/cluster"
)

// gresCount is the result of reading one GRES or TRES string for one
// resource name.
type gresCount struct {
	count cluster.Count
	// found is set when at least one entry named the resource.
	found  bool
	models []string
}

// parseGres reads a node or job GRES string such as
//
//	gpu:a100:4(S:0-1),gpu:v100:2(IDX:0,2),mps:100
//
// or a TresPerNode/TresPerJob value such as "gres/gpu:a100:2",
// summing every entry for name. A bare name counts as one; a "(...)" suffix
// is ignored. The count is unknown when a matching entry has an unreadable
// number.
func parseGres(s, name string) gresCount {
	var res gresCount
	if isNullValue(s) {
		return res
	}

	total, bad := 0, false
	for _, entry := range splitOutside(s, ',', '(', ')') {
		entry = stripParenSuffix(strings.TrimSpace(entry))
		entry = strings.TrimPrefix(entry, "gres/")
		entry = strings.TrimPrefix(entry, "gres:")
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if parts[0] != name {
			continue
		}
		res.found = true

		model, n := "", 1
		switch len(parts) {
		case 1:
		case 2:
			if v, err := strconv.Atoi(parts[1]); err == nil {
				n = v
			} else {
				model = parts[1]
			}
		default:
			model = strings.Join(parts[1:len(parts)-1], ":")
			v, err := strconv.Atoi(parts[len(parts)-1])
			if err != nil {
				bad = true
				continue
			}
			n = v
		}
		if n < 0 {
			bad = true
			continue
		}
		total += n
		res.addModel(model)
	}

	if res.found && !bad {
		res.count = cluster.Known(total)
	}
	return res
}

// parseTRES reads a TRES string such as
//
//	cpu=64,mem=512G,billing=64,gres/gpu=4,gres/gpu:a100=4
//
// preferring the untyped gres/<name> entry and otherwise summing the typed
// gres/<name>:<type> entries.
func parseTRES(s, name string) gresCount {
	var res gresCount
	untypedKey := "gres/" + name
	typedPrefix := untypedKey + ":"
	untyped, typed := -1, 0
	typedFound, unreadable := false, false
	if isNullValue(s) {
		return res
	}

	for _, entry := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok {
			continue
		}
		switch {
		case key == untypedKey:
			v, err := strconv.Atoi(value)
			if err != nil || v < 0 {
				unreadable = true
				continue
			}
			untyped = v
		case strings.HasPrefix(key, typedPrefix):
			res.addModel(strings.TrimPrefix(key, typedPrefix))
			v, err := strconv.Atoi(value)
			if err != nil || v < 0 {
				continue
			}
			typed += v
			typedFound = true
		}
	}

	switch {
	case untyped >= 0:
		res.found = true
		res.count = cluster.Known(untyped)
	case typedFound:
		res.found = true
		res.count = cluster.Known(typed)
	case unreadable:
		res.found = true
	}
	return res
}

func (g *gresCount) addModel(model string) {
	if model == "" || isNullValue(model) {
		return
	}
	for _, m := range g.models {
		if m == model {
			return
		}
	}
	g.models = append(g.models, model)
}

// stripParenSuffix removes a trailing "(...)" annotation.
func stripParenSuffix(s string) string {
	if !strings.HasSuffix(s, ")") {
		return s
	}
	depth := 0
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return s[:i]
			}
		}
	}
	return s
}

// splitOutside splits s on sep, ignoring separators between open and close.
func splitOutside(s string, sep, open, close byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case close:
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func isNullValue(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "(null)", "N/A", "None":
		return true
	}
	return false
}
