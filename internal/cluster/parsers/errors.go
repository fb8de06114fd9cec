package parsers

import (
	"fmt"

	"github.com/rileyhilliard/sgpu/internal/cluster"
)

// maxErrorText bounds how much of an offending line is quoted in errors.
const maxErrorText = 60

// MalformedRecordError reports a record whose first line has no key=value
// field, or indented text with no record to continue. With Leading set, the
// record was kept and only Text, found before its first field, was dropped.
type MalformedRecordError struct {
	Line    int
	Text    string
	Leading bool
}

func (e *MalformedRecordError) Error() string {
	if e.Leading {
		return fmt.Sprintf("line %d: dropped %q before the first key=value field", e.Line, clip(e.Text))
	}
	return fmt.Sprintf("line %d: no key=value field in %q", e.Line, clip(e.Text))
}

// DecodeError reports a record that could not be turned into a resource.
type DecodeError struct {
	Line   int
	Kind   cluster.Kind
	ID     string
	Reason string
}

func (e *DecodeError) Error() string {
	switch {
	case e.ID != "":
		return fmt.Sprintf("line %d: %s %s: %s", e.Line, e.Kind, e.ID, e.Reason)
	case e.Kind != cluster.KindUnknown:
		return fmt.Sprintf("line %d: %s record: %s", e.Line, e.Kind, e.Reason)
	default:
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxErrorText {
		return s
	}
	return string(r[:maxErrorText]) + "..."
}
