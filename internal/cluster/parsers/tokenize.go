package parsers

import (
	"strings"
)

// emptyReportPrefixes are printed by scontrol in place of records when a
// report has nothing to show.
var emptyReportPrefixes = []string{
	"No jobs in the system",
	"No nodes in the system",
	"No partitions in the system",
	"No reservations in the system",
}

// Tokenize splits scontrol text into records.
//
// A record starts at a non-indented line and runs until a blank line or the
// next non-indented line. Indented lines continue the current record. Each
// whitespace-separated token whose text before the first '=' is a valid key
// not yet seen in the record starts a new field; any other token is appended,
// after one space, to the value of the field before it. Values can therefore
// contain '=' and spaces.
//
// Problems are reported per record as *MalformedRecordError and never stop
// tokenizing. Text before the first field of a record's first line is
// dropped and reported the same way, without losing the record. Empty input
// yields no records and no errors.
func Tokenize(text string) ([]RawRecord, []error) {
	var (
		records []RawRecord
		errs    []error
		cur     *RawRecord
		// skipping swallows the indented tail of a rejected record.
		skipping bool
	)

	flush := func() {
		if cur != nil {
			records = append(records, *cur)
			cur = nil
		}
	}

	for i, line := range strings.Split(text, "\n") {
		lineNo := i + 1
		line = strings.TrimRight(line, "\r")

		if strings.TrimSpace(line) == "" {
			flush()
			skipping = false
			continue
		}

		if !isIndented(line) {
			flush()
			skipping = false
			if isEmptyReport(line) {
				continue
			}
			rec := RawRecord{Line: lineNo}
			tokens := strings.Fields(line)
			lead := leadingTokens(tokens)
			if lead == len(tokens) {
				errs = append(errs, &MalformedRecordError{Line: lineNo, Text: strings.TrimSpace(line)})
				skipping = true
				continue
			}
			if lead > 0 {
				errs = append(errs, &MalformedRecordError{Line: lineNo, Text: strings.Join(tokens[:lead], " "), Leading: true})
			}
			rec.addTokens(tokens[lead:])
			cur = &rec
			continue
		}

		if skipping {
			continue
		}
		if cur == nil {
			errs = append(errs, &MalformedRecordError{Line: lineNo, Text: strings.TrimSpace(line)})
			skipping = true
			continue
		}
		cur.addTokens(strings.Fields(line))
	}
	flush()

	return records, errs
}

// leadingTokens counts the tokens before the first key=value field.
func leadingTokens(tokens []string) int {
	for i, tok := range tokens {
		if _, _, ok := splitField(tok); ok {
			return i
		}
	}
	return len(tokens)
}

// addTokens folds tokens into the record. A token that is not a new field
// continues the value of the field before it.
func (r *RawRecord) addTokens(tokens []string) {
	for _, tok := range tokens {
		if key, value, ok := splitField(tok); ok && !r.Has(key) {
			r.set(key, value)
			continue
		}
		r.appendValue(tok)
	}
}

// splitField splits a key=value token. ok is false when the text before the
// first '=' is not a valid key.
func splitField(tok string) (key, value string, ok bool) {
	key, value, found := strings.Cut(tok, "=")
	if !found || !isKey(key) {
		return "", "", false
	}
	return key, value, true
}

// isKey matches [A-Za-z][A-Za-z0-9_/:.]*.
func isKey(s string) bool {
	if s == "" || !isLetter(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if isLetter(c) || (c >= '0' && c <= '9') {
			continue
		}
		switch c {
		case '_', '/', ':', '.':
			continue
		}
		return false
	}
	return true
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIndented(line string) bool {
	return line[0] == ' ' || line[0] == '\t'
}

func isEmptyReport(line string) bool {
	for _, prefix := range emptyReportPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
