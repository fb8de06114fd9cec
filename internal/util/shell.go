// Package util provides common utility functions used across the codebase.
package util

import "strings"

// shellSpecial are the characters that force an argument to be quoted.
const shellSpecial = " \t\n'\"$`\\|&;<>()*?[]{}~#!"

// ShellQuote wraps a string in single quotes, escaping any existing single quotes.
// This is safe for use in shell commands where the string should be treated literally.
func ShellQuote(s string) string {
	// Replace ' with '\'' (end quote, escaped quote, start quote)
	escaped := strings.ReplaceAll(s, "'", "'\\''")
	return "'" + escaped + "'"
}

// ShellJoin builds a command line from argv for a remote shell, quoting only
// the arguments that need it so logged commands stay readable.
func ShellJoin(argv []string) string {
	words := make([]string, len(argv))
	for i, a := range argv {
		if a != "" && !strings.ContainsAny(a, shellSpecial) {
			words[i] = a
			continue
		}
		words[i] = ShellQuote(a)
	}
	return strings.Join(words, " ")
}
