// Package cli implements the sgpu command-line interface.
//
// Each Cobra command is a thin wrapper: it loads config, applies flag
// overrides, and hands off to the poll, source and monitor packages.
//
// # Command Structure
//
//	sgpu                 - Live GPU dashboard (needs a terminal)
//	sgpu snapshot        - Poll once and print a table, JSON or YAML
//	sgpu init            - Create .sgpu.yaml or the global config
//	sgpu version         - Print build information
//	sgpu completion      - Generate shell completion scripts
//
// # Flag Handling
//
// The source flags (--config, --timeout, --ssh, --replay, --log-file,
// --no-color) are persistent on the root command, so they work the same
// for the dashboard and for snapshot. --interval only applies to the
// dashboard. Flags win over the config file; a source flag replaces the
// configured source rather than merging with it.
//
// # Exit Status
//
// Execute maps errors to exit codes in one place. Structured errors print
// their message, cause and suggestion. JSON output carries its own error
// envelope on stdout and exits with a bare status 1.
package cli
