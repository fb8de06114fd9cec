package exec

import (
	"fmt"
	"regexp"

	"github.com/rileyhilliard/sgpu/internal/errors"
)

// commandNotFoundPatterns are regex patterns to detect "command not found" errors
// from various shells. These require exit code 127.
var commandNotFoundPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bash: (\S+): command not found`),
	regexp.MustCompile(`(?i)zsh: command not found: (\S+)`),
	regexp.MustCompile(`(?i)sh: \d+: (\S+): not found`),
	regexp.MustCompile(`(?i)-bash: (\S+): No such file or directory`),
	regexp.MustCompile(`(?i)(\S+): not found`),
	regexp.MustCompile(`(?i)(\S+): command not found`),
}

// IsCommandNotFound checks if the error output indicates a missing command.
// Returns the command name (if extractable) and whether it's a command-not-found error.
func IsCommandNotFound(stderr string, exitCode int) (string, bool) {
	// Exit code 127 is the standard for command not found
	if exitCode != 127 {
		return "", false
	}

	for _, pattern := range commandNotFoundPatterns {
		if matches := pattern.FindStringSubmatch(stderr); len(matches) > 1 {
			return matches[1], true
		}
	}

	return "", true
}

// HandleExecError turns a missing status command into a structured error with
// a fix. where describes the machine ("locally" or "on login1"). Returns nil
// when the failure is something else.
func HandleExecError(argv []string, stderr string, exitCode int, where string) error {
	cmdName, notFound := IsCommandNotFound(stderr, exitCode)
	if !notFound {
		return nil
	}

	if cmdName == "" {
		cmdName = "command"
		if len(argv) > 0 {
			cmdName = argv[0]
		}
	}

	return NotFoundError(cmdName, where)
}

// NotFoundError reports a status command that isn't on PATH.
func NotFoundError(cmdName, where string) error {
	suggestion := fmt.Sprintf(`sgpu reads cluster state by running '%s'.

Fixes:

1. Run sgpu on a Slurm login node where '%s' is installed

2. Point sgpu at a login node over SSH:
   sgpu --ssh login-node

3. Set explicit commands in .sgpu.yaml:
   source:
     commands:
       - [/opt/slurm/bin/scontrol, show, nodes]`, cmdName, cmdName)

	return errors.New(errors.ErrExec,
		fmt.Sprintf("'%s' not found in PATH %s", cmdName, where),
		suggestion)
}
