package exec

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rileyhilliard/sgpu/internal/errors"
)

// WaitDelay bounds how long a cancelled command may keep its output pipes
// open after the process has been killed.
const WaitDelay = 2 * time.Second

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CaptureContext runs argv locally without a shell and captures all output.
// A non-zero exit is reported through Result.ExitCode, not as an error.
// When ctx ends first the process is killed and the returned error wraps ctx.Err().
func CaptureContext(ctx context.Context, argv []string) (*Result, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, errors.New(errors.ErrExec,
			"No command to run",
			"Check source.commands in your config")
	}

	command := exec.CommandContext(ctx, argv[0], argv[1:]...)
	command.WaitDelay = WaitDelay

	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	runErr := command.Run()
	res := &Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, errors.WrapWithCode(ctxErr, errors.ErrExec,
			fmt.Sprintf("'%s' was interrupted", argv[0]), "")
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if stderrors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		res.ExitCode = -1
		if stderrors.Is(runErr, exec.ErrNotFound) {
			return res, NotFoundError(argv[0], "locally")
		}
		return res, errors.WrapWithCode(runErr, errors.ErrExec,
			fmt.Sprintf("Couldn't run '%s'", argv[0]),
			"Make sure the command exists and is executable.")
	}

	return res, nil
}
