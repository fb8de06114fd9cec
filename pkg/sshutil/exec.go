package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"

	"github.com/rileyhilliard/sgpu/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Runner runs a command line on a remote host. *Client implements it.
type Runner interface {
	Run(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error)
	Close() error
}

// Run executes cmd in a new session and captures its output.
// A non-zero exit is returned as exitCode with a nil error; exitCode is -1
// when the command could not run at all. Cancelling ctx signals the remote
// process and closes the session, returning an error that wraps ctx.Err().
func (c *Client) Run(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"The connection may have dropped; sgpu reconnects on the next poll.")
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		session.Close()
		<-done
		return stdoutBuf.Bytes(), stderrBuf.Bytes(), -1, errors.WrapWithCode(ctx.Err(), errors.ErrSSH,
			fmt.Sprintf("Remote command on %s was interrupted", c.Host), "")
	case runErr := <-done:
		if runErr == nil {
			return stdoutBuf.Bytes(), stderrBuf.Bytes(), 0, nil
		}
		var exitErr *ssh.ExitError
		if stderrors.As(runErr, &exitErr) {
			return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitErr.ExitStatus(), nil
		}
		return stdoutBuf.Bytes(), stderrBuf.Bytes(), -1, errors.WrapWithCode(runErr, errors.ErrSSH,
			fmt.Sprintf("Failed to run '%s' on %s", cmd, c.Host),
			"The connection may have dropped; sgpu reconnects on the next poll.")
	}
}
