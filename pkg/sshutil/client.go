// Package sshutil dials a Slurm login node using the user's OpenSSH setup
// (~/.ssh/config, agent, default keys, known_hosts) and runs commands on it
// with context cancellation.
package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/rileyhilliard/sgpu/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// KeyEnv names an extra private key to try before the defaults.
const KeyEnv = "SGPU_SSH_KEY"

// Client wraps an SSH connection with the alias it was dialed with.
type Client struct {
	*ssh.Client
	Host    string // The original host/alias used to connect
	Address string // The resolved address (host:port)
}

// StrictHostKeyChecking controls host key verification against
// ~/.ssh/known_hosts. Disable only for throwaway test clusters.
var StrictHostKeyChecking = true

// Dial establishes an SSH connection to host, which may be an ~/.ssh/config
// alias, hostname, user@hostname or hostname:port. Cancelling ctx aborts the
// TCP connect; timeout bounds connect plus handshake.
func Dial(ctx context.Context, host string, timeout time.Duration) (*Client, error) {
	settings := resolveSettings(host, filepath.Join(homeDir(), ".ssh", "config"))

	config, err := buildClientConfig(settings, timeout)
	if err != nil {
		var sgErr *errors.Error
		if stderrors.As(err, &sgErr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't set up SSH for '%s'", host),
			"Check your keys are loaded: ssh-add -l")
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	address := settings.address()
	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", address)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			suggestionForDialError(err))
	}

	// The handshake has no context parameter; a deadline on the conn bounds it.
	if deadline, ok := dialCtx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()

		var hostKeyErr *HostKeyMismatchError
		if stderrors.As(err, &hostKeyErr) {
			return nil, errors.New(errors.ErrSSH, hostKeyErr.Error(), hostKeyErr.Suggestion())
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
			suggestionForHandshakeError(err, settings.encryptedKeys))
	}
	_ = conn.SetDeadline(time.Time{})

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    host,
		Address: address,
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// settings holds resolved SSH connection parameters.
type settings struct {
	hostname      string
	port          string
	user          string
	identityFile  string
	encryptedKeys []string
}

func (s *settings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSettings parses user@host:port and fills the gaps from the ssh
// config file at cfgPath. A missing or unparsable config is not an error.
func resolveSettings(host, cfgPath string) *settings {
	s := &settings{
		port: "22",
		user: currentUser(),
	}

	explicitUser := false
	if at := strings.Index(host, "@"); at != -1 {
		s.user = host[:at]
		host = host[at+1:]
		explicitUser = true
	}

	if colon := strings.LastIndex(host, ":"); colon != -1 && isDigits(host[colon+1:]) {
		s.port = host[colon+1:]
		host = host[:colon]
	}
	s.hostname = host

	content, _, err := stripMatchBlocks(cfgPath)
	if err != nil {
		return s
	}
	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return s
	}

	if v, _ := cfg.Get(host, "HostName"); v != "" {
		s.hostname = v
	}
	if v, _ := cfg.Get(host, "Port"); v != "" {
		s.port = v
	}
	if v, _ := cfg.Get(host, "User"); v != "" && !explicitUser {
		s.user = v
	}
	if v, _ := cfg.Get(host, "IdentityFile"); v != "" {
		s.identityFile = expandPath(v)
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// buildClientConfig collects auth methods (agent, SGPU_SSH_KEY, IdentityFile,
// default keys) and the host key callback.
func buildClientConfig(s *settings, timeout time.Duration) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	tryKey := func(path string) {
		method, err := keyFileAuth(path)
		if err != nil {
			var encErr *EncryptedKeyError
			if stderrors.As(err, &encErr) {
				s.encryptedKeys = append(s.encryptedKeys, path)
			}
			return
		}
		auth = append(auth, method)
	}

	if a := agentAuth(); a != nil {
		auth = append(auth, a)
	}
	if key := os.Getenv(KeyEnv); key != "" {
		tryKey(expandPath(key))
	}
	if s.identityFile != "" {
		tryKey(s.identityFile)
	}
	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		path := filepath.Join(homeDir(), ".ssh", name)
		if path != s.identityFile {
			tryKey(path)
		}
	}

	if len(auth) == 0 {
		if len(s.encryptedKeys) > 0 {
			return nil, errors.New(errors.ErrSSH,
				"Found SSH key(s) but they're encrypted: "+strings.Join(s.encryptedKeys, ", "),
				addKeysHint(s.encryptedKeys))
		}
		return nil, errors.New(errors.ErrSSH,
			"No SSH auth methods available",
			"Check your keys are loaded: ssh-add -l")
	}

	callback := ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in via StrictHostKeyChecking=false
	if StrictHostKeyChecking {
		var err error
		callback, err = hostKeyCallback(filepath.Join(homeDir(), ".ssh", "known_hosts"))
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
	}

	return &ssh.ClientConfig{
		User:            s.user,
		Auth:            auth,
		HostKeyCallback: callback,
		Timeout:         timeout,
	}, nil
}

var (
	agentOnce   sync.Once
	agentClient agent.ExtendedAgent
)

// agentAuth returns agent-backed auth when SSH_AUTH_SOCK has keys loaded.
// An empty agent ahead of key files would fail authentication, so it's skipped.
func agentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	agentOnce.Do(func() {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return
		}
		agentClient = agent.NewClient(conn)
	})
	if agentClient == nil {
		return nil
	}

	signers, err := agentClient.Signers()
	if err != nil || len(signers) == 0 {
		return nil
	}
	return ssh.PublicKeysCallback(agentClient.Signers)
}

// keyFileAuth loads a private key. Passphrase-protected keys yield *EncryptedKeyError.
func keyFileAuth(path string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if stderrors.As(err, &missing) || bytes.Contains(key, []byte("ENCRYPTED")) {
			return nil, &EncryptedKeyError{Path: path}
		}
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func addKeysHint(keys []string) string {
	var sb strings.Builder
	sb.WriteString("Add your key(s) to the agent:\n")
	for _, key := range keys {
		sb.WriteString("  ssh-add " + key + "\n")
	}
	sb.WriteString("\nNot sure which key? Check with: ssh -v <host>")
	return sb.String()
}

func suggestionForDialError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "Is sshd running on the login node? Try: ssh <host>"
	case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
		return "Can't route to the host. Are you on the cluster VPN?"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "Connection timed out. The login node might be down or firewalled."
	case strings.Contains(msg, "no such host"):
		return "The hostname didn't resolve. Check the alias in ~/.ssh/config."
	}
	return "Make sure the host is reachable: ssh <host>"
}

func suggestionForHandshakeError(err error, encryptedKeys []string) string {
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "no supported methods") {
		if len(encryptedKeys) > 0 {
			return addKeysHint(encryptedKeys)
		}
		return "Auth failed. Check your keys are loaded: ssh-add -l"
	}
	if strings.Contains(msg, "host key") {
		return "Host key issue. Connect once manually to accept it: ssh <host>"
	}
	return "Something went wrong during SSH setup. Try: ssh -v <host>"
}

// EncryptedKeyError is returned when an SSH key requires a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key at %s is encrypted (passphrase protected)", e.Path)
}

// HostKeyMismatchError reports a server key that contradicts known_hosts.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns the commands that refresh the known_hosts entry.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	known := make([]string, 0, len(e.Want))
	for _, k := range e.Want {
		known = append(known, k.Key.Type())
	}
	if len(known) == 0 {
		known = append(known, "unknown")
	}

	return fmt.Sprintf(
		"The server's host key doesn't match known_hosts (known: %s, sent: %s).\n"+
			"  If the login node was reinstalled, remove the old entry:\n"+
			"    ssh-keygen -R %s",
		strings.Join(known, ", "), e.ReceivedType, host)
}

// stripMatchBlocks returns the config up to the first Match directive, which
// ssh_config can't decode, and the 1-based line it was found on (0 if none).
func stripMatchBlocks(path string) ([]byte, int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			return []byte(strings.Join(lines[:i], "\n")), i + 1, nil
		}
	}
	return content, 0, nil
}

// hostKeyCallback verifies against known_hosts, creating an empty file when
// none exists, and converts key mismatches into *HostKeyMismatchError.
func hostKeyCallback(path string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create .ssh directory: %w", err)
		}
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return nil, fmt.Errorf("failed to create known_hosts: %w", err)
		}
	}

	verify, err := knownhosts.New(path)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := verify(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
			return &HostKeyMismatchError{
				Hostname:     hostname,
				ReceivedType: key.Type(),
				KnownHosts:   path,
				Want:         keyErr.Want,
			}
		}
		return err
	}, nil
}
