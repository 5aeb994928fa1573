package probe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/LiXi-storage/clownfish/pkg/types"
	"golang.org/x/crypto/ssh"
)

// DefaultSSHTimeout bounds how long a single ssh dial may take.
const DefaultSSHTimeout = 30 * time.Second

const defaultSSHUser = "root"
const defaultSSHPort = "22"

// SSHRemoteExec is the production RemoteExec implementation: one fresh ssh
// connection per call, authenticating with the target Host's CredPath (a
// private key file) or "$HOME/.ssh/id_rsa" when CredPath is empty. It also
// implements pkg/ha's FileCopier interface, so the daemon entrypoint can
// hand the same value to both pkg/probe and pkg/ha.
type SSHRemoteExec struct {
	Topo    *types.Topology
	User    string
	Timeout time.Duration
}

// NewSSHRemoteExec builds an SSHRemoteExec resolving hosts against topo.
func NewSSHRemoteExec(topo *types.Topology, user string) *SSHRemoteExec {
	if user == "" {
		user = defaultSSHUser
	}
	return &SSHRemoteExec{Topo: topo, User: user, Timeout: DefaultSSHTimeout}
}

func (s *SSHRemoteExec) dial(host string) (*ssh.Client, error) {
	h, ok := s.Topo.Hosts[host]
	if !ok {
		return nil, fmt.Errorf("probe: host %q not found in topology", host)
	}

	signer, err := loadSigner(h.CredPath)
	if err != nil {
		return nil, fmt.Errorf("probe: loading ssh credential for %s: %w", host, err)
	}

	cfg := &ssh.ClientConfig{
		User:            s.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         s.Timeout,
	}
	return ssh.Dial("tcp", h.Hostname+":"+defaultSSHPort, cfg)
}

func loadSigner(credPath string) (ssh.Signer, error) {
	if credPath == "" {
		credPath = os.ExpandEnv("$HOME/.ssh/id_rsa")
	}
	key, err := os.ReadFile(credPath)
	if err != nil {
		return nil, err
	}
	return ssh.ParsePrivateKey(key)
}

// Run executes argv on host over ssh, returning its captured stdout/stderr
// and exit code.
func (s *SSHRemoteExec) Run(ctx context.Context, host string, argv []string) (string, string, int, error) {
	client, err := s.dial(host)
	if err != nil {
		return "", "", -1, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", "", -1, err
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(shellJoin(argv)) }()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return stdout.String(), stderr.String(), -1, ctx.Err()
	case err := <-done:
		if err == nil {
			return stdout.String(), stderr.String(), 0, nil
		}
		if exitErr, ok := err.(*ssh.ExitError); ok {
			return stdout.String(), stderr.String(), exitErr.ExitStatus(), nil
		}
		return stdout.String(), stderr.String(), -1, err
	}
}

// WriteFile implements ha.FileCopier by piping data into "cat > remotePath"
// over a fresh ssh session.
func (s *SSHRemoteExec) WriteFile(ctx context.Context, host, remotePath string, data []byte) error {
	client, err := s.dial(host)
	if err != nil {
		return err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()

	session.Stdin = bytes.NewReader(data)
	if err := session.Run("cat > " + shellQuote(remotePath)); err != nil {
		return fmt.Errorf("probe: writing %s on %s: %w", remotePath, host, err)
	}
	return nil
}

// CopyBetweenHosts implements ha.FileCopier by reading fromPath off
// fromHost and writing it to toHost: a relay through the coordinating
// process rather than a direct host-to-host scp, since fromHost and toHost
// share no prior trust relationship with each other.
func (s *SSHRemoteExec) CopyBetweenHosts(ctx context.Context, fromHost, fromPath, toHost, toPath string) error {
	data, stderr, exitCode, err := s.Run(ctx, fromHost, []string{"cat", fromPath})
	if err != nil {
		return fmt.Errorf("probe: reading %s from %s: %w", fromPath, fromHost, err)
	}
	if exitCode != 0 {
		return fmt.Errorf("probe: reading %s from %s (exit %d): %s", fromPath, fromHost, exitCode, stderr)
	}
	return s.WriteFile(ctx, toHost, toPath, []byte(data))
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func shellJoin(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = shellQuote(a)
	}
	return strings.Join(parts, " ")
}
