package ginsync

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// BasicAuth creates HTTP basic authentication. GIN and other Gogs-style
// servers accept a username with either a password or a personal access
// token here.
//
// Example:
//
//	auth := ginsync.BasicAuth("myuser", os.Getenv("GIN_TOKEN"))
func BasicAuth(username, password string) Auth {
	return &http.BasicAuth{
		Username: username,
		Password: password,
	}
}

// TokenAuth creates HTTP bearer-token authentication for servers that expect
// the token in an Authorization header rather than as a basic-auth password.
func TokenAuth(token string) Auth {
	return &http.TokenAuth{Token: token}
}

// SSHKeyOption configures SSH key authentication.
type SSHKeyOption func(*sshKeyOptions)

type sshKeyOptions struct {
	password string
}

// WithSSHPassword sets the passphrase for encrypted SSH keys.
func WithSSHPassword(password string) SSHKeyOption {
	return func(opts *sshKeyOptions) {
		opts.password = password
	}
}

// SSHKeyAuth creates SSH authentication from PEM-encoded key bytes. The user
// is typically "git" for hosted services.
//
// Example:
//
//	keyBytes, _ := os.ReadFile("/home/ci/.ssh/id_ed25519")
//	auth, err := ginsync.SSHKeyAuth("git", keyBytes)
func SSHKeyAuth(user string, pemBytes []byte, opts ...SSHKeyOption) (Auth, error) {
	options := &sshKeyOptions{}
	for _, opt := range opts {
		opt(options)
	}

	keys, err := ssh.NewPublicKeys(user, pemBytes, options.password)
	if err != nil {
		return nil, fmt.Errorf("parsing SSH key: %w", err)
	}
	return keys, nil
}

// SSHKeyFile creates SSH authentication by reading a key from a file.
func SSHKeyFile(user, keyPath string, opts ...SSHKeyOption) (Auth, error) {
	pemBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading SSH key file %q: %w", keyPath, err)
	}
	return SSHKeyAuth(user, pemBytes, opts...)
}

// Compile-time check that go-git credentials satisfy Auth.
var _ Auth = (transport.AuthMethod)(nil)
