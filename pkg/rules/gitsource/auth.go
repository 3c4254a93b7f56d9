package gitsource

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"mercator-hq/pricelist/pkg/config"
)

// AuthProvider supplies git transport credentials.
type AuthProvider interface {
	// GetAuth returns the transport auth method; nil means anonymous.
	GetAuth() (transport.AuthMethod, error)

	// Type returns the auth type for logging.
	Type() string
}

// TokenAuth authenticates over HTTPS with an access token.
type TokenAuth struct {
	token string
}

// NewTokenAuth creates token authentication.
func NewTokenAuth(token string) *TokenAuth {
	return &TokenAuth{token: token}
}

// GetAuth returns HTTP basic auth with the token as password.
func (a *TokenAuth) GetAuth() (transport.AuthMethod, error) {
	if a.token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}
	return &http.BasicAuth{
		Username: "git",
		Password: a.token,
	}, nil
}

// Type returns "token".
func (a *TokenAuth) Type() string {
	return "token"
}

// SSHAuth authenticates with a private key file.
type SSHAuth struct {
	keyPath    string
	passphrase string
}

// NewSSHAuth creates ssh key authentication.
func NewSSHAuth(keyPath, passphrase string) *SSHAuth {
	return &SSHAuth{
		keyPath:    keyPath,
		passphrase: passphrase,
	}
}

// GetAuth loads the key. Keys readable by group or others are refused.
func (a *SSHAuth) GetAuth() (transport.AuthMethod, error) {
	if a.keyPath == "" {
		return nil, fmt.Errorf("ssh key path cannot be empty")
	}

	info, err := os.Stat(a.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access SSH key file: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", mode)
	}

	auth, err := ssh.NewPublicKeysFromFile("git", a.keyPath, a.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}
	return auth, nil
}

// Type returns "ssh".
func (a *SSHAuth) Type() string {
	return "ssh"
}

// NoAuth is used for public repositories and local paths.
type NoAuth struct{}

// GetAuth returns nil.
func (NoAuth) GetAuth() (transport.AuthMethod, error) {
	return nil, nil
}

// Type returns "none".
func (NoAuth) Type() string {
	return "none"
}

// NewAuthProvider builds the provider named by cfg.Type. Secrets are read
// from the environment variables the config names.
func NewAuthProvider(cfg *config.GitAuthConfig) (AuthProvider, error) {
	if cfg == nil {
		return NoAuth{}, nil
	}

	switch cfg.Type {
	case "token":
		if cfg.TokenEnv == "" {
			return nil, fmt.Errorf("token auth requires token_env")
		}
		token := os.Getenv(cfg.TokenEnv)
		if token == "" {
			return nil, fmt.Errorf("token auth: environment variable %s is empty", cfg.TokenEnv)
		}
		return NewTokenAuth(token), nil

	case "ssh":
		if cfg.SSHKeyPath == "" {
			return nil, fmt.Errorf("ssh auth requires ssh_key_path")
		}
		var passphrase string
		if cfg.SSHKeyPassphraseEnv != "" {
			passphrase = os.Getenv(cfg.SSHKeyPassphraseEnv)
		}
		return NewSSHAuth(cfg.SSHKeyPath, passphrase), nil

	case "none", "":
		return NoAuth{}, nil

	default:
		return nil, fmt.Errorf("unknown auth type: %s", cfg.Type)
	}
}
