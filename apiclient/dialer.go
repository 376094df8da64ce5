package apiclient

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/net/proxy"
)

// TransportOptions selects how backend connections are established
type TransportOptions struct {
	ProxyURL       string // socks5://, socks5h://, http:// or https://
	SSHJump        string // user@host[:port]
	SSHKeyPath     string
	SSHPassword    string
	ConnectTimeout time.Duration
}

// Enabled reports whether anything other than a direct connection is requested
func (o TransportOptions) Enabled() bool {
	return o.ProxyURL != "" || o.SSHJump != ""
}

// NewTransport builds an HTTP transport for the options. The returned close
// function releases the SSH connection, if any.
func NewTransport(opts TransportOptions) (*http.Transport, func() error, error) {
	if opts.ProxyURL != "" && opts.SSHJump != "" {
		return nil, nil, errors.New("proxy and ssh jump host are mutually exclusive")
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 15 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	noop := func() error { return nil }

	if opts.ProxyURL != "" {
		u, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		switch u.Scheme {
		case "http", "https":
			transport.Proxy = http.ProxyURL(u)
		case "socks5", "socks5h":
			dialer, err := proxy.FromURL(u, &net.Dialer{Timeout: opts.ConnectTimeout})
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create proxy dialer: %w", err)
			}
			transport.Proxy = nil
			transport.DialContext = contextDialer(dialer)
		default:
			return nil, nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
		}
		return transport, noop, nil
	}

	if opts.SSHJump != "" {
		jump, err := newSSHJumpDialer(opts)
		if err != nil {
			return nil, nil, err
		}
		transport.Proxy = nil
		transport.DialContext = jump.DialContext
		return transport, jump.Close, nil
	}

	return transport, noop, nil
}

func contextDialer(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}

// sshJumpDialer tunnels TCP connections through a single SSH host
type sshJumpDialer struct {
	addr   string
	config *ssh.ClientConfig

	mu     sync.Mutex
	client *ssh.Client
}

// parseJumpHost splits user@host[:port]; the port defaults to 22
func parseJumpHost(spec string) (user, addr string, err error) {
	user, hostPort, ok := strings.Cut(strings.TrimSpace(spec), "@")
	if !ok || user == "" || hostPort == "" {
		return "", "", fmt.Errorf("invalid ssh jump host %q, want user@host[:port]", spec)
	}
	host, port, err := net.SplitHostPort(hostPort)
	if err != nil {
		host, port = hostPort, "22"
	}
	if host == "" {
		return "", "", fmt.Errorf("invalid ssh jump host %q: empty host", spec)
	}
	if p, err := strconv.Atoi(port); err != nil || p < 1 || p > 65535 {
		return "", "", fmt.Errorf("invalid ssh jump port %q", port)
	}
	return user, net.JoinHostPort(host, port), nil
}

func newSSHJumpDialer(opts TransportOptions) (*sshJumpDialer, error) {
	user, addr, err := parseJumpHost(opts.SSHJump)
	if err != nil {
		return nil, err
	}

	cfg := &ssh.ClientConfig{
		User:            user,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         opts.ConnectTimeout,
	}
	if opts.SSHKeyPath != "" {
		keyData, err := os.ReadFile(opts.SSHKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ssh key: %w", err)
		}
		cfg.Auth = append(cfg.Auth, ssh.PublicKeys(signer))
	}
	if opts.SSHPassword != "" {
		cfg.Auth = append(cfg.Auth, ssh.Password(opts.SSHPassword))
	}
	if len(cfg.Auth) == 0 {
		return nil, errors.New("ssh jump host needs a key or a password")
	}

	return &sshJumpDialer{addr: addr, config: cfg}, nil
}

// DialContext opens addr through the jump host, reconnecting once if the
// cached SSH connection has gone away.
func (d *sshJumpDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, err := d.connection(false)
	if err != nil {
		return nil, err
	}
	conn, err := client.Dial(network, addr)
	if err == nil {
		return conn, nil
	}

	log.Printf("SSH tunnel to %s failed (%v), reconnecting jump host %s", addr, err, d.addr)
	client, err = d.connection(true)
	if err != nil {
		return nil, err
	}
	return client.Dial(network, addr)
}

func (d *sshJumpDialer) connection(reset bool) (*ssh.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if reset && d.client != nil {
		d.client.Close()
		d.client = nil
	}
	if d.client != nil {
		return d.client, nil
	}

	client, err := ssh.Dial("tcp", d.addr, d.config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ssh jump host %s: %w", d.addr, err)
	}
	d.client = client
	return client, nil
}

// Close releases the SSH connection
func (d *sshJumpDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}
