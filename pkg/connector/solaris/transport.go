package solaris

import (
	"context"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	expect "github.com/google/goexpect"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/ajitpratap0/idbridge/pkg/config"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

// Expecter is an interactive terminal session on the managed host
type Expecter interface {
	Send(in string) error
	Expect(re *regexp.Regexp, timeout time.Duration) (string, []string, error)
	Close() error
}

// Credentials identify the account a session logs in as
type Credentials struct {
	User       string
	Password   string
	PrivateKey string
	Passphrase string
}

// Dialer opens interactive sessions on the managed host
type Dialer interface {
	Dial(ctx context.Context, creds Credentials) (Expecter, error)
}

// sshDialer opens a pty-backed shell over SSH and drives it with goexpect
type sshDialer struct {
	addr     string
	hostKeys ssh.HostKeyCallback
	timeout  time.Duration
}

func newSSHDialer(cfg *config.SolarisConfig, logger *zap.Logger) (*sshDialer, error) {
	d := &sshDialer{
		addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		timeout: cfg.Timeouts.Connection,
	}
	if cfg.KnownHostsFile != "" {
		cb, err := knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load known_hosts_file").
				WithDetail("known_hosts_file", cfg.KnownHostsFile)
		}
		d.hostKeys = cb
	} else {
		logger.Warn("known_hosts_file is not set, SSH host keys will not be verified",
			zap.String("host", cfg.Host))
		d.hostKeys = ssh.InsecureIgnoreHostKey()
	}
	return d, nil
}

func (d *sshDialer) Dial(ctx context.Context, creds Credentials) (Expecter, error) {
	auth, err := authMethods(creds)
	if err != nil {
		return nil, err
	}

	nd := net.Dialer{Timeout: d.timeout}
	conn, err := nd.DialContext(ctx, "tcp", d.addr)
	if err != nil {
		return nil, connectError(err, d.addr)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	cc, chans, reqs, err := ssh.NewClientConn(conn, d.addr, &ssh.ClientConfig{
		User:            creds.User,
		Auth:            auth,
		HostKeyCallback: d.hostKeys,
		Timeout:         d.timeout,
	})
	if err != nil {
		conn.Close()
		if strings.Contains(err.Error(), "unable to authenticate") {
			return nil, errors.Wrap(err, errors.ErrorTypeAuthentication, "SSH authentication failed").
				WithDetail("user", creds.User)
		}
		return nil, connectError(err, d.addr)
	}
	_ = conn.SetDeadline(time.Time{})

	client := ssh.NewClient(cc, chans, reqs)
	// PartialMatch keeps output after a match buffered, so the prompt that
	// follows ERRORCODE= is still there for the next Expect
	exp, _, err := expect.SpawnSSH(client, d.timeout, expect.PartialMatch(true))
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to start remote shell")
	}
	return &sshSession{GExpect: exp, client: client}, nil
}

func authMethods(creds Credentials) ([]ssh.AuthMethod, error) {
	if creds.PrivateKey != "" {
		var (
			signer ssh.Signer
			err    error
		)
		if creds.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase([]byte(creds.PrivateKey), []byte(creds.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey([]byte(creds.PrivateKey))
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse private_key")
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}

	password := creds.Password
	return []ssh.AuthMethod{
		ssh.Password(password),
		ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = password
			}
			return answers, nil
		}),
	}, nil
}

func connectError(err error, addr string) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return errors.Wrap(err, errors.ErrorTypeTimeout, "SSH connection timed out").WithDetail("addr", addr)
	}
	return errors.Wrap(err, errors.ErrorTypeConnection, "SSH connection failed").WithDetail("addr", addr)
}

// sshSession closes the SSH client together with the expect session
type sshSession struct {
	*expect.GExpect
	client *ssh.Client
}

func (s *sshSession) Close() error {
	return multierr.Combine(s.GExpect.Close(), s.client.Close())
}
