package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks for missing credentials on a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	// readSecret reads a line without echo. Nil reads a plain line.
	readSecret func() (string, error)
}

// NewPrompter prompts on out and reads from in. When in is a terminal the
// password is read without echo.
func NewPrompter(in *os.File, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out}
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		p.readSecret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			return string(b), err
		}
	}
	return p
}

// Complete fills the empty fields of creds.
func (p *Prompter) Complete(creds Credentials) (Credentials, error) {
	if creds.Username == "" {
		fmt.Fprint(p.out, "Username: ")
		u, err := p.readLine()
		if err != nil {
			return creds, fmt.Errorf("failed to read username: %w", err)
		}
		creds.Username = u
	}
	if creds.Password == "" {
		fmt.Fprint(p.out, "Password: ")
		read := p.readLine
		if p.readSecret != nil {
			read = p.readSecret
		}
		pw, err := read()
		if err != nil {
			return creds, fmt.Errorf("failed to read password: %w", err)
		}
		creds.Password = pw
	}
	if !creds.Complete() {
		return creds, ErrMissingCredentials
	}
	return creds, nil
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Options selects how the authorization header is obtained.
type Options struct {
	// Bypass skips authentication for MDR instances without it.
	Bypass      bool
	Grant       PasswordGrant
	Credentials Credentials
	// Prompter completes missing credentials. Nil makes them an error.
	Prompter *Prompter
}

// Resolve returns the headers to attach to every MDR request.
func Resolve(ctx context.Context, opts Options) (http.Header, error) {
	if opts.Bypass {
		return http.Header{}, nil
	}

	creds := opts.Credentials
	if !creds.Complete() {
		if opts.Prompter == nil {
			return nil, ErrMissingCredentials
		}
		var err error
		if creds, err = opts.Prompter.Complete(creds); err != nil {
			return nil, err
		}
	}
	return opts.Grant.Header(ctx, creds)
}
