package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
)

type prompter struct {
	in  *bufio.Reader
	out io.Writer

	// readSecret reads one line without echo. Nil when input is not a terminal.
	readSecret func() ([]byte, error)
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(f.Fd()) {
		p.readSecret = func() ([]byte, error) {
			return term.ReadPassword(f.Fd())
		}
	}
	return p
}

// ask returns current unchanged when it is set, otherwise the next input line.
func (p *prompter) ask(label, current string) (string, error) {
	if current != "" {
		return current, nil
	}
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading %s: %w", label, err)
	}
	return strings.TrimSpace(line), nil
}

// askSecret is ask without echoing the answer when reading from a terminal.
func (p *prompter) askSecret(label, current string) (string, error) {
	if current != "" || p.readSecret == nil {
		return p.ask(label, current)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	secret, err := p.readSecret()
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", label, err)
	}
	return strings.TrimSpace(string(secret)), nil
}

func (p *prompter) confirm(label string) (bool, error) {
	answer, err := p.ask(label+" [y/N]", "")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// prompt fills the options the user left empty. Blank start and end dates
// keep the full range.
func (a *app) prompt() error {
	p := newPrompter(a.stdin, a.stderr)
	opts := a.opts

	var err error
	if opts.user, err = p.ask("Username", opts.user); err != nil {
		return err
	}
	if opts.key, err = p.askSecret("Access key", opts.key); err != nil {
		return err
	}
	if opts.start, err = p.ask("Start date (YYYY-MM-DD, blank for all)", opts.start); err != nil {
		return err
	}
	if opts.end, err = p.ask("End date (YYYY-MM-DD, blank for all)", opts.end); err != nil {
		return err
	}
	if opts.csv == "" && !opts.save {
		if opts.save, err = p.confirm("Save report as CSV?"); err != nil {
			return err
		}
	}
	return nil
}
