package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// EnvPassphrase supplies the catalog passphrase non-interactively.
const EnvPassphrase = "FV_PASSPHRASE"

var (
	ErrEmptyPassphrase    = errors.New("passphrase must not be empty")
	ErrPassphraseMismatch = errors.New("passphrases do not match")
)

// ReadPassphrase returns the catalog passphrase. FV_PASSPHRASE wins when set;
// otherwise the user is prompted on stderr, without echo when stdin is a
// terminal. With confirm the passphrase is asked for twice.
func ReadPassphrase(prompt string, confirm bool) (string, error) {
	if p := os.Getenv(EnvPassphrase); p != "" {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		return promptPassphrase(os.Stderr, prompt, confirm, func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr)
			return string(b), err
		})
	}

	in := bufio.NewReader(os.Stdin)
	return promptPassphrase(os.Stderr, prompt, confirm, func() (string, error) {
		return readLine(in)
	})
}

func promptPassphrase(out io.Writer, prompt string, confirm bool, read func() (string, error)) (string, error) {
	fmt.Fprint(out, prompt)
	pass, err := read()
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if pass == "" {
		return "", ErrEmptyPassphrase
	}

	if confirm {
		fmt.Fprint(out, "Confirm passphrase: ")
		again, err := read()
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		if again != pass {
			return "", ErrPassphraseMismatch
		}
	}
	return pass, nil
}

// readLine reads one line without its line ending. A final line without a
// newline is accepted.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
