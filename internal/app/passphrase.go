package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// passphraseEnv lets scripts supply the passphrase without a terminal.
const passphraseEnv = "PLANTLY_PASSPHRASE"

// ErrPassphraseMismatch is returned when the confirmation does not match.
var ErrPassphraseMismatch = errors.New("passphrases do not match")

// passwordReader reads a line without echo. Replaced in tests.
var passwordReader = func(fd int) ([]byte, error) { return term.ReadPassword(fd) }

// isTerminal reports whether fd is an interactive terminal. Replaced in tests.
var isTerminal = term.IsTerminal

// PromptPassphrase returns a function that reads the passphrase from
// PLANTLY_PASSPHRASE or, failing that, from the terminal without echo.
func PromptPassphrase(prompt io.Writer) func() (string, error) {
	return func() (string, error) {
		if p := os.Getenv(passphraseEnv); p != "" {
			return p, nil
		}
		return readPassphrase(prompt, "Passphrase: ")
	}
}

// PromptNewPassphrase asks for a new passphrase twice and checks they match.
func PromptNewPassphrase(prompt io.Writer) (string, error) {
	if p := os.Getenv(passphraseEnv); p != "" {
		return p, nil
	}

	first, err := readPassphrase(prompt, "New passphrase: ")
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", errors.New("passphrase must not be empty")
	}
	second, err := readPassphrase(prompt, "Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", ErrPassphraseMismatch
	}
	return first, nil
}

func readPassphrase(prompt io.Writer, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal; set %s", passphraseEnv)
	}

	fmt.Fprint(prompt, label)
	pass, err := passwordReader(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}
