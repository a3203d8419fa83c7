package app

import (
	"bytes"
	"errors"
	"testing"
)

// fakeTerminal makes readPassphrase return answers in order.
func fakeTerminal(t *testing.T, answers ...string) {
	t.Helper()

	origReader, origIsTerminal := passwordReader, isTerminal
	t.Cleanup(func() {
		passwordReader, isTerminal = origReader, origIsTerminal
	})

	isTerminal = func(int) bool { return true }
	passwordReader = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more input")
		}
		a := answers[0]
		answers = answers[1:]
		return []byte(a), nil
	}
}

func TestPromptPassphrase(t *testing.T) {
	t.Run("environment wins", func(t *testing.T) {
		t.Setenv("PLANTLY_PASSPHRASE", "from-env")
		fakeTerminal(t, "from-terminal")

		got, err := PromptPassphrase(&bytes.Buffer{})()
		if err != nil {
			t.Fatalf("PromptPassphrase() error = %v", err)
		}
		if got != "from-env" {
			t.Errorf("PromptPassphrase() = %q, want from-env", got)
		}
	})

	t.Run("reads terminal", func(t *testing.T) {
		t.Setenv("PLANTLY_PASSPHRASE", "")
		fakeTerminal(t, "from-terminal")

		var prompt bytes.Buffer
		got, err := PromptPassphrase(&prompt)()
		if err != nil {
			t.Fatalf("PromptPassphrase() error = %v", err)
		}
		if got != "from-terminal" {
			t.Errorf("PromptPassphrase() = %q, want from-terminal", got)
		}
		if !bytes.Contains(prompt.Bytes(), []byte("Passphrase:")) {
			t.Errorf("prompt = %q", prompt.String())
		}
	})

	t.Run("no terminal", func(t *testing.T) {
		t.Setenv("PLANTLY_PASSPHRASE", "")
		orig := isTerminal
		t.Cleanup(func() { isTerminal = orig })
		isTerminal = func(int) bool { return false }

		if _, err := PromptPassphrase(&bytes.Buffer{})(); err == nil {
			t.Error("PromptPassphrase() expected error without a terminal")
		}
	})
}

func TestPromptNewPassphrase(t *testing.T) {
	t.Setenv("PLANTLY_PASSPHRASE", "")

	t.Run("matching", func(t *testing.T) {
		fakeTerminal(t, "s3cret", "s3cret")
		got, err := PromptNewPassphrase(&bytes.Buffer{})
		if err != nil {
			t.Fatalf("PromptNewPassphrase() error = %v", err)
		}
		if got != "s3cret" {
			t.Errorf("PromptNewPassphrase() = %q, want s3cret", got)
		}
	})

	t.Run("mismatch", func(t *testing.T) {
		fakeTerminal(t, "one", "two")
		if _, err := PromptNewPassphrase(&bytes.Buffer{}); !errors.Is(err, ErrPassphraseMismatch) {
			t.Errorf("PromptNewPassphrase() error = %v, want ErrPassphraseMismatch", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		fakeTerminal(t, "")
		if _, err := PromptNewPassphrase(&bytes.Buffer{}); err == nil {
			t.Error("PromptNewPassphrase() expected error for empty passphrase")
		}
	})
}
