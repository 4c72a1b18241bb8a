package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/fahmaliyi/passvault/vault"
	"golang.org/x/term"
)

// SecretReader prompts for a value that must not be echoed.
type SecretReader func(prompt string) []byte

func ReadPassword(prompt string) ([]byte, error) {
	fmt.Print(prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()

	return pw, err
}

// ReadPasswordMasked echoes '*' per character. It falls back to
// term.ReadPassword when stdin is not a terminal.
func ReadPasswordMasked(prompt string) []byte {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		pw, _ := ReadPassword(prompt)
		if pw == nil {
			pw = []byte{}
		}
		return pw
	}
	fmt.Print(prompt)
	state, err := term.MakeRaw(fd)
	if err == nil {
		defer term.Restore(fd, state)
	}

	input := []byte{}
	var pending []byte
	for {
		var buf [1]byte
		if n, err := os.Stdin.Read(buf[:]); err != nil || n == 0 {
			fmt.Print("\r\n")
			return input
		}
		c := buf[0]

		switch c {
		case 13, 10: // Enter
			fmt.Print("\r\n")
			return input
		case 3: // Ctrl+C
			vault.Zero(input)
			fmt.Print("\r\n")
			return []byte{}
		case 127, 8: // Backspace
			if len(input) > 0 {
				_, size := utf8.DecodeLastRune(input)
				input = input[:len(input)-size]
				fmt.Print("\b \b")
			}
		default:
			pending = append(pending, c)
			if utf8.FullRune(pending) {
				input = append(input, pending...)
				pending = pending[:0]
				fmt.Print("*")
			}
		}
	}
}

var errKeysDiffer = errors.New("main keys do not match")

// ReadNewMainKey asks for a new main key twice.
func ReadNewMainKey(read SecretReader) ([]byte, error) {
	first := read("New main key: ")
	second := read("Repeat main key: ")
	defer vault.Zero(second)
	if len(first) == 0 {
		return nil, errors.New("main key must not be empty")
	}
	if !bytes.Equal(first, second) {
		vault.Zero(first)
		return nil, errKeysDiffer
	}
	return first, nil
}

// Login opens the vault at path, prompting until the key validates or
// attempts run out.
func Login(path string, read SecretReader, attempts int, opts ...vault.Option) (*vault.Vault, error) {
	for i := 0; i < attempts; i++ {
		v, err := vault.Open(path, read("Main key: "), opts...)
		if err != nil {
			return nil, err
		}
		if v.Session().IsValid() {
			return v, nil
		}
		fmt.Println("Main key does not match.")
	}
	return nil, vault.ErrAuthFailed
}
