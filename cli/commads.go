package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/fahmaliyi/passvault/vault"
)

// Shell is the line-oriented command loop.
type Shell struct {
	Vault          *vault.Vault
	In             *bufio.Reader
	Out            io.Writer
	ReadSecret     SecretReader
	ClipboardClear time.Duration
	// Copy writes to the system clipboard; tests replace it.
	Copy func(string) error

	ids map[int]string
}

func NewShell(v *vault.Vault, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		Vault:          v,
		In:             bufio.NewReader(in),
		Out:            out,
		ReadSecret:     ReadPasswordMasked,
		ClipboardClear: 30 * time.Second,
		Copy:           clipboard.WriteAll,
	}
}

const shellHelp = "\nCommands: a=add, l=list, s N=show, r N=reveal, c N=copy, e N FIELD=edit, d N=delete, q=quit"

var editableFields = []string{"title", "username", "email", "password", "url", "notes"}

func (s *Shell) Run() {
	for {
		fmt.Fprintln(s.Out, shellHelp)
		fmt.Fprint(s.Out, "> ")

		line, err := s.In.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if err != nil {
				return
			}
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "a":
			s.handleAdd()
			s.ids = nil
		case "l":
			s.handleList()
		case "s", "r", "c", "d", "e":
			if len(parts) < 2 {
				fmt.Fprintln(s.Out, "Specify item number")
				continue
			}
			r := s.lookup(parts[1])
			if r == nil {
				fmt.Fprintln(s.Out, "Invalid item number")
				continue
			}
			switch cmd {
			case "s":
				s.handleShow(r, false)
			case "r":
				s.handleShow(r, true)
			case "c":
				s.handleCopy(r)
			case "d":
				s.handleDelete(r)
			case "e":
				if len(parts) < 3 {
					fmt.Fprintf(s.Out, "Specify field: %s\n", strings.Join(editableFields, ", "))
					continue
				}
				s.handleEdit(r, parts[2])
			}
		case "q":
			fmt.Fprintln(s.Out, "Exiting.")
			return
		default:
			fmt.Fprintln(s.Out, "Unknown command")
		}
	}
}

// lookup resolves a list number. Records are fetched by ID so a handle
// replaced by an identity change still resolves to the live record.
func (s *Shell) lookup(arg string) *vault.Record {
	num, err := strconv.Atoi(arg)
	if err != nil {
		return nil
	}
	id, ok := s.ids[num]
	if !ok {
		return nil
	}
	return s.Vault.Get(id)
}

func (s *Shell) prompt(label string) string {
	fmt.Fprint(s.Out, label)
	line, _ := s.In.ReadString('\n')
	return strings.TrimSpace(line)
}

// promptNotes reads lines until an empty one.
func (s *Shell) promptNotes() []string {
	fmt.Fprintln(s.Out, "Notes (one per line, empty line to finish):")
	notes := []string{}
	for {
		line, err := s.In.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return notes
		}
		notes = append(notes, line)
		if err != nil {
			return notes
		}
	}
}

func (s *Shell) report(res vault.Result, ok string) bool {
	switch res {
	case vault.Success:
		if err := s.Vault.Save(); err != nil {
			fmt.Fprintln(s.Out, "Error saving vault:", err)
			return false
		}
		fmt.Fprintln(s.Out, ok)
		return true
	case vault.KeyMismatch:
		fmt.Fprintln(s.Out, "Main key mismatch, nothing changed.")
	case vault.Collision:
		fmt.Fprintln(s.Out, "An entry with this title and username already exists.")
	}
	return false
}

// --- Individual command handlers ---

func (s *Shell) handleAdd() {
	title := s.prompt("Title: ")
	username := s.prompt("Username: ")
	email := s.prompt("Email: ")
	secret := s.ReadSecret("Password: ")
	defer vault.Zero(secret)
	url := s.prompt("URL: ")
	notes := s.promptNotes()

	_, res := s.Vault.Add(title, username, email, string(secret), url, notes)
	s.report(res, "Entry added!")
}

func (s *Shell) handleList() {
	entries := s.Vault.List()
	fmt.Fprintln(s.Out, "Vault entries:")
	s.ids = make(map[int]string, len(entries))
	for i, e := range entries {
		num := i + 1
		s.ids[num] = e.ID()
		fmt.Fprintf(s.Out, "%d) Title: %s | Username: %s\n", num, e.Title(), e.Username())
	}
}

func (s *Shell) handleShow(e *vault.Record, reveal bool) {
	password := "********"
	if reveal {
		password = e.Password()
	}
	fmt.Fprintf(s.Out, "Title: %s\nUsername: %s\nEmail: %s\nPassword: %s\nURL: %s\nNotes: %s\nCreated: %s\nPassword age: %s\n",
		e.Title(), e.Username(), e.Email(), password, e.URL(),
		strings.Join(e.Notes(), " / "),
		e.CreatedAt().Format(time.DateTime),
		e.TimeSincePasswordUpdate().Round(time.Second))
}

func (s *Shell) handleCopy(e *vault.Record) {
	if err := s.Copy(e.Password()); err != nil {
		fmt.Fprintln(s.Out, "Error copying to clipboard:", err)
		return
	}
	fmt.Fprintf(s.Out, "Password copied to clipboard. Clearing in %s...\n", s.ClipboardClear)
	time.AfterFunc(s.ClipboardClear, func() {
		_ = s.Copy("")
	})
}

func (s *Shell) handleEdit(e *vault.Record, field string) {
	auth := s.Vault.Session()
	var res vault.Result
	switch field {
	case "title":
		res = e.SetTitle(auth, s.prompt("New title: "))
	case "username":
		res = e.SetUsername(auth, s.prompt("New username: "))
	case "email":
		res = e.SetEmail(auth, s.prompt("New email: "))
	case "url":
		res = e.SetURL(auth, s.prompt("New URL: "))
	case "notes":
		res = e.SetNotes(auth, s.promptNotes())
	case "password":
		secret := s.ReadSecret("New password: ")
		res = e.SetPassword(auth, string(secret))
		vault.Zero(secret)
	default:
		fmt.Fprintf(s.Out, "Unknown field %q, expected one of: %s\n", field, strings.Join(editableFields, ", "))
		return
	}
	s.report(res, "Entry updated!")
}

func (s *Shell) handleDelete(e *vault.Record) {
	res, err := s.Vault.Remove(e.ID())
	if err != nil {
		fmt.Fprintln(s.Out, "Error deleting entry:", err)
		return
	}
	if s.report(res, "Entry deleted!") {
		s.ids = nil
	}
}

// RunCommands runs the shell on stdin and stdout.
func RunCommands(v *vault.Vault, in io.Reader, out io.Writer, clear time.Duration) {
	s := NewShell(v, in, out)
	s.ClipboardClear = clear
	s.Run()
}
