package vault

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore is the persisted line file. Line 0 is the main key hash; each
// following line is one JSON-encoded record. Records are stored in plain
// text.
type FileStore struct {
	Path string
}

func (fs *FileStore) Exists() bool {
	_, err := os.Stat(fs.Path)
	return err == nil
}

// ReadLines returns ErrStoreNotFound when the file is absent. An existing
// empty file yields no lines.
func (fs *FileStore) ReadLines() ([]string, error) {
	raw, err := os.ReadFile(fs.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, fs.Path)
		}
		return nil, err
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	// blank trailing lines carry nothing
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

// Create writes a new store holding only the hash of mainKey. mainKey is
// wiped.
func (fs *FileStore) Create(mainKey []byte, params KDFParams) error {
	defer zero(mainKey)
	if fs.Exists() {
		return fmt.Errorf("%w: %s", ErrStoreExists, fs.Path)
	}
	hash, err := HashWithParams(mainKey, params)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fs.Path), 0700); err != nil {
		return err
	}
	return fs.WriteLines([]string{hash})
}

func (fs *FileStore) WriteLines(lines []string) error {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return atomicWriteFile(fs.Path, buf.Bytes(), FileMode)
}

// recordLine is the JSON form of a record. Text fields are raw bytes so
// values that are not valid UTF-8 survive encoding.
type recordLine struct {
	ID                string    `json:"id"`
	Title             []byte    `json:"title"`
	Username          []byte    `json:"username"`
	Email             []byte    `json:"email"`
	Password          []byte    `json:"password"`
	URL               []byte    `json:"url"`
	Notes             [][]byte  `json:"notes"`
	CreatedAt         time.Time `json:"created_at"`
	PasswordUpdatedAt time.Time `json:"password_updated_at"`
}

func encodeRecord(r *Record) (string, error) {
	notes := r.Notes()
	line := recordLine{
		ID:                r.ID(),
		Title:             []byte(r.Title()),
		Username:          []byte(r.Username()),
		Email:             []byte(r.Email()),
		Password:          []byte(r.Password()),
		URL:               []byte(r.URL()),
		Notes:             make([][]byte, len(notes)),
		CreatedAt:         r.CreatedAt(),
		PasswordUpdatedAt: r.PasswordUpdatedAt(),
	}
	for i, n := range notes {
		line.Notes[i] = []byte(n)
	}
	defer line.wipe()
	b, err := json.Marshal(line)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeRecord(s string) (*Record, error) {
	var line recordLine
	if err := json.Unmarshal([]byte(s), &line); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer line.wipe()
	if line.ID == "" {
		return nil, fmt.Errorf("%w: record without id", ErrCorrupt)
	}
	notes := make([]string, len(line.Notes))
	for i, n := range line.Notes {
		notes[i] = string(n)
	}
	return &Record{
		id:                line.ID,
		title:             NewSecret(string(line.Title)),
		username:          NewSecret(string(line.Username)),
		email:             NewSecret(string(line.Email)),
		password:          NewSecret(string(line.Password)),
		url:               NewSecret(string(line.URL)),
		notes:             sealAll(notes),
		createdAt:         line.CreatedAt,
		passwordUpdatedAt: line.PasswordUpdatedAt,
	}, nil
}

func (l *recordLine) wipe() {
	for _, b := range [][]byte{l.Title, l.Username, l.Email, l.Password, l.URL} {
		zero(b)
	}
	for _, n := range l.Notes {
		zero(n)
	}
}

// decodeIndex builds an Index from the record lines (line 1 onward).
func decodeIndex(lines []string) (*Index, error) {
	ix := NewIndex()
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		r, err := decodeRecord(l)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if err := ix.load(r); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	return ix, nil
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "passvault-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	_ = syncDir(dir)
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
