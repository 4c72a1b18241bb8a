package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const RemoteFileName = "passvault.txt"

// GoogleDriveSync keeps one copy of the store file in the user's Drive.
// Credentials and the OAuth2 token are read from Dir.
type GoogleDriveSync struct {
	Dir     string
	Timeout time.Duration

	token *oauth2.Token
}

func (g *GoogleDriveSync) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(filepath.Join(g.Dir, "token.json"))
	if err != nil {
		return nil, fmt.Errorf("read drive token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("parse drive token: %w", err)
	}
	return &token, nil
}

func (g *GoogleDriveSync) service(ctx context.Context) (*drive.Service, error) {
	if g.token == nil {
		tok, err := g.loadToken()
		if err != nil {
			return nil, err
		}
		g.token = tok
	}
	b, err := os.ReadFile(filepath.Join(g.Dir, "credentials.json"))
	if err != nil {
		return nil, fmt.Errorf("read drive credentials: %w", err)
	}
	config, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("parse drive credentials: %w", err)
	}
	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx, g.token)))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return srv, nil
}

func (g *GoogleDriveSync) remoteID(ctx context.Context, srv *drive.Service) (string, error) {
	r, err := srv.Files.List().
		Q(fmt.Sprintf("name='%s' and trashed=false", RemoteFileName)).
		Fields("files(id)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("query drive: %w", err)
	}
	if len(r.Files) == 0 {
		return "", nil
	}
	return r.Files[0].Id, nil
}

func (g *GoogleDriveSync) withTimeout() (context.Context, context.CancelFunc) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return context.WithTimeout(context.Background(), timeout)
}

// Pull replaces the file at storePath with the remote copy.
func (g *GoogleDriveSync) Pull(storePath string) error {
	ctx, cancel := g.withTimeout()
	defer cancel()

	srv, err := g.service(ctx)
	if err != nil {
		return err
	}
	id, err := g.remoteID(ctx, srv)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("no remote store named %s on drive", RemoteFileName)
	}
	resp, err := srv.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("download store: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read downloaded store: %w", err)
	}
	return atomicWriteFile(storePath, data, FileMode)
}

// Push uploads the file at storePath, creating the remote copy if needed.
func (g *GoogleDriveSync) Push(storePath string) error {
	ctx, cancel := g.withTimeout()
	defer cancel()

	srv, err := g.service(ctx)
	if err != nil {
		return err
	}
	id, err := g.remoteID(ctx, srv)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(storePath)
	if err != nil {
		return fmt.Errorf("read local store: %w", err)
	}

	if id == "" {
		f := &drive.File{Name: RemoteFileName}
		if _, err := srv.Files.Create(f).Media(bytes.NewReader(data)).Context(ctx).Do(); err != nil {
			return fmt.Errorf("upload store: %w", err)
		}
		return nil
	}
	if _, err := srv.Files.Update(id, nil).Media(bytes.NewReader(data)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update store: %w", err)
	}
	return nil
}
