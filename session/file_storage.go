package session

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"

	"github.com/krancour/cloudbalance/pkg/file"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// FileStorage is a Storage backed by a single JSON document on disk. Saves
// write a temporary file next to the target and rename it into place, so
// readers only ever observe a complete session or none.
type FileStorage struct {
	path string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{
		path: path,
	}
}

// DefaultFilePath returns ~/.cloudbalance/session.
func DefaultFilePath() (string, error) {
	homeDir, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "error finding user's home directory")
	}
	return path.Join(homeDir, ".cloudbalance", "session"), nil
}

func (f *FileStorage) Path() string {
	return f.path
}

func (f *FileStorage) Load(context.Context) (Snapshot, error) {
	if !file.Exists(f.path) {
		return Snapshot{}, nil
	}
	sessionBytes, err := ioutil.ReadFile(f.path)
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "error reading session file %s", f.path)
	}
	entries := map[string]string{}
	if err := json.Unmarshal(sessionBytes, &entries); err != nil {
		return Snapshot{}, errors.Wrapf(
			err,
			"error unmarshaling session file %s",
			f.path,
		)
	}
	return SnapshotFromEntries(entries)
}

func (f *FileStorage) Save(ctx context.Context, snap Snapshot) error {
	if snap.Empty() {
		return f.Clear(ctx)
	}
	entries, err := snap.Entries()
	if err != nil {
		return err
	}
	sessionBytes, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "error marshaling session")
	}
	dir := filepath.Dir(f.path)
	if err = file.EnsureDirectory(dir); err != nil {
		return errors.Wrapf(err, "error creating directory %s", dir)
	}
	tmp, err := ioutil.TempFile(dir, ".session-")
	if err != nil {
		return errors.Wrapf(err, "error creating temporary file in %s", dir)
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(sessionBytes); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "error writing %s", tmp.Name())
	}
	if err = tmp.Chmod(0600); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "error setting permissions on %s", tmp.Name())
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "error closing %s", tmp.Name())
	}
	return errors.Wrapf(
		os.Rename(tmp.Name(), f.path),
		"error moving session into place at %s",
		f.path,
	)
}

func (f *FileStorage) Clear(context.Context) error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "error deleting session file %s", f.path)
	}
	return nil
}
