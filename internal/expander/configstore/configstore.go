// Package configstore persists the per-session Config: a single sound bank path
// stored as one token in <dir>/config.cfg.
package configstore

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FileName is the name of the config file inside an instance directory.
const FileName = "config.cfg"

// Config is the one persisted setting of an expander instance. It is always
// loaded and saved as a whole.
type Config struct {
	SoundBankPath string
}

// Default returns the Config used when no prior state exists.
func Default(home, appDir string) Config {
	return Config{SoundBankPath: filepath.Join(home, appDir, "default.sfz")}
}

// Path returns the config file path for dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Exists reports whether a config file is present in dir.
func Exists(dir string) bool {
	info, err := os.Stat(Path(dir))
	return err == nil && info.Mode().IsRegular()
}

// Load reads the Config stored in dir. The first whitespace-delimited token of
// the file is the sound bank path; anything after it is ignored and an empty
// file yields an empty path.
func Load(dir string) (Config, error) {
	f, err := os.Open(Path(dir))
	if err != nil {
		return Config{}, ErrFileOpen.MsgErr("unable to open config for reading", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Split(bufio.ScanWords)
	if scanner.Scan() {
		return Config{SoundBankPath: scanner.Text()}, nil
	}
	if err := scanner.Err(); err != nil {
		return Config{}, ErrFileRead.Err(err)
	}
	return Config{}, nil
}

// Save writes cfg to dir, creating dir when needed. The file is written next to
// its final location and renamed over it, so a reader sees either the old or the
// new content, never a partial file.
func Save(cfg Config, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ErrDirectoryCreation.Err(err)
	}

	tmp, err := os.CreateTemp(dir, "."+FileName+".*")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrDirectoryCreation.Err(err)
		}
		return ErrFileOpen.MsgErr("unable to open config for writing", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(cfg.SoundBankPath + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return ErrFileWrite.Err(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return ErrFileWrite.Err(err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return ErrFileWrite.Err(err)
	}
	if err := os.Rename(tmpName, Path(dir)); err != nil {
		os.Remove(tmpName)
		return ErrFileOpen.MsgErr("unable to replace config", err)
	}
	return nil
}
