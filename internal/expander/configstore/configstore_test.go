package configstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	paths := []string{
		"/usr/share/sfz/piano.sfz",
		"relative/bank.sfz",
		"/home/zoë/音色/ピアノ.sfz",
		"/tmp/Ωmega-bank_v2.sfz",
		"",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "inst")
			cfg := Config{SoundBankPath: p}
			require.NoError(t, Save(cfg, dir))
			loaded, err := Load(dir)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	cfg := Config{SoundBankPath: "/banks/strings.sfz"}

	once := filepath.Join(t.TempDir(), "once")
	require.NoError(t, Save(cfg, once))
	twice := filepath.Join(t.TempDir(), "twice")
	require.NoError(t, Save(cfg, twice))
	require.NoError(t, Save(cfg, twice))

	a, err := Load(once)
	require.NoError(t, err)
	b, err := Load(twice)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	rawOnce, err := os.ReadFile(Path(once))
	require.NoError(t, err)
	rawTwice, err := os.ReadFile(Path(twice))
	require.NoError(t, err)
	assert.Equal(t, rawOnce, rawTwice)
}

func TestSaveOverwritesWholeFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(Config{SoundBankPath: "/a/very/long/path/to/a/bank.sfz"}, dir))
	require.NoError(t, Save(Config{SoundBankPath: "/b.sfz"}, dir))

	raw, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, "/b.sfz\n", string(raw))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestSaveCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	assert.False(t, Exists(dir))
	require.NoError(t, Save(Config{SoundBankPath: "/x.sfz"}, dir))
	assert.True(t, Exists(dir))
}

func TestLoadParsesFirstToken(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain", "/bank.sfz", "/bank.sfz"},
		{"leading whitespace", "  \n\t/bank.sfz\n", "/bank.sfz"},
		{"trailing tokens", "/bank.sfz other tokens\n", "/bank.sfz"},
		{"empty", "", ""},
		{"blank", " \n \n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(Path(dir), []byte(tt.content), 0o644))
			cfg, err := Load(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.SoundBankPath)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrFileOpen)
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestSaveDirectoryCreationFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := Save(Config{SoundBankPath: "/x.sfz"}, filepath.Join(blocker, "inst"))
	assert.ErrorIs(t, err, ErrDirectoryCreation)
}

func TestSaveFileOpenFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(Path(dir), 0o755))

	err := Save(Config{SoundBankPath: "/x.sfz"}, dir)
	assert.ErrorIs(t, err, ErrFileOpen)
}

func TestDefault(t *testing.T) {
	cfg := Default("/home/alice", ".5FX")
	assert.Equal(t, "/home/alice/.5FX/default.sfz", cfg.SoundBankPath)
}
