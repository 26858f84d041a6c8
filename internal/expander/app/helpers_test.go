package app

import "os"

// removeAndBlock replaces dir with a regular file so it cannot be recreated.
func removeAndBlock(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.WriteFile(dir, []byte("blocked"), 0o644)
}
