// Package envresolve looks up named values in a process environment listing.
// Lookups scan the listing they are given on every call; nothing is cached, so a
// value changed by an env file loaded late is still seen by the next lookup.
package envresolve

import (
	"os"
	"regexp"

	"github.com/joho/godotenv"
)

// HomeVar is the variable holding the user's home directory.
const HomeVar = "HOME"

// Resolve returns the value of the first entry of environ binding name, in
// "NAME=value" form. The second result is false when name is unbound.
func Resolve(name string, environ []string) (string, bool) {
	if name == "" {
		return "", false
	}
	pattern, err := regexp.Compile("(?s)^" + regexp.QuoteMeta(name) + "=(.*)$")
	if err != nil {
		return "", false
	}
	for _, entry := range environ {
		if m := pattern.FindStringSubmatch(entry); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// Home returns the home directory bound in environ. An unbound or empty HOME is
// fatal for the expander and reported as ErrHomeNotFound.
func Home(environ []string) (string, error) {
	home, ok := Resolve(HomeVar, environ)
	if !ok || home == "" {
		return "", ErrHomeNotFound
	}
	return home, nil
}

// SessionURL returns the session manager URL held by urlVar, if any. An empty
// value counts as absent.
func SessionURL(urlVar string, environ []string) (string, bool) {
	url, ok := Resolve(urlVar, environ)
	if !ok || url == "" {
		return "", false
	}
	return url, true
}

// LoadEnvFile merges the variables of a dotenv file into the process
// environment. Variables already set are left untouched. An empty path is a
// no-op.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return ErrEnvFile.Err(err)
	}
	if err := godotenv.Load(path); err != nil {
		return ErrEnvFile.Err(err)
	}
	return nil
}
