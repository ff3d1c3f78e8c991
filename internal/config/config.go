// Package config locates the confcache YAML file and the default daemon
// paths. The YAML file feeds flag value-source chains; it is optional and
// absence is not an error.
package config

import (
	"os"
	"path/filepath"

	"github.com/apex/log"
)

// EnvConfig points at an explicit config file, bypassing the search.
const EnvConfig = "CONFCACHE_CONFIG"

// FileName is the config file searched for in standard locations.
const FileName = "confcache.yaml"

// Path returns the confcache.yaml to read flag defaults from, or "" when
// none exists.
func Path() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}

	candidates := []string{
		os.Getenv("XDG_CONFIG_HOME"),
		os.Getenv("APPDATA"),
		os.Getenv("HOME"),
	}

	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		file := filepath.Join(dir, FileName)
		if fi, err := os.Stat(file); err == nil && !fi.IsDir() {
			log.Debugf("using config file: %s", file)
			return file
		}
	}
	return ""
}

// SocketPath returns the default daemon socket path.
func SocketPath() string {
	return filepath.Join(cacheDir(), "confcached.sock")
}

// DBPath returns the default bolt database path.
func DBPath() string {
	return filepath.Join(cacheDir(), "confcache.bbolt")
}

func cacheDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "confcache")
}
