package config

import (
	"os"
	"path"

	"github.com/spf13/afero"
)

// EnvConfigFile names the environment variable holding an explicit config
// file path.
const EnvConfigFile = "KCOIDC_CONFIG_FILE"

// Files are the resolved sources of one load. Empty paths are skipped.
type Files struct {
	ConfigFile string
	EnvFile    string
}

// configCandidates lists where <service>.yml is looked for, in order.
func configCandidates(service string) []string {
	name := service + ".yml"
	return []string{
		name,
		path.Join("config", name),
		path.Join("/etc/kopano", name),
	}
}

// envCandidates lists where .env.<service> is looked for. A plain .env is
// never picked up since the library runs inside foreign processes.
func envCandidates(service string) []string {
	name := ".env." + service
	return []string{name, path.Join("config", name)}
}

// Resolve fills in the files not set explicitly. The config file falls
// back to $KCOIDC_CONFIG_FILE and then to the first existing candidate.
func Resolve(fs afero.Fs, service string, explicit Files) Files {
	f := explicit
	if f.ConfigFile == "" {
		f.ConfigFile = os.Getenv(EnvConfigFile)
	}
	if f.ConfigFile == "" {
		f.ConfigFile = firstExisting(fs, configCandidates(service))
	}
	if f.EnvFile == "" {
		f.EnvFile = firstExisting(fs, envCandidates(service))
	}
	return f
}

func firstExisting(fs afero.Fs, paths []string) string {
	for _, p := range paths {
		if exists(fs, p) {
			return p
		}
	}
	return ""
}
