package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/kbukum/kcoidc/logger"
)

// Defaulter is implemented by settings structs that fill in defaults and
// validate themselves after loading.
type Defaulter interface {
	ApplyDefaults()
	Validate() error
}

type loader struct {
	fs      afero.Fs
	files   Files
	log     *logger.Logger
	environ func() []string
}

// Option configures a load.
type Option func(*loader)

// WithFs reads files from fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(l *loader) { l.fs = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) Option {
	return func(l *loader) { l.files.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) Option {
	return func(l *loader) { l.files.EnvFile = path }
}

// WithLogger sets the logger used for load warnings.
func WithLogger(log *logger.Logger) Option {
	return func(l *loader) { l.log = log }
}

// Decode reads the service's YAML file, its .env file and the process
// environment into cfg, later sources winning. Unreadable files are
// logged and skipped. Variables from the .env file never override the
// process environment, and the process environment is not modified.
func Decode(service string, cfg any, opts ...Option) error {
	l := &loader{
		fs:      afero.NewOsFs(),
		log:     logger.WithComponent("config"),
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(l)
	}
	files := Resolve(l.fs, service, l.files)

	v := viper.New()
	v.SetFs(l.fs)
	if exists(l.fs, files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			l.log.Warn("failed to read config file", logger.Fields("file", files.ConfigFile, logger.FieldError, err.Error()))
		}
	}

	prefix := strings.ToUpper(service) + "_"
	for name, value := range l.env(files.EnvFile) {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		for _, key := range envKeys(name) {
			v.Set(key, value)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decoding %s config: %w", service, err)
	}
	return nil
}

// Load is Decode followed by ApplyDefaults and Validate.
func Load(service string, cfg Defaulter, opts ...Option) error {
	if err := Decode(service, cfg, opts...); err != nil {
		return err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid %s config: %w", service, err)
	}
	return nil
}

// env merges the .env file under the process environment.
func (l *loader) env(envFile string) map[string]string {
	vars := map[string]string{}
	if exists(l.fs, envFile) {
		if parsed, err := l.parseEnvFile(envFile); err != nil {
			l.log.Warn("failed to read env file", logger.Fields("file", envFile, logger.FieldError, err.Error()))
		} else {
			vars = parsed
		}
	}
	for _, kv := range l.environ() {
		if name, value, ok := strings.Cut(kv, "="); ok {
			vars[name] = value
		}
	}
	return vars
}

func exists(fs afero.Fs, name string) bool {
	if name == "" {
		return false
	}
	ok, _ := afero.Exists(fs, name)
	return ok
}

func (l *loader) parseEnvFile(name string) (map[string]string, error) {
	f, err := l.fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return godotenv.Parse(f)
}

// envKeys returns the viper keys an environment variable may stand for,
// since an underscore can separate two levels or be part of a key:
//
//	KCOIDC_HTTP_TIMEOUT -> kcoidc_http_timeout, kcoidc.http.timeout, kcoidc.http_timeout
func envKeys(name string) []string {
	lower := strings.ToLower(name)
	parts := strings.Split(lower, "_")
	keys := []string{lower}
	seen := map[string]struct{}{lower: {}}
	add := func(k string) {
		if _, dup := seen[k]; !dup {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	add(strings.Join(parts, "."))
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_"))
	}
	return keys
}
