package version

import (
	"cmp"
	"runtime/debug"
	"strings"
	"sync"
)

// Set at build time with -ldflags -X. Unset values are taken from the
// VCS stamp of the build.
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	API       string `json:"api"`
	IsDirty   bool   `json:"is_dirty"`
}

type vcsStamp struct {
	goVersion string
	revision  string
	time      string
	dirty     bool
}

var readStamp = sync.OnceValue(func() vcsStamp {
	var s vcsStamp
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return s
	}
	s.goVersion = bi.GoVersion
	for _, kv := range bi.Settings {
		switch kv.Key {
		case "vcs.revision":
			s.revision = kv.Value
		case "vcs.time":
			s.time = kv.Value
		case "vcs.modified":
			s.dirty = kv.Value == "true"
		}
	}
	return s
})

// Get returns the build description. The commit is shortened to seven
// characters.
func Get() Info {
	stamp := readStamp()
	info := Info{
		Version:   Version,
		GitCommit: cmp.Or(GitCommit, stamp.revision),
		BuildTime: cmp.Or(BuildTime, stamp.time),
		GoVersion: stamp.goVersion,
		API:       FormatAPIVersion(APIVersion),
		IsDirty:   stamp.dirty,
	}
	if len(info.GitCommit) > 7 {
		info.GitCommit = info.GitCommit[:7]
	}
	return info
}

// Short renders version[-commit[-dirty]].
func (i Info) Short() string {
	if i.GitCommit == "" {
		return i.Version
	}
	s := i.Version + "-" + i.GitCommit
	if i.IsDirty {
		s += "-dirty"
	}
	return s
}

// String renders the short version followed by the API level, build time
// and Go version when known.
func (i Info) String() string {
	parts := []string{i.Short(), "api " + i.API}
	if i.BuildTime != "" {
		parts = append(parts, "built "+i.BuildTime)
	}
	if i.GoVersion != "" {
		parts = append(parts, i.GoVersion)
	}
	return strings.Join(parts, ", ")
}

// UserAgent returns the User-Agent sent to issuers.
func UserAgent() string {
	return "kcoidc/" + Get().Short()
}
