package authz

import (
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode represents an enforcement mode.
type Mode string

const (
	ModeDisabled Mode = "disabled"
	ModeShadow   Mode = "shadow"
	ModeEnforce  Mode = "enforce"
)

// FlagProvider supplies the enforcement mode for a capability object. An empty
// object asks for the default mode.
type FlagProvider interface {
	ModeFor(object string) Mode
}

// FlagSet is the parsed flag file: a default mode plus per-object overrides, so
// one resource (e.g. evaluation.comments) can roll out in shadow while the rest
// enforce.
type FlagSet struct {
	Mode    Mode            `yaml:"mode"`
	Objects map[string]Mode `yaml:"objects"`
}

func (f FlagSet) normalized(fallback Mode) FlagSet {
	out := FlagSet{Mode: fallback, Objects: make(map[string]Mode, len(f.Objects))}
	if strings.TrimSpace(string(f.Mode)) != "" {
		out.Mode = sanitizeMode(f.Mode)
	}
	for object, mode := range f.Objects {
		out.Objects[strings.ToLower(strings.TrimSpace(object))] = sanitizeMode(mode)
	}
	return out
}

// ModeFor returns the override for object, or the default mode.
func (f FlagSet) ModeFor(object string) Mode {
	if mode, ok := f.Objects[strings.ToLower(strings.TrimSpace(object))]; ok {
		return mode
	}
	return f.Mode
}

// StaticFlagProvider returns a provider that reports mode for every object.
func StaticFlagProvider(mode Mode) FlagProvider {
	return FlagSet{Mode: sanitizeMode(mode)}
}

// FileFlagProvider serves a FlagSet from a YAML file, re-reading it only when its
// modification time changes. A missing or unreadable file keeps the last good set.
type FileFlagProvider struct {
	path     string
	fallback Mode

	mu      sync.Mutex
	loaded  bool
	modTime time.Time
	flags   FlagSet
}

// NewFileFlagProvider returns a provider backed by a YAML flag file.
func NewFileFlagProvider(path string, fallback Mode) *FileFlagProvider {
	fallback = sanitizeMode(fallback)
	return &FileFlagProvider{
		path:     path,
		fallback: fallback,
		flags:    FlagSet{Mode: fallback},
	}
}

func (p *FileFlagProvider) ModeFor(object string) Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refresh()
	return p.flags.ModeFor(object)
}

func (p *FileFlagProvider) refresh() {
	info, err := os.Stat(p.path)
	if err != nil || (p.loaded && info.ModTime().Equal(p.modTime)) {
		return
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return
	}
	var parsed FlagSet
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return
	}
	p.flags = parsed.normalized(p.fallback)
	p.modTime = info.ModTime()
	p.loaded = true
}

// sanitizeMode maps unknown values to enforce.
func sanitizeMode(mode Mode) Mode {
	switch strings.ToLower(strings.TrimSpace(string(mode))) {
	case string(ModeDisabled):
		return ModeDisabled
	case string(ModeShadow):
		return ModeShadow
	default:
		return ModeEnforce
	}
}
