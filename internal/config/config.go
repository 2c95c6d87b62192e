// Package config loads the YAML source/exclude configuration that tells the
// ingest controller what to read and what to skip, merging the user, project,
// and repo tiers into one effective document.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Adapter names the harness a source should be read with, or "auto" to let
// the ingest controller infer it from the path shape.
type Adapter string

const (
	Auto     Adapter = "auto"
	Codex    Adapter = "codex"
	Claude   Adapter = "claude"
	Cursor   Adapter = "cursor"
	Gemini   Adapter = "gemini"
	OpenCode Adapter = "opencode"
	OpenClaw Adapter = "openclaw"
)

func parseAdapter(raw string) (Adapter, error) {
	normalized := Adapter(strings.ToLower(strings.TrimSpace(raw)))
	switch normalized {
	case "", Auto:
		return Auto, nil
	case Codex, Claude, Cursor, Gemini, OpenCode, OpenClaw:
		return normalized, nil
	default:
		return "", fmt.Errorf("unknown adapter %q", raw)
	}
}

// Source is one discovery entry: a path (which may carry a `~` prefix and
// glob metacharacters) and the adapter to read it with.
type Source struct {
	Path    string
	Adapter Adapter
}

// Config is the merged, effective configuration the ingest controller acts
// on: the sources to discover and the exclude patterns to drop from them.
type Config struct {
	Sources []Source
	Exclude []string
}

type rawConfig struct {
	Sources []rawSource `yaml:"sources"`
	Exclude []string    `yaml:"exclude"`
}

type rawSource struct {
	Path    string `yaml:"path"`
	Adapter string `yaml:"adapter"`
}

// LoadFile parses a single YAML config document from path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	sources := make([]Source, 0, len(raw.Sources))
	for _, rs := range raw.Sources {
		adapter, err := parseAdapter(rs.Adapter)
		if err != nil {
			return Config{}, fmt.Errorf("config %s: source %q: %w", path, rs.Path, err)
		}
		sources = append(sources, Source{Path: rs.Path, Adapter: adapter})
	}

	return Config{Sources: sources, Exclude: raw.Exclude}, nil
}

// LoadEffective merges the user, nearest-ancestor project, and repo configs
// (in that order) into one effective config. Any tier whose file is absent
// is silently skipped. Sources merge by deduplicated path, keeping the
// last-seen adapter; exclude takes the last non-empty list seen.
func LoadEffective(userPath, projectPath, repoPath string) (Config, error) {
	var merged Config
	order := []string{userPath, projectPath, repoPath}

	bySourcePath := map[string]int{}
	for _, path := range order {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		for _, src := range cfg.Sources {
			if idx, ok := bySourcePath[src.Path]; ok {
				merged.Sources[idx] = src
			} else {
				bySourcePath[src.Path] = len(merged.Sources)
				merged.Sources = append(merged.Sources, src)
			}
		}
		if len(cfg.Exclude) > 0 {
			merged.Exclude = cfg.Exclude
		}
	}

	return merged, nil
}

// FindProjectConfig walks from dir up to the filesystem root looking for a
// `.engram.project.yml`, returning the path to the nearest one found.
func FindProjectConfig(dir string) string {
	const name = ".engram.project.yml"
	current := dir
	for {
		candidate := filepath.Join(current, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

// ExpandTilde expands a leading `~` or `~/...` to the home directory.
func ExpandTilde(path, home string) string {
	if path == "~" {
		return home
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(home, rest)
	}
	return path
}

// ResolveSources expands tilde and glob metacharacters in every source path
// against home, then drops any resulting file matching an exclude pattern
// (matched via filepath.Match against both the path's base name and its full
// expanded form, after the pattern itself is tilde-expanded and made
// absolute against cwd).
func ResolveSources(cfg Config, home, cwd string) ([]ResolvedInput, error) {
	excludes := make([]string, 0, len(cfg.Exclude))
	for _, pattern := range cfg.Exclude {
		expanded := ExpandTilde(pattern, home)
		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(cwd, expanded)
		}
		excludes = append(excludes, expanded)
	}

	var out []ResolvedInput
	seen := map[string]bool{}
	for _, src := range cfg.Sources {
		expanded := ExpandTilde(src.Path, home)
		matches, err := filepath.Glob(expanded)
		if err != nil {
			return nil, fmt.Errorf("expand glob %q: %w", src.Path, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			if matchesAnyExclude(m, excludes) {
				continue
			}
			seen[m] = true
			out = append(out, ResolvedInput{Path: m, Adapter: src.Adapter})
		}
	}
	return out, nil
}

// ResolvedInput is one discovered input file paired with the adapter its
// source entry requested (possibly Auto).
type ResolvedInput struct {
	Path    string
	Adapter Adapter
}

func matchesAnyExclude(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, path); ok {
			return true
		}
		if ok, _ := filepath.Match(filepath.Base(pattern), base); ok {
			return true
		}
	}
	return false
}

// DetectAdapter infers an adapter from an input path's shape when the
// configured adapter is Auto. Returns false when it cannot be inferred.
func DetectAdapter(path string) (Adapter, bool) {
	cleaned := filepath.ToSlash(path)
	switch {
	case strings.Contains(cleaned, "/.codex/"):
		return Codex, true
	case strings.Contains(cleaned, "/.claude/projects/"):
		return Claude, true
	case strings.Contains(cleaned, "/.openclaw/"):
		return OpenClaw, true
	case strings.Contains(cleaned, "/.cursor/"):
		return Cursor, true
	case strings.Contains(cleaned, "/.gemini/"):
		return Gemini, true
	case strings.Contains(cleaned, "/.opencode/"):
		return OpenCode, true
	default:
		return "", false
	}
}

// DefaultRepoConfigYAML is the starter document `engram init` writes to a
// repo's `.engram/config.yml` when none exists.
func DefaultRepoConfigYAML() string {
	return `sources:
  - path: ~/.codex/sessions/**/*.jsonl
    adapter: codex
  - path: ~/.claude/projects/**/*.jsonl
    adapter: claude
exclude: []
`
}

// DefaultGlobalConfigYAML is the starter document `engram init --global`
// writes to `~/.engram/config.yml` when none exists.
func DefaultGlobalConfigYAML() string {
	return `sources:
  - path: ~/.codex/sessions/**/*.jsonl
    adapter: codex
  - path: ~/.claude/projects/**/*.jsonl
    adapter: claude
  - path: ~/.openclaw/sessions/**/*.jsonl
    adapter: openclaw
exclude: []
`
}
