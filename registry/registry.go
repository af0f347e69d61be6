// Package registry loads and validates the suite manifest: the YAML file
// describing which suites the orchestrator can run, with what worker
// programs, rank counts and configurations.
package registry

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/rankrunner/rankrunner/types"
)

// Duration decodes "30s" style YAML values into a time.Duration.
type Duration time.Duration

// UnmarshalYAML implements the yaml.Unmarshaler interface
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// SuiteEntry is one suite declaration in the manifest.
type SuiteEntry struct {
	Name           string   `yaml:"name"`
	EntryPoint     []string `yaml:"entrypoint"`
	Ranks          int      `yaml:"ranks"`
	Methods        []string `yaml:"methods"`
	Configurations int      `yaml:"configurations"` // 0 = not parameterized
	Backend        string   `yaml:"backend"`        // empty = orchestrator default
	Timeout        Duration `yaml:"timeout"`        // 0 = orchestrator default
	LaunchOpts     string   `yaml:"launch_opts"`
	NativeLibPath  string   `yaml:"native_lib_path"`
}

// Manifest is the root of the suite manifest file.
type Manifest struct {
	Suites []SuiteEntry `yaml:"suites"`
}

// Config contains registry configuration
type Config struct {
	Log            log.Logger
	ManifestFile   string
	DefaultRanks   int
	DefaultTimeout time.Duration
}

// Registry manages the declared suites.
type Registry struct {
	config Config
	suites []SuiteEntry
	mu     sync.RWMutex
}

// NewRegistry loads the manifest and returns a registry over it.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.ManifestFile == "" {
		return nil, fmt.Errorf("suite manifest file is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	if cfg.DefaultRanks < 1 {
		cfg.DefaultRanks = 1
	}

	r := &Registry{config: cfg}
	if err := r.load(cfg.ManifestFile); err != nil {
		return nil, fmt.Errorf("failed to load suite manifest: %w", err)
	}

	cfg.Log.Debug("Registry loaded", "len(suites)", len(r.suites))
	return r, nil
}

func (r *Registry) load(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	manifest, err := loadManifest(path)
	if err != nil {
		return err
	}

	suites, err := r.resolve(manifest)
	if err != nil {
		return err
	}

	r.suites = suites
	return nil
}

// resolve applies defaults and validates every entry.
func (r *Registry) resolve(manifest *Manifest) ([]SuiteEntry, error) {
	if len(manifest.Suites) == 0 {
		return nil, fmt.Errorf("manifest declares no suites")
	}

	seen := make(map[string]bool, len(manifest.Suites))
	suites := make([]SuiteEntry, 0, len(manifest.Suites))
	for _, entry := range manifest.Suites {
		if entry.Name == "" {
			return nil, fmt.Errorf("manifest entry is missing a suite name")
		}
		if seen[entry.Name] {
			return nil, fmt.Errorf("suite %q is declared twice", entry.Name)
		}
		seen[entry.Name] = true

		if len(entry.EntryPoint) == 0 {
			return nil, fmt.Errorf("suite %q declares no entry point", entry.Name)
		}
		if len(entry.Methods) == 0 {
			return nil, fmt.Errorf("suite %q declares no methods", entry.Name)
		}
		if entry.Configurations < 0 {
			return nil, fmt.Errorf("suite %q has a negative configuration count", entry.Name)
		}
		if entry.Backend != "" && !types.Backend(entry.Backend).IsValid() {
			return nil, fmt.Errorf("suite %q names unknown backend %q", entry.Name, entry.Backend)
		}

		if entry.Ranks == 0 {
			entry.Ranks = r.config.DefaultRanks
		}
		if entry.Ranks < 1 {
			return nil, fmt.Errorf("suite %q has rank count %d, need at least 1", entry.Name, entry.Ranks)
		}
		if entry.Timeout == 0 {
			entry.Timeout = Duration(r.config.DefaultTimeout)
		}

		suites = append(suites, entry)
	}
	return suites, nil
}

// GetSuites returns every declared suite.
func (r *Registry) GetSuites() []SuiteEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.suites
}

// GetSuite returns the declaration of the named suite.
func (r *Registry) GetSuite(name string) (SuiteEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.suites {
		if s.Name == name {
			return s, true
		}
	}
	return SuiteEntry{}, false
}

// GetConfig returns the registry configuration
func (r *Registry) GetConfig() Config {
	return r.config
}

// loadManifest reads and parses a suite manifest file.
func loadManifest(path string) (*Manifest, error) {
	log.Debug("Reading suite manifest file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest file: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest file: %w", err)
	}

	return &manifest, nil
}
