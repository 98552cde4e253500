// Package config implements Component H: a strict, declarative config
// loader replacing the original tool's "config file as executable code"
// design (spec.md §9) with a YAML document that rejects unknown keys, and
// an immutable Config struct assembled once from the file plus CLI flags.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// OverrideRule pairs a compiled regex with the boolean it forces, used
// for override_rc and override_cont.
type OverrideRule struct {
	Pattern *regexp.Regexp
	Value   bool
}

// KernelHints is the tri-state kernelhints config value: terse, off, on.
type KernelHints int

const (
	KernelHintsOn   KernelHints = 1
	KernelHintsOff  KernelHints = 0
	KernelHintsTerse KernelHints = -1
)

// Config is the immutable configuration value passed by reference to
// every component, assembled once after CLI and file parsing (spec.md §9
// "Global configuration dictionary → immutable configuration struct").
type Config struct {
	Verbosity         int
	HookDir           string
	NotifyDir         string
	SendNotify        bool
	Restart           string // "l" list-only, "i" interactive, "a" automatic
	DefNo             bool
	UIMode            string // "e" easy, "a" advanced
	SystemctlCombine  bool
	Blacklist         []*regexp.Regexp
	BlacklistRC       []*regexp.Regexp
	OverrideRC        []OverrideRule
	OverrideCont      []OverrideRule
	InterpScan        bool
	KernelHints       KernelHints

	// CLI-only fields (spec.md §3's Config struct note), not present in
	// the file format.
	Quiet      bool
	Batch      bool
	Plugin     bool
	Frontend   string
	KernelOnly bool
	LibOnly    bool
}

// Defaults returns the configuration defaults listed in spec.md §6.
func Defaults() *Config {
	return &Config{
		Verbosity:        1,
		HookDir:          "/etc/needrestart/hook.d",
		NotifyDir:        "/etc/needrestart/notify.d",
		SendNotify:       true,
		Restart:          "i",
		DefNo:            false,
		UIMode:           "a",
		SystemctlCombine: false,
		InterpScan:       true,
		KernelHints:      KernelHintsOn,
	}
}

// rawConfig mirrors the YAML document shape; KnownFields(true) on the
// decoder rejects anything not listed here.
type rawConfig struct {
	Verbosity        *int            `yaml:"verbosity"`
	HookD            *string         `yaml:"hook_d"`
	NotifyD          *string         `yaml:"notify_d"`
	SendNotify       *bool           `yaml:"sendnotify"`
	Restart          *string         `yaml:"restart"`
	DefNo            *bool           `yaml:"defno"`
	UIMode           *string         `yaml:"ui_mode"`
	SystemctlCombine *bool           `yaml:"systemctl_combine"`
	Blacklist        []string        `yaml:"blacklist"`
	BlacklistRC      []string        `yaml:"blacklist_rc"`
	OverrideRC       map[string]bool `yaml:"override_rc"`
	OverrideCont     map[string]bool `yaml:"override_cont"`
	InterpScan       *bool           `yaml:"interpscan"`
	KernelHints      yaml.Node       `yaml:"kernelhints"`
}

// LoadFile parses path as a strict YAML document and merges it over
// Defaults(). An unknown top-level key is a fatal configuration error
// (spec.md §7).
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var raw rawConfig
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	cfg := Defaults()
	if err := applyRaw(cfg, &raw); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func applyRaw(cfg *Config, raw *rawConfig) error {
	if raw.Verbosity != nil {
		cfg.Verbosity = *raw.Verbosity
	}
	if raw.HookD != nil {
		cfg.HookDir = *raw.HookD
	}
	if raw.NotifyD != nil {
		cfg.NotifyDir = *raw.NotifyD
	}
	if raw.SendNotify != nil {
		cfg.SendNotify = *raw.SendNotify
	}
	if raw.Restart != nil {
		cfg.Restart = *raw.Restart
	}
	if raw.DefNo != nil {
		cfg.DefNo = *raw.DefNo
	}
	if raw.UIMode != nil {
		cfg.UIMode = *raw.UIMode
	}
	if raw.SystemctlCombine != nil {
		cfg.SystemctlCombine = *raw.SystemctlCombine
	}
	if raw.InterpScan != nil {
		cfg.InterpScan = *raw.InterpScan
	}

	var err error
	if cfg.Blacklist, err = compileList(raw.Blacklist); err != nil {
		return err
	}
	if cfg.BlacklistRC, err = compileList(raw.BlacklistRC); err != nil {
		return err
	}
	if cfg.OverrideRC, err = compileRules(raw.OverrideRC); err != nil {
		return err
	}
	if cfg.OverrideCont, err = compileRules(raw.OverrideCont); err != nil {
		return err
	}

	if raw.KernelHints.Kind != 0 {
		hints, err := decodeKernelHints(&raw.KernelHints)
		if err != nil {
			return err
		}
		cfg.KernelHints = hints
	}

	return nil
}

func compileList(patterns []string) ([]*regexp.Regexp, error) {
	if patterns == nil {
		return nil, nil
	}
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid regex %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func compileRules(m map[string]bool) ([]OverrideRule, error) {
	if m == nil {
		return nil, nil
	}
	out := make([]OverrideRule, 0, len(m))
	for pattern, value := range m {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex %q: %w", pattern, err)
		}
		out = append(out, OverrideRule{Pattern: re, Value: value})
	}
	return out, nil
}

// decodeKernelHints accepts either a YAML bool (true/false) or the
// integer -1 for "terse text only" (spec.md §6).
func decodeKernelHints(node *yaml.Node) (KernelHints, error) {
	var b bool
	if err := node.Decode(&b); err == nil {
		if b {
			return KernelHintsOn, nil
		}
		return KernelHintsOff, nil
	}
	var i int
	if err := node.Decode(&i); err == nil && i == -1 {
		return KernelHintsTerse, nil
	}
	return 0, fmt.Errorf("kernelhints: expected bool or -1, got %q", node.Value)
}

// Lookup returns the forced value for name if any override rule matches,
// used for override_rc / override_cont.
func Lookup(rules []OverrideRule, name string) (bool, bool) {
	for _, r := range rules {
		if r.Pattern.MatchString(name) {
			return r.Value, true
		}
	}
	return false, false
}
