// Package config loads deployment-unit declarations from YAML. Declarations
// are parsed and validated once at load time into explicit component and
// dependency descriptors; the lifecycle core never inspects live type
// metadata.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/c360/beanbridge/component"
	"github.com/c360/beanbridge/errors"
	"github.com/c360/beanbridge/filter"
)

// Config is the top-level deployment-unit document
type Config struct {
	// Unit names the deployment unit
	Unit string `yaml:"unit"`

	// Components declared by this unit
	Components []ComponentConfig `yaml:"components"`

	// References are mandatory external dependencies of non-component code,
	// validated eagerly at startup
	References []DependencyConfig `yaml:"references"`
}

// ComponentConfig declares one managed component
type ComponentConfig struct {
	Identity     string             `yaml:"identity"`
	Impl         string             `yaml:"impl"`
	Types        []string           `yaml:"types"`
	Provides     []string           `yaml:"provides"`
	Ranking      int                `yaml:"ranking"`
	Properties   map[string]string  `yaml:"properties"`
	Dependencies []DependencyConfig `yaml:"dependencies"`
}

// DependencyConfig declares one dependency
type DependencyConfig struct {
	Capability  string `yaml:"capability"`
	Filter      string `yaml:"filter"`
	Cardinality string `yaml:"cardinality"` // mandatory (default) or optional
	Policy      string `yaml:"policy"`      // sticky (default) or greedy
}

// Load reads and parses a deployment-unit document from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Load", "read "+path)
	}
	return Parse(data)
}

// Parse parses and validates a deployment-unit document
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Config", "Parse", "yaml decoding")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the document for structural errors. Filter expressions are
// parsed here so misconfiguration fails the load, not the first registry
// event.
func (c *Config) Validate() error {
	if c.Unit == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: unit name", errors.ErrMissingConfig),
			"Config", "Validate", "unit validation")
	}

	seen := make(map[string]bool)
	for i, comp := range c.Components {
		if comp.Identity == "" {
			return errors.WrapInvalid(
				fmt.Errorf("%w: component %d has no identity", errors.ErrInvalidConfig, i),
				"Config", "Validate", "component validation")
		}
		if seen[comp.Identity] {
			return errors.WrapInvalid(
				fmt.Errorf("%w: duplicate component %s", errors.ErrInvalidConfig, comp.Identity),
				"Config", "Validate", "component validation")
		}
		seen[comp.Identity] = true
		if comp.Impl == "" && len(comp.Types) == 0 && len(comp.Provides) == 0 {
			return errors.WrapInvalid(
				fmt.Errorf("%w: component %s declares no publishable type", errors.ErrInvalidConfig, comp.Identity),
				"Config", "Validate", "component validation")
		}
		for _, dep := range comp.Dependencies {
			if err := dep.validate(comp.Identity); err != nil {
				return err
			}
		}
	}

	for _, ref := range c.References {
		if err := ref.validate("references"); err != nil {
			return err
		}
	}
	return nil
}

func (dc DependencyConfig) validate(owner string) error {
	if dc.Capability == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: dependency of %s has no capability", errors.ErrInvalidConfig, owner),
			"Config", "Validate", "dependency validation")
	}
	if _, err := parseCardinality(dc.Cardinality); err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("dependency of %s: %w", owner, err),
			"Config", "Validate", "dependency validation")
	}
	if _, err := parsePolicy(dc.Policy); err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("dependency of %s: %w", owner, err),
			"Config", "Validate", "dependency validation")
	}
	if _, err := filter.Parse(dc.Filter); err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("dependency of %s: %w", owner, err),
			"Config", "Validate", "filter validation")
	}
	return nil
}

// Declarations converts the document into component declarations for the
// lifecycle core
func (c *Config) Declarations() []component.Declaration {
	decls := make([]component.Declaration, 0, len(c.Components))
	for _, comp := range c.Components {
		decl := component.Declaration{
			Identity:   comp.Identity,
			Unit:       c.Unit,
			Types:      append([]string(nil), comp.Types...),
			Provides:   append([]string(nil), comp.Provides...),
			Impl:       comp.Impl,
			Ranking:    comp.Ranking,
			Properties: comp.Properties,
		}
		for _, dep := range comp.Dependencies {
			decl.Dependencies = append(decl.Dependencies, dep.toDependency())
		}
		decls = append(decls, decl)
	}
	return decls
}

// NonComponentDependencies converts the reference declarations
func (c *Config) NonComponentDependencies() []component.Dependency {
	deps := make([]component.Dependency, 0, len(c.References))
	for _, ref := range c.References {
		deps = append(deps, ref.toDependency())
	}
	return deps
}

// toDependency assumes the config validated
func (dc DependencyConfig) toDependency() component.Dependency {
	cardinality, _ := parseCardinality(dc.Cardinality)
	policy, _ := parsePolicy(dc.Policy)
	return component.Dependency{
		Capability:  dc.Capability,
		Filter:      dc.Filter,
		Cardinality: cardinality,
		Policy:      policy,
	}
}

func parseCardinality(s string) (component.Cardinality, error) {
	switch s {
	case "", "mandatory":
		return component.CardinalityMandatory, nil
	case "optional":
		return component.CardinalityOptional, nil
	default:
		return 0, fmt.Errorf("%w: unknown cardinality %q", errors.ErrInvalidConfig, s)
	}
}

func parsePolicy(s string) (component.BindingPolicy, error) {
	switch s {
	case "", "sticky":
		return component.PolicySticky, nil
	case "greedy":
		return component.PolicyGreedy, nil
	default:
		return 0, fmt.Errorf("%w: unknown binding policy %q", errors.ErrInvalidConfig, s)
	}
}
