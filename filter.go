package rdbsnap

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Filter is the membership predicate over (database index, key, logical
// type) spec §4.G describes. All three axes are optional; an absent
// axis accepts everything on it. Construct with NewFilter or
// LoadFilterYAML; the zero value accepts everything.
type Filter struct {
	dbs   map[int]struct{} // nil means "no restriction"
	keys  *regexp.Regexp   // nil means "no restriction"
	types map[LogicalType]struct{}
}

// FilterConfig is the constructor-time shape of a filter, matching the
// three `dbs`/`keys`/`types` options spec §4.G names. DBs and Types
// accept either a single value or a list in YAML (see filterYAML),
// but FilterConfig itself always takes the normalized slice form so
// invalid members are rejected eagerly at construction (spec §9, open
// question 3) rather than surfacing mid-parse.
type FilterConfig struct {
	DBs   []int
	Keys  string // unanchored regular expression; "" means unrestricted
	Types []LogicalType
}

// NewFilter builds a Filter from a FilterConfig, validating eagerly.
func NewFilter(cfg FilterConfig) (*Filter, error) {
	f := &Filter{}

	if len(cfg.DBs) > 0 {
		f.dbs = make(map[int]struct{}, len(cfg.DBs))
		for _, d := range cfg.DBs {
			f.dbs[d] = struct{}{}
		}
	}

	if cfg.Keys != "" {
		re, err := regexp.Compile(cfg.Keys)
		if err != nil {
			return nil, fmt.Errorf("rdb: invalid keys filter %q: %w", cfg.Keys, err)
		}
		f.keys = re
	}

	if len(cfg.Types) > 0 {
		f.types = make(map[LogicalType]struct{}, len(cfg.Types))
		for _, t := range cfg.Types {
			switch t {
			case LogicalString, LogicalList, LogicalSet, LogicalSortedSet, LogicalHash:
				f.types[t] = struct{}{}
			default:
				return nil, fmt.Errorf("rdb: invalid type in filter: %q", t)
			}
		}
	}

	return f, nil
}

// AcceptDB reports whether the database index alone could hold
// anything this filter wants — the driver calls this before reading a
// key, to decide whether the whole key/value pair can be skip-read.
func (f *Filter) AcceptDB(db int) bool {
	if f == nil || f.dbs == nil {
		return true
	}
	_, ok := f.dbs[db]
	return ok
}

// Accept reports whether a specific (db, key, type) triple should be
// emitted.
func (f *Filter) Accept(db int, key string, typ LogicalType) bool {
	if f == nil {
		return true
	}
	if !f.AcceptDB(db) {
		return false
	}
	if f.keys != nil && !f.keys.MatchString(key) {
		return false
	}
	if f.types != nil {
		if _, ok := f.types[typ]; !ok {
			return false
		}
	}
	return true
}

// filterYAML is the on-disk shape of a filter config file: dbs/types
// accept either a scalar or a list, matching spec §4.G's "single
// integer or list of integers" / "single...type string or list of
// them" option shapes.
type filterYAML struct {
	DBs   yaml.Node `yaml:"dbs"`
	Keys  string    `yaml:"keys"`
	Types yaml.Node `yaml:"types"`
}

// LoadFilterYAML reads a filter configuration from a YAML file (spec
// §4.K): the three spec §4.G axes, expressed as a small config file the
// way the wider toolchain's own config layer treats YAML as the format
// of record for anything checked into a repo.
func LoadFilterYAML(path string) (*Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rdb: reading filter config: %w", err)
	}

	var raw filterYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("rdb: parsing filter config: %w", err)
	}

	cfg := FilterConfig{Keys: raw.Keys}

	dbs, err := scalarOrListInt(raw.DBs)
	if err != nil {
		return nil, fmt.Errorf("rdb: invalid dbs in filter config: %w", err)
	}
	cfg.DBs = dbs

	types, err := scalarOrListString(raw.Types)
	if err != nil {
		return nil, fmt.Errorf("rdb: invalid types in filter config: %w", err)
	}
	for _, t := range types {
		cfg.Types = append(cfg.Types, LogicalType(t))
	}

	return NewFilter(cfg)
}

func scalarOrListInt(n yaml.Node) ([]int, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind == yaml.ScalarNode {
		var v int
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return []int{v}, nil
	}
	var v []int
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func scalarOrListString(n yaml.Node) ([]string, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind == yaml.ScalarNode {
		var v string
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return []string{v}, nil
	}
	var v []string
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
