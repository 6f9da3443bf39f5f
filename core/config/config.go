package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"
	"golang.org/x/text/encoding/htmlindex"
	"gopkg.in/yaml.v3"

	"github.com/tristendillon/dtsbundle/core/logger"
)

// FileNames are the config file names looked up in the working directory.
var FileNames = []string{"dtsbundle.yaml", "dtsbundle.yml"}

type WrapperMode string

const (
	// WrapperFlatten merges concatenated module blocks and renames the outer one.
	WrapperFlatten WrapperMode = "flatten"
	// WrapperRename renames the outer module block and leaves seams alone.
	WrapperRename WrapperMode = "rename"
	// WrapperUnwrap removes the module block entirely, keeping its body.
	WrapperUnwrap WrapperMode = "unwrap"
)

var (
	// identifier is an ASCII TypeScript identifier; qualifiedName allows
	// dotted access such as "Lib.Types".
	identifier    = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)
	qualifiedName = regexp.MustCompile(`^[A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*$`)
)

var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrConfigNotFound = errors.New("config file not found")
)

type Config struct {
	ModuleName            string   `yaml:"module_name"`
	LibraryName           string   `yaml:"library_name"`
	InternalImportPaths   []string `yaml:"internal_import_paths"`
	ExternalTypesToExport []string `yaml:"external_types_to_export"`
	Wrapper               Wrapper  `yaml:"wrapper"`
	CollapseEmptyBraces   bool     `yaml:"collapse_empty_braces"`
	Encoding              string   `yaml:"encoding"`
	Input                 Input    `yaml:"input"`
	Output                Output   `yaml:"output"`
	Cache                 Cache    `yaml:"cache"`
	Concurrency           int      `yaml:"concurrency"`
}

type Wrapper struct {
	Mode   WrapperMode `yaml:"mode"`
	Quote  bool        `yaml:"quote"`
	Strict bool        `yaml:"strict"`
}

type Input struct {
	Root    string   `yaml:"root"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

type Output struct {
	File string `yaml:"file"`
	Dir  string `yaml:"dir"`
}

type Cache struct {
	MaxEntries int `yaml:"max_entries"`
}

func Default() *Config {
	return &Config{
		InternalImportPaths:   []string{},
		ExternalTypesToExport: []string{},
		Wrapper: Wrapper{
			Mode: WrapperFlatten,
		},
		Encoding: "utf-8",
		Input: Input{
			Root:    ".",
			Include: []string{"**/*.d.ts"},
			Exclude: []string{"**/node_modules/**"},
		},
		Output: Output{
			File: filepath.Join("dist", "index.d.ts"),
		},
		Cache: Cache{
			MaxEntries: 512,
		},
		Concurrency: 4,
	}
}

// Load reads the config at explicit, or the first of FileNames found in dir.
// With neither present the defaults are returned.
func Load(dir, explicit string) (*Config, error) {
	var filePath string
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, explicit)
		}
		filePath = explicit
	} else {
		for _, name := range FileNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				filePath = p
				break
			}
		}
	}

	if filePath == "" {
		logger.Debug("No config file found, using default config")
		return Default(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	logger.Debug("Config file found: %s", filePath)
	logger.Debug("Config: %+v", *cfg)

	return cfg, nil
}

// Parse decodes YAML on top of the defaults, so omitted keys keep their
// default values.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	return cfg, nil
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// ApplyOverrides copies every key explicitly set in v (environment or bound
// flags) over the loaded values.
func (c *Config) ApplyOverrides(v *viper.Viper) {
	if v == nil {
		return
	}
	if v.IsSet("module_name") {
		c.ModuleName = v.GetString("module_name")
	}
	if v.IsSet("library_name") {
		c.LibraryName = v.GetString("library_name")
	}
	if v.IsSet("internal_import_paths") {
		c.InternalImportPaths = v.GetStringSlice("internal_import_paths")
	}
	if v.IsSet("external_types_to_export") {
		c.ExternalTypesToExport = v.GetStringSlice("external_types_to_export")
	}
	if v.IsSet("wrapper.mode") {
		c.Wrapper.Mode = WrapperMode(v.GetString("wrapper.mode"))
	}
	if v.IsSet("encoding") {
		c.Encoding = v.GetString("encoding")
	}
	if v.IsSet("input.root") {
		c.Input.Root = v.GetString("input.root")
	}
	if v.IsSet("output.file") {
		c.Output.File = v.GetString("output.file")
	}
	if v.IsSet("output.dir") {
		c.Output.Dir = v.GetString("output.dir")
	}
	if v.IsSet("concurrency") {
		c.Concurrency = v.GetInt("concurrency")
	}
}

// NewViper returns a viper instance reading DTSBUNDLE_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("DTSBUNDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ValidationError lists every invalid field found by Validate.
type ValidationError struct {
	FieldErrors []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%s (%d errors): %s", ErrInvalidConfig, len(e.FieldErrors), strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

func (c *Config) Validate() error {
	var errs []error

	if c.ModuleName != "" && !qualifiedName.MatchString(c.ModuleName) {
		errs = append(errs, fmt.Errorf("module_name: %q is not a valid identifier", c.ModuleName))
	}
	if c.LibraryName != "" && !identifier.MatchString(c.LibraryName) {
		errs = append(errs, fmt.Errorf("library_name: %q is not a valid identifier", c.LibraryName))
	}

	for _, p := range c.InternalImportPaths {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("internal_import_paths: %q: %w", p, err))
		}
	}

	switch c.Wrapper.Mode {
	case WrapperFlatten, WrapperRename, WrapperUnwrap:
	default:
		errs = append(errs, fmt.Errorf("wrapper.mode: unknown mode %q", c.Wrapper.Mode))
	}

	if _, err := htmlindex.Get(c.Encoding); err != nil {
		errs = append(errs, fmt.Errorf("encoding: %q: %w", c.Encoding, err))
	}

	if len(c.Input.Include) == 0 {
		errs = append(errs, errors.New("input.include: at least one pattern is required"))
	}
	for _, p := range append(append([]string{}, c.Input.Include...), c.Input.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("input: invalid glob %q", p))
		}
	}

	if c.Output.File == "" && c.Output.Dir == "" {
		errs = append(errs, errors.New("output: one of file or dir is required"))
	}
	if c.Cache.MaxEntries <= 0 {
		errs = append(errs, fmt.Errorf("cache.max_entries: must be positive, got %d", c.Cache.MaxEntries))
	}
	if c.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency: must be positive, got %d", c.Concurrency))
	}

	if len(errs) > 0 {
		return &ValidationError{FieldErrors: errs}
	}
	return nil
}
