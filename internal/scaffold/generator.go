package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
)

// Generator writes a scaffolded micromux.yaml into an output directory.
// Unlike the teacher's framework-preset generator, there is exactly one
// template: a two-service example (spec.md §8 scenario 1) a user edits
// to fit their own services.
type Generator struct {
	config *Config
	outDir string
}

// NewGenerator creates a generator that writes into outDir.
func NewGenerator(outDir string) *Generator {
	return &Generator{
		config: DefaultConfig(),
		outDir: outDir,
	}
}

// SetAppName sets the placeholder binary name used in the scaffolded
// command lines.
func (g *Generator) SetAppName(name string) {
	g.config.AppName = name
}

// SetLogLevel sets the scaffolded global.log_level.
func (g *Generator) SetLogLevel(level string) {
	g.config.LogLevel = level
}

// Generate writes micromux.yaml into the output directory.
func (g *Generator) Generate() error {
	if err := os.MkdirAll(g.outDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	content, err := GenerateConfig(g.config)
	if err != nil {
		return err
	}

	path := filepath.Join(g.outDir, "micromux.yaml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}

// Preview returns the scaffolded config content without writing it.
func (g *Generator) Preview() (string, error) {
	return GenerateConfig(g.config)
}
