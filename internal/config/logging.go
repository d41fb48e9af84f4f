package config

// LoggingConfig configures per-service output processing: multiline
// joining, secret redaction, JSON field extraction, level detection, and
// include/exclude filtering, applied to a service's captured output
// before it reaches the session log.
type LoggingConfig struct {
	MinLevel       string                `yaml:"min_level"`
	Redaction      *RedactionConfig      `yaml:"redaction"`
	Multiline      *MultilineConfig      `yaml:"multiline"`
	JSON           *JSONConfig           `yaml:"json"`
	LevelDetection *LevelDetectionConfig `yaml:"level_detection"`
	Filters        *FilterConfig         `yaml:"filters"`
}

// RedactionConfig configures sensitive-data redaction.
type RedactionConfig struct {
	Enabled  bool               `yaml:"enabled"`
	Patterns []RedactionPattern `yaml:"patterns"`
}

// RedactionPattern is one regex-to-replacement redaction rule.
type RedactionPattern struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// MultilineConfig configures joining of multi-line entries (stack traces)
// into a single log line.
type MultilineConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Pattern  string `yaml:"pattern"`
	MaxLines int    `yaml:"max_lines"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// JSONConfig configures JSON log line parsing.
type JSONConfig struct {
	Enabled        bool `yaml:"enabled"`
	DetectAuto     bool `yaml:"detect_auto"`
	ExtractLevel   bool `yaml:"extract_level"`
	ExtractMessage bool `yaml:"extract_message"`
	MergeFields    bool `yaml:"merge_fields"`
}

// LevelDetectionConfig configures level inference from unstructured
// output content.
type LevelDetectionConfig struct {
	Enabled      bool              `yaml:"enabled"`
	Patterns     map[string]string `yaml:"patterns"`
	DefaultLevel string            `yaml:"default_level"`
}

// FilterConfig configures include/exclude line filtering.
type FilterConfig struct {
	Exclude []string `yaml:"exclude"`
	Include []string `yaml:"include"`
}
