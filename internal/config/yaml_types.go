package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StringOrList unmarshals a YAML scalar or a sequence of scalars into a
// []string, mirroring Compose's flexible shape for `command`/`env_file`.
type StringOrList []string

func (s *StringOrList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		*s = []string{single}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	case 0:
		*s = nil
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}
}

// MapOrList unmarshals either a YAML mapping (`KEY: value`) or a sequence of
// "KEY=value" strings into a map[string]string, mirroring Compose's
// `environment` field.
type MapOrList map[string]string

func (m *MapOrList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		raw := map[string]string{}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*m = raw
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		raw := make(map[string]string, len(list))
		for _, entry := range list {
			key, value, found := strings.Cut(entry, "=")
			if !found {
				return fmt.Errorf("line %d: environment entry %q is not in KEY=value form", node.Line, entry)
			}
			raw[key] = value
		}
		*m = raw
		return nil
	case 0:
		*m = nil
		return nil
	default:
		return fmt.Errorf("line %d: expected a mapping or a list of KEY=value strings", node.Line)
	}
}

// UnmarshalYAML accepts depends_on either as a list whose items are names
// (implying ConditionStarted) or {name, condition} blocks, or as a mapping
// of name to {condition: ...}, matching Compose's long form.
func (d *DependsOn) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		edges := make(DependsOn, 0, len(node.Content))
		for _, item := range node.Content {
			edge := DependencyEdge{Name: item.Value, Condition: ConditionStarted}
			if item.Kind == yaml.MappingNode {
				if err := item.Decode(&edge); err != nil {
					return err
				}
			}
			edges = append(edges, edge)
		}
		*d = edges
		return nil
	case yaml.MappingNode:
		// Walk the node pairs rather than decoding into a Go map so the
		// edges keep their declaration order.
		edges := make(DependsOn, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var spec struct {
				Condition string `yaml:"condition"`
			}
			if err := node.Content[i+1].Decode(&spec); err != nil {
				return err
			}
			cond := Condition(spec.Condition)
			if cond == "" {
				cond = ConditionStarted
			}
			edges = append(edges, DependencyEdge{Name: node.Content[i].Value, Condition: cond})
		}
		*d = edges
		return nil
	case 0:
		*d = nil
		return nil
	default:
		return fmt.Errorf("line %d: depends_on must be a list of names or a mapping to condition blocks", node.Line)
	}
}

// UnmarshalYAML accepts a bare integer (seconds) or a Go duration string
// ("500ms", "5s", "2m") for healthcheck/timeout fields.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a duration scalar", node.Line)
	}
	if seconds, err := strconv.Atoi(node.Value); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}
