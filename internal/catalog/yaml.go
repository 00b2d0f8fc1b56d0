package catalog

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

type yamlDocument struct {
	Suites   []yamlSuite   `yaml:"suites"`
	Features []yamlFeature `yaml:"features"`
}

type yamlSuite struct {
	Name             string                 `yaml:"name"`
	Description      string                 `yaml:"description"`
	Command          yamlCommand            `yaml:"command"`
	WorkingDirectory string                 `yaml:"working_directory"`
	Requires         []string               `yaml:"requires"`
	Targets          []string               `yaml:"targets"`
	TargetFlag       string                 `yaml:"target_flag"`
	Enabled          *bool                  `yaml:"enabled"`
	Env              map[string]interface{} `yaml:"env"`
}

type yamlFeature struct {
	Name     string        `yaml:"name"`
	Command  yamlCommand   `yaml:"command"`
	LookPath string        `yaml:"lookpath"`
	Env      string        `yaml:"env"`
	Timeout  time.Duration `yaml:"timeout"`
}

// yamlCommand accepts either an argv list or a single string, which is run
// through sh -c.
type yamlCommand []string

func (c *yamlCommand) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		if s == "" {
			*c = nil
			return nil
		}
		*c = shellCommand(s)
		return nil
	case yaml.SequenceNode:
		var argv []string
		if err := node.Decode(&argv); err != nil {
			return err
		}
		*c = argv
		return nil
	default:
		return fmt.Errorf("line %d: command must be a string or a list of strings", node.Line)
	}
}

func decodeYAML(r io.Reader, root string) (*Catalog, error) {
	var doc yamlDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return New(root, nil, nil)
		}
		return nil, &LoadError{Reason: "parse yaml", Err: err}
	}

	suites := make([]Suite, 0, len(doc.Suites))
	for _, s := range doc.Suites {
		enabled := true
		if s.Enabled != nil {
			enabled = *s.Enabled
		}
		suites = append(suites, Suite{
			Name:             s.Name,
			Description:      s.Description,
			Command:          s.Command,
			WorkingDirectory: s.WorkingDirectory,
			Requires:         s.Requires,
			Targets:          s.Targets,
			TargetFlag:       s.TargetFlag,
			Enabled:          enabled,
			Env:              convertEnv(s.Env),
		})
	}

	features := make([]Feature, 0, len(doc.Features))
	for _, f := range doc.Features {
		features = append(features, Feature{
			Name:     f.Name,
			Command:  f.Command,
			LookPath: f.LookPath,
			Env:      f.Env,
			Timeout:  f.Timeout,
		})
	}

	return New(root, suites, features)
}

func convertEnv(input map[string]interface{}) map[string]string {
	if len(input) == 0 {
		return nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		out[k] = fmt.Sprint(v)
	}
	return out
}

func shellCommand(script string) []string {
	return []string{"sh", "-c", script}
}
