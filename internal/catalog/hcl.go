package catalog

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// hclFile is the top-level structure of an HCL catalog:
//
//	suite "unittest" {
//	  command  = ["python3", "-m", "pytest", "tests/python/unittest"]
//	  requires = ["gpu"]
//	  targets  = ["llvm", "cuda"]
//	}
//
//	feature "gpu" {
//	  command = ["nvidia-smi", "-L"]
//	  timeout = "10s"
//	}
type hclFile struct {
	Suites   []*hclSuite   `hcl:"suite,block"`
	Features []*hclFeature `hcl:"feature,block"`
}

type hclSuite struct {
	Name             string            `hcl:"name,label"`
	Description      *string           `hcl:"description,optional"`
	Command          []string          `hcl:"command,optional"`
	Script           *string           `hcl:"script,optional"`
	WorkingDirectory *string           `hcl:"working_directory,optional"`
	Requires         []string          `hcl:"requires,optional"`
	Targets          []string          `hcl:"targets,optional"`
	TargetFlag       *string           `hcl:"target_flag,optional"`
	Enabled          *bool             `hcl:"enabled,optional"`
	Env              map[string]string `hcl:"env,optional"`
}

type hclFeature struct {
	Name     string   `hcl:"name,label"`
	Command  []string `hcl:"command,optional"`
	LookPath *string  `hcl:"lookpath,optional"`
	Env      *string  `hcl:"env,optional"`
	Timeout  *string  `hcl:"timeout,optional"`
}

func decodeHCL(src []byte, filename, root string) (*Catalog, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, &LoadError{Reason: "parse hcl", Err: diags}
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, &LoadError{Reason: "decode hcl", Err: diags}
	}

	suites := make([]Suite, 0, len(parsed.Suites))
	for _, s := range parsed.Suites {
		command := s.Command
		if s.Script != nil {
			if len(command) > 0 {
				return nil, &LoadError{Reason: fmt.Sprintf("suite %q sets both command and script", s.Name)}
			}
			command = shellCommand(*s.Script)
		}
		enabled := true
		if s.Enabled != nil {
			enabled = *s.Enabled
		}
		suites = append(suites, Suite{
			Name:             s.Name,
			Description:      deref(s.Description),
			Command:          command,
			WorkingDirectory: deref(s.WorkingDirectory),
			Requires:         s.Requires,
			Targets:          s.Targets,
			TargetFlag:       deref(s.TargetFlag),
			Enabled:          enabled,
			Env:              s.Env,
		})
	}

	features := make([]Feature, 0, len(parsed.Features))
	for _, f := range parsed.Features {
		var timeout time.Duration
		if f.Timeout != nil {
			d, err := time.ParseDuration(*f.Timeout)
			if err != nil {
				return nil, &LoadError{Reason: fmt.Sprintf("feature %q timeout", f.Name), Err: err}
			}
			timeout = d
		}
		features = append(features, Feature{
			Name:     f.Name,
			Command:  f.Command,
			LookPath: deref(f.LookPath),
			Env:      deref(f.Env),
			Timeout:  timeout,
		})
	}

	return New(root, suites, features)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
