package prompt

import (
	"io"
	"os"
	"strings"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Profile binds a prompt template to a completion model
type Profile struct {
	Model    string `yaml:"model"`
	Template string `yaml:"template"`
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// Profiles resolves the prompt template of a completion model
type Profiles struct {
	templates map[string]model.PromptTemplate
}

// NewProfiles returns an empty set; every model resolves to Default
func NewProfiles() *Profiles {
	return &Profiles{templates: make(map[string]model.PromptTemplate)}
}

// LoadProfiles reads profiles from YAML:
//
//	profiles:
//	  - model: meta-llama/Llama-3.1-8B-Instruct
//	    template: |
//	      Goal: {{ .Goal }}
//	      {{ .Context }}
//	      {{ .Input }}
func LoadProfiles(r io.Reader) (*Profiles, error) {
	var file profileFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, goerr.Wrap(err, "failed to decode profiles")
	}

	p := NewProfiles()
	for i, prof := range file.Profiles {
		if prof.Model == "" {
			return nil, goerr.New("profile model is empty", goerr.V("index", i))
		}
		if strings.TrimSpace(prof.Template) == "" {
			return nil, goerr.New("profile template is empty", goerr.V("model", prof.Model))
		}
		if _, dup := p.templates[prof.Model]; dup {
			return nil, goerr.New("duplicated profile", goerr.V("model", prof.Model))
		}

		tmpl, err := Parse(prof.Model, prof.Template)
		if err != nil {
			return nil, err
		}
		p.templates[prof.Model] = tmpl
	}

	return p, nil
}

// LoadProfilesFile reads profiles from a YAML file
func LoadProfilesFile(path string) (*Profiles, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open profiles file", goerr.V("path", path))
	}
	defer f.Close()

	return LoadProfiles(f)
}

// Template returns the template of modelName, or Default
func (p *Profiles) Template(modelName string) model.PromptTemplate {
	if p != nil {
		if tmpl, ok := p.templates[modelName]; ok {
			return tmpl
		}
	}
	return Default
}

// Len returns the number of configured profiles
func (p *Profiles) Len() int {
	if p == nil {
		return 0
	}
	return len(p.templates)
}
