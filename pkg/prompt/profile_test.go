package prompt_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/fitplan/pkg/prompt"
	"github.com/m-mizutani/gt"
)

const profilesYAML = `
profiles:
  - model: model-a
    template: "A: {{ .Input }}"
  - model: model-b
    template: |
      B: {{ .Goal }}
`

func TestLoadProfiles(t *testing.T) {
	p, err := prompt.LoadProfiles(strings.NewReader(profilesYAML))
	gt.NoError(t, err)
	gt.Equal(t, p.Len(), 2)

	gt.Equal(t, p.Template("model-a")(nil, "goal", "hello"), "A: hello")
	gt.S(t, p.Template("model-b")(nil, "goal", "hello")).Contains("B: goal")

	// unknown models use the default template
	gt.S(t, p.Template("model-c")(nil, "", "x")).Contains(prompt.NoContext)
}

func TestLoadProfilesEmpty(t *testing.T) {
	p, err := prompt.LoadProfiles(strings.NewReader(""))
	gt.NoError(t, err)
	gt.Equal(t, p.Len(), 0)
}

func TestLoadProfilesInvalid(t *testing.T) {
	tests := map[string]string{
		"missing model":    "profiles:\n  - template: x\n",
		"missing template": "profiles:\n  - model: m\n",
		"duplicated model": "profiles:\n  - model: m\n    template: x\n  - model: m\n    template: y\n",
		"broken template":  "profiles:\n  - model: m\n    template: \"{{ .Nope }}\"\n",
		"broken yaml":      "profiles: [",
	}

	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := prompt.LoadProfiles(strings.NewReader(src))
			gt.Error(t, err)
		})
	}
}

func TestLoadProfilesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	gt.NoError(t, os.WriteFile(path, []byte(profilesYAML), 0600))

	p, err := prompt.LoadProfilesFile(path)
	gt.NoError(t, err)
	gt.Equal(t, p.Len(), 2)

	_, err = prompt.LoadProfilesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	gt.Error(t, err)
}

func TestNilProfiles(t *testing.T) {
	var p *prompt.Profiles
	gt.Equal(t, p.Len(), 0)
	gt.S(t, p.Template("any")(nil, "", "x")).Contains(prompt.NoContext)
}
