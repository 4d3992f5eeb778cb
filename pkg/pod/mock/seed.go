package mock

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Ratio1/pod_sdk_go/internal/ldpapi"
	"github.com/Ratio1/pod_sdk_go/pkg/lines"
)

// Seed describes the initial content of a mock pod.
//
//	containers: [notes]
//	resources:
//	  - container: notes
//	    name: todo.txt
//	    items: [buy milk, call bob]
type Seed struct {
	Containers []string       `yaml:"containers"`
	Resources  []SeedResource `yaml:"resources"`
}

// SeedResource is one resource of a Seed.
type SeedResource struct {
	Container string   `yaml:"container"`
	Name      string   `yaml:"name"`
	Items     []string `yaml:"items"`
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mock pod: read seed: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a YAML seed document.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("mock pod: decode seed: %w", err)
	}
	return &seed, nil
}

// Apply loads the seed into the pod. Containers referenced by resources are
// created as needed.
func (p *Pod) Apply(seed *Seed) error {
	if seed == nil {
		return nil
	}
	for _, name := range seed.Containers {
		name = strings.Trim(strings.TrimSpace(name), "/")
		if name == "" {
			return fmt.Errorf("mock pod: seed container name is empty")
		}
		if res := p.putContainer(p.root+name+"/", nil); res.status >= 400 {
			return fmt.Errorf("mock pod: seed container %q: status %d", name, res.status)
		}
	}
	for _, r := range seed.Resources {
		containerName := strings.Trim(strings.TrimSpace(r.Container), "/")
		name := strings.TrimSpace(r.Name)
		if containerName == "" || name == "" || strings.Contains(name, "/") {
			return fmt.Errorf("mock pod: seed resource %q/%q is invalid", r.Container, r.Name)
		}
		body, err := lines.Marshal(r.Items)
		if err != nil {
			return fmt.Errorf("mock pod: seed resource %s/%s: %w", containerName, name, err)
		}
		if res := p.putContainer(p.root+containerName+"/", nil); res.status >= 400 {
			return fmt.Errorf("mock pod: seed container %q: status %d", containerName, res.status)
		}
		header := http.Header{"Content-Type": []string{ldpapi.ContentTypeText}}
		if res := p.putResource(p.root+containerName+"/"+name, header, body); res.status >= 400 {
			return fmt.Errorf("mock pod: seed resource %s/%s: status %d", containerName, name, res.status)
		}
	}
	return nil
}
