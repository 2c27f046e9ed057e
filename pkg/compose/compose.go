package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/podkeep/podkeep/pkg/log"
)

// DefaultRestartPolicy is assumed for services that declare no restart
// policy of their own
const DefaultRestartPolicy = "unless-stopped"

// ContainerSpec identifies one container declared by a compose descriptor
type ContainerSpec struct {
	// Name is the resolved container name: the explicit container_name
	// when declared, otherwise synthesized from the descriptor location
	Name string

	// Service is the service key the container was declared under
	Service string
}

// ParseContainers reads a compose descriptor and returns the containers
// it declares, in declaration order. Services whose restart policy is
// exactly "no" are excluded: the runtime was told not to keep them alive,
// so neither does the monitor.
func ParseContainers(path string) ([]ContainerSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file %s: %w", path, err)
	}

	var doc struct {
		Services yaml.Node `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML %s: %w", path, err)
	}

	if doc.Services.Kind != yaml.MappingNode {
		// No services block; nothing to manage
		return nil, nil
	}

	logger := log.WithComponent("compose")

	var containers []ContainerSpec
	for i := 0; i+1 < len(doc.Services.Content); i += 2 {
		serviceName := doc.Services.Content[i].Value
		serviceNode := doc.Services.Content[i+1]
		if serviceNode.Kind != yaml.MappingNode {
			continue
		}

		restart, ok := scalarField(serviceNode, "restart")
		if !ok {
			restart = DefaultRestartPolicy
		}
		if restart == "no" {
			logger.Debug().
				Str("service", serviceName).
				Str("file", path).
				Msg("skipping service with restart policy 'no'")
			continue
		}

		name, ok := scalarField(serviceNode, "container_name")
		if !ok {
			name = defaultContainerName(path, serviceName)
		}

		containers = append(containers, ContainerSpec{
			Name:    name,
			Service: serviceName,
		})
	}

	return containers, nil
}

// scalarField returns the string value of a scalar entry in a mapping
// node. Reading Node.Value directly keeps an unquoted `restart: no`
// intact instead of letting YAML boolean resolution eat it.
func scalarField(mapping *yaml.Node, key string) (string, bool) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value != key {
			continue
		}
		value := mapping.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return "", false
		}
		return value.Value, true
	}
	return "", false
}

// defaultContainerName synthesizes the compose-style default name
// {parent-directory}_{service}_1. When the descriptor path has no usable
// parent directory the bare service name is the best identity available.
func defaultContainerName(path, service string) string {
	dir := filepath.Base(filepath.Dir(path))
	if dir == "." || dir == string(filepath.Separator) || dir == "" {
		return service
	}
	return fmt.Sprintf("%s_%s_1", strings.ToLower(dir), service)
}
