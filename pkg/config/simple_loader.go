package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
)

// Load reads a YAML file into config after substituting ${VAR} references
// with environment values. Fields absent from the file keep the values
// config already holds, so callers usually pass Default().
func Load(filePath string, config interface{}) error {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").
			WithDetail("path", filePath)
	}
	return Parse(data, config)
}

// Parse decodes YAML content into config with environment substitution.
func Parse(data []byte, config interface{}) error {
	content := substituteEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(content), config); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse YAML")
	}
	return nil
}

// Save saves a configuration to a YAML file
func Save(filePath string, config interface{}) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal YAML")
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to write config file").
			WithDetail("path", filePath)
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	var out strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		out.WriteString(content[:start])
		out.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	out.WriteString(content)
	return out.String()
}
