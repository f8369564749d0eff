package plugins

import (
	"fmt"
	"net/http"

	"github.com/signalpost/signalpost/internal/config"
	"github.com/signalpost/signalpost/internal/source"
)

// RegisterExtractorPlugins discovers YAML and Go extractor definitions under
// .signalpost/plugins and wires each into the registry and the link router.
func RegisterExtractorPlugins(registry *source.Registry, router *source.Router, cfg *config.Config) error {
	return RegisterExtractorPluginsWithClient(registry, router, cfg, nil)
}

// RegisterExtractorPluginsWithClient is RegisterExtractorPlugins with an
// injectable HTTP client for tests.
func RegisterExtractorPluginsWithClient(registry *source.Registry, router *source.Router, cfg *config.Config, client *http.Client) error {
	if registry == nil || router == nil || cfg == nil {
		return nil
	}
	files, err := loadAllDefinitionFiles(cfg.PluginsDir())
	if err != nil {
		return err
	}
	seen := make(map[string]string)
	for _, file := range files {
		def := file.Definition
		if existing, ok := seen[def.ID]; ok {
			return fmt.Errorf("plugin: duplicate extractor id %s (%s and %s)", def.ID, existing, file.Path)
		}
		seen[def.ID] = file.Path
		if err := registry.Register(def.Kind(), def.Extractor(client)); err != nil {
			return fmt.Errorf("plugin: register %s from %s: %w", def.ID, file.Path, err)
		}
		router.Append(source.HostRule(def.ID, def.Kind(), def.Hosts...))
	}
	return nil
}

func loadAllDefinitionFiles(dir string) ([]DefinitionFile, error) {
	yamlDefs, err := LoadDefinitionDir(dir)
	if err != nil {
		return nil, err
	}
	goDefs, err := LoadGoDefinitionDir(dir)
	if err != nil {
		return nil, err
	}
	return append(yamlDefs, goDefs...), nil
}
