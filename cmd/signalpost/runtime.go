package main

import (
	"context"
	"fmt"
	"os"

	"github.com/signalpost/signalpost/internal/asset"
	"github.com/signalpost/signalpost/internal/config"
	"github.com/signalpost/signalpost/internal/dedup"
	"github.com/signalpost/signalpost/internal/draft"
	"github.com/signalpost/signalpost/internal/engine"
	"github.com/signalpost/signalpost/internal/extract"
	"github.com/signalpost/signalpost/internal/gate"
	"github.com/signalpost/signalpost/internal/instance"
	"github.com/signalpost/signalpost/internal/llm"
	"github.com/signalpost/signalpost/internal/logging"
	"github.com/signalpost/signalpost/internal/publish"
	"github.com/signalpost/signalpost/internal/source"
	"github.com/signalpost/signalpost/plugins"
)

// runtime bundles everything a command needs once the project is loaded.
type runtime struct {
	cfg    *config.Config
	logger *logging.Logger
	store  *instance.FileStore
	engine *engine.Engine

	closers []func()
}

// newRuntime initializes the .signalpost directory and wires the engine.
func newRuntime(ctx context.Context) (*runtime, error) {
	projectDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if err := config.InitSignalpostDir(projectDir); err != nil {
		return nil, fmt.Errorf("initialize project: %w", err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(projectDir)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: logger}
	rt.closers = append(rt.closers, func() { logger.Close() })

	dedupStore, err := rt.openDedupStore(ctx)
	if err != nil {
		rt.close()
		return nil, err
	}

	collaborator := llm.NewClient(
		cfg.Project.Collaborator.Endpoint,
		cfg.Project.Collaborator.Model,
		cfg.Project.Collaborator.Timeout.Std(),
	)

	web := source.NewWebExtractor()
	registry := source.NewRegistry(web)
	registry.MustRegister(source.KindRepo, source.NewRepoExtractor(cfg.Project.Extraction.GithubToken, web))
	registry.MustRegister(source.KindVideo, source.NewVideoExtractor())
	registry.MustRegister(source.KindSocial, source.NewSocialExtractor())
	router := source.NewRouter()
	if err := plugins.RegisterExtractorPlugins(registry, router, cfg); err != nil {
		rt.close()
		return nil, err
	}

	publishers, err := publish.FromConfig(cfg.Platforms(), logger)
	if err != nil {
		rt.close()
		return nil, err
	}

	lengthLimit := 0
	for _, platform := range cfg.Platforms() {
		if lengthLimit == 0 || platform.LengthLimit < lengthLimit {
			lengthLimit = platform.LengthLimit
		}
	}

	rt.store = instance.NewFileStore(cfg.InstancesDir())
	rt.engine, err = engine.New(
		rt.store,
		extract.New(router, registry,
			extract.WithTimeout(cfg.Project.Extraction.Timeout.Std()),
			extract.WithLogger(logger)),
		gate.New(dedupStore, collaborator, cfg.Project.BusinessContext, logger),
		draft.New(collaborator, lengthLimit, cfg.Project.Style, cfg.Project.BusinessContext, logger),
		asset.New(collaborator, asset.WithLogger(logger)),
		publishers,
		dedupStore,
		engine.WithLogger(logger),
	)
	if err != nil {
		rt.close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) openDedupStore(ctx context.Context) (dedup.Store, error) {
	switch rt.cfg.Project.Dedup.Backend {
	case "memory":
		return dedup.NewMemoryStore(), nil
	case "postgres":
		store, err := dedup.Connect(ctx, rt.cfg.Project.Dedup.DSN)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, store.Close)
		return store, nil
	default:
		return dedup.NewFileStore(rt.cfg.StateDir()), nil
	}
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}
