package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bgricker/suitegate/internal/catalog"
	"github.com/bgricker/suitegate/internal/config"
	"github.com/bgricker/suitegate/internal/feature"
	"github.com/bgricker/suitegate/internal/logging"
)

const defaultProbeTimeout = 30 * time.Second

// session bundles what every subcommand needs: resolved configuration, a
// logger and the loaded catalog.
type session struct {
	cfg     config.Config
	root    string
	log     *zap.Logger
	catalog *catalog.Catalog
}

func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	root, err := os.Getwd()
	if err != nil {
		return config.Config{}, "", fmt.Errorf("determine working directory: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return config.Config{}, "", err
	}
	if err := config.ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return config.Config{}, "", err
	}

	flags, err := gatherFlags(cmd)
	if err != nil {
		return config.Config{}, "", err
	}
	config.ApplyFlags(&cfg, flags)

	if cfg.Verbose && !flags.LogLevel.Set {
		cfg.LogLevel = "debug"
	}
	return cfg, root, nil
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return nil, &config.ConfigError{Field: "log", Reason: err.Error()}
	}

	path, err := catalog.Discover(root, cfg.Catalog)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	log.Debug("catalog loaded",
		zap.String("path", path),
		zap.Int("suites", len(cat.Suites())),
		zap.Int("features", len(cat.Features())))

	return &session{cfg: cfg, root: root, log: log, catalog: cat}, nil
}

// prober builds the feature prober for the catalog, with operator
// assumptions taking precedence over declared probes.
func (s *session) prober(observe func(feature.Result)) (*feature.Prober, error) {
	p := feature.NewProber(s.catalog.Probes(), feature.Options{
		Logger:  s.log,
		Timeout: defaultProbeTimeout,
		Observe: observe,
	})
	for _, raw := range s.cfg.AssumeFeatures {
		tag, availability, err := feature.ParseAssumption(raw)
		if err != nil {
			return nil, &config.ConfigError{Field: "assume_features", Value: raw, Reason: err.Error()}
		}
		p.Assume(tag, availability)
	}
	return p, nil
}
