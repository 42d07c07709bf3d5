package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stillcare/carefront/internal/config"
	"github.com/stillcare/carefront/internal/logging"
	"github.com/stillcare/carefront/internal/metrics"
	"github.com/stillcare/carefront/pkg/dataservice"
	"github.com/stillcare/carefront/pkg/disclosure"
	"github.com/stillcare/carefront/pkg/forms"
	"github.com/stillcare/carefront/pkg/rules"
)

// app bundles what every subcommand needs.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func newApp(cmd *cobra.Command, console bool) (*app, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	var (
		cfg *config.Config
		err error
	)
	if envFile != "" {
		cfg, err = config.LoadFiles(envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	build := logging.New
	if console {
		build = logging.NewConsole
	}
	logger, err := build(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, metrics: metrics.New()}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

func (a *app) catalogue(ctx context.Context) (*forms.Catalogue, error) {
	if a.cfg.FormsSchema != "" {
		a.logger.Info("loading form catalogue", zap.String("path", a.cfg.FormsSchema))
		return forms.LoadFile(ctx, a.cfg.FormsSchema, forms.WithValidation())
	}
	return forms.Default(ctx)
}

func (a *app) rules() (*rules.Store, error) {
	if a.cfg.RulesDir != "" {
		info, err := os.Stat(a.cfg.RulesDir)
		if err != nil {
			return nil, fmt.Errorf("rules dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("rules dir: %s is not a directory", a.cfg.RulesDir)
		}
		a.logger.Info("loading rule tables", zap.String("dir", a.cfg.RulesDir))
		return rules.LoadFS(os.DirFS(a.cfg.RulesDir))
	}
	return rules.Default()
}

func (a *app) dataService() (*dataservice.Client, error) {
	return dataservice.New(a.cfg.APIBaseURL,
		dataservice.WithLogger(a.logger),
		dataservice.WithTimeout(a.cfg.RequestTimeout),
		dataservice.WithObserver(a.metrics.ObserveDataService),
	)
}

// disclosureOptions logs every rule evaluation at debug level and exposes
// extras to `when` expressions.
func (a *app) disclosureOptions(extras map[string]any) []disclosure.Option {
	opts := []disclosure.Option{disclosure.WithObserver(func(e disclosure.Event) {
		a.logger.Debug("rule applied",
			zap.String("form", e.Form),
			zap.String("trigger", e.Trigger),
			zap.Bool("disclosed", e.State),
		)
	})}
	if len(extras) > 0 {
		opts = append(opts, disclosure.WithExtras(extras))
	}
	return opts
}
