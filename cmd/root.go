package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/slotplan/app"
	"github.com/kilianp07/slotplan/config"
	"github.com/kilianp07/slotplan/infra/logger"
	"github.com/kilianp07/slotplan/infra/monitoring"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "slotplan",
	Short:         "Weekly meeting slot planner",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// setup loads the configuration, configures logging and monitoring and
// builds the service. The returned func releases everything.
func setup() (*app.Service, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	closeLog, err := logger.Configure(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}
	flush, err := monitoring.Setup(cfg.Sentry)
	if err != nil {
		_ = closeLog()
		return nil, nil, fmt.Errorf("monitoring: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		flush()
		_ = closeLog()
		return nil, nil, err
	}
	log := logger.New("main")
	return svc, func() {
		if err := svc.Close(); err != nil {
			log.Errorf("service close: %v", err)
		}
		flush()
		_ = closeLog()
	}, nil
}

func parseSince(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("since must be RFC3339 or a duration: %q", s)
	}
	return time.Now().Add(-d), nil
}
