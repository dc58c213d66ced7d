package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/dwforge/romfmt/pkg"
	"github.com/dwforge/romfmt/pkg/config"
	"github.com/dwforge/romfmt/pkg/logging"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	configPath string
	logLevel   string
	romPath    string
	workDir    string
	rootCmd    *cobra.Command
)

func buildTimestamp() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					return t.UTC().Format(time.RFC3339)
				}
			}
		}
	}
	if exePath, err := os.Executable(); err == nil {
		if stat, err := os.Stat(exePath); err == nil {
			return stat.ModTime().UTC().Format(time.RFC3339)
		}
	}
	return "unknown"
}

func init() {
	rootCmd = &cobra.Command{
		Use:           "romfmt",
		Short:         "Move game data between a ROM image and editable files",
		Long:          "Extract asset sections from a ROM into checksummed containers, edit them as JSON and images, and write them back.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf("romfmt {{.Version}}\nBuilt: %s\n", buildTimestamp()))

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to romfmt.yaml (defaults to ./romfmt.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		newExtractCmd(),
		newTransformCmd(),
		newPackageCmd(),
		newReinsertCmd(),
		newVerifyCmd(),
		newUnpackCmd(),
		newRepackCmd(),
		newRestoreCmd(),
	)
}

// setup loads the configuration and builds the logger for a command
func setup(name string) (*config.Config, hclog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewLogger("romfmt."+name, logging.ResolveLevel(logLevel, cfg.Logging.Level), nil)
	logger.Debug("Loaded configuration", "profile", cfg.ROM.Name, "config", configPath)
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(pkg.ExitCode(err))
	}
}
