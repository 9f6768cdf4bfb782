// Package app wires the cobra command tree around the mod manager core.
package app

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackwell-systems/commodctl/internal/config"
	"github.com/blackwell-systems/commodctl/internal/library"
	"github.com/blackwell-systems/commodctl/internal/logging"
	"github.com/blackwell-systems/commodctl/internal/mods"
	"github.com/blackwell-systems/commodctl/internal/util"
)

var (
	cfg *config.Config
	log *zap.SugaredLogger
	lib *library.Library

	logCleanup func()

	flagNoColor bool
	flagConfig  string
	flagVerbose bool
	flagDistDir string
	flagGameDir string
)

// appVersion is injected from main via SetVersion; it doubles as the
// patcher version for mod compatibility gating.
var appVersion = "dev"

// SetVersion records the build version stamped in by the linker.
func SetVersion(v string) { appVersion = v }

var rootCmd = &cobra.Command{
	Use:   "commodctl",
	Short: "Manage community mods for the Ex Machina game series",
	Long: `commodctl discovers mod packages in a distribution directory, validates
their manifests, checks compatibility against a probed game copy, and
performs installs: file copies, executable byte patches and the
installation manifest inside the game directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.
func Execute() {
	defer func() {
		if logCleanup != nil {
			logCleanup()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		if logCleanup != nil {
			logCleanup()
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/commodctl/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagDistDir, "mods", "", "Mod distribution directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagGameDir, "game", "", "Game directory (overrides config)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		util.InitColor(flagNoColor)

		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if flagDistDir != "" {
			cfg.DistributionDir = flagDistDir
		}
		if flagGameDir != "" {
			cfg.GameDir = flagGameDir
		}
		if flagVerbose {
			cfg.Verbose = true
		}

		log, logCleanup, err = logging.New(cfg.LogFile, cfg.Verbose)
		if err != nil {
			return fmt.Errorf("opening log: %w", err)
		}

		if cfg.DistributionDir != "" {
			lib = library.New(cfg.DistributionDir, log)
		}
		return nil
	}

	rootCmd.AddCommand(
		newScanCmd(),
		newProbeCmd(),
		newCheckCmd(),
		newInstallCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
}

// localized returns the translation matching the configured language,
// falling back to the mod's primary manifest.
func localized(m *mods.Mod) *mods.Mod {
	if tr, ok := m.Translations[cfg.Language]; ok {
		return tr
	}
	return m
}

// ok prints a green success line.
func ok(format string, a ...interface{}) {
	fmt.Println(color.GreenString("✓"), fmt.Sprintf(format, a...))
}

// warn prints a yellow warning line.
func warn(format string, a ...interface{}) {
	fmt.Fprintln(os.Stderr, color.YellowString("!"), fmt.Sprintf(format, a...))
}

// header prints a cyan section heading.
func header(format string, a ...interface{}) {
	fmt.Println(color.CyanString(fmt.Sprintf(format, a...)))
}

func requireLibrary() error {
	if lib == nil {
		return fmt.Errorf("no distribution directory configured, set distribution_dir or pass --mods")
	}
	return nil
}

func requireGameDir() (string, error) {
	if cfg.GameDir == "" {
		return "", fmt.Errorf("no game directory configured, set game_dir or pass --game")
	}
	return cfg.GameDir, nil
}
