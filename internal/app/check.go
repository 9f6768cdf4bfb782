package app

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/commodctl/internal/game"
	"github.com/blackwell-systems/commodctl/internal/library"
	"github.com/blackwell-systems/commodctl/internal/mods"
	"github.com/blackwell-systems/commodctl/internal/modver"
	"github.com/blackwell-systems/commodctl/internal/resolver"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <mod-name>",
		Short: "Check whether a mod can be installed on the configured game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, gc, err := loadModAndGame(cmd, args[0])
			if err != nil {
				return err
			}

			res := resolver.Check(m, resolverContext(gc))
			printVerdict(m, res)
			if !res.CanInstall {
				return fmt.Errorf("%s cannot be installed", m.Name)
			}
			return nil
		},
	}
}

// loadModAndGame resolves the named mod from a scan and probes the game
// directory; shared by check and install.
func loadModAndGame(cmd *cobra.Command, name string) (*mods.Mod, *game.Copy, error) {
	if err := requireLibrary(); err != nil {
		return nil, nil, err
	}
	if _, err := requireGameDir(); err != nil {
		return nil, nil, err
	}
	if err := lib.Scan(cmd.Context(), library.ScanOpts{}); err != nil {
		return nil, nil, err
	}
	m := lib.FindByName(name)
	if m == nil {
		return nil, nil, fmt.Errorf("mod %q not found in %s", name, cfg.DistributionDir)
	}

	res := game.Probe(cfg.GameDir)
	switch res.Kind {
	case game.ProbeValid:
		return m, res.Copy, nil
	case game.ProbeManifestButUnpatched, game.ProbePatchedButNoManifest:
		warn("game copy at %s has leftovers from a previous install", cfg.GameDir)
		return m, res.Copy, nil
	}
	return nil, nil, fmt.Errorf("game directory %s is not usable (probe: %v)", cfg.GameDir, res.Kind)
}

func resolverContext(gc *game.Copy) resolver.Context {
	return resolver.Context{
		Installed:       gc.InstalledContent,
		Descriptions:    gc.InstalledDescriptions,
		GameInstallment: gc.Installment,
		PatcherVersion:  modver.Parse(appVersion),
	}
}

func printVerdict(m *mods.Mod, res resolver.Result) {
	if res.CanInstall {
		ok("%s %s can be installed", m.Name, m.Version)
	} else {
		fmt.Println(color.RedString("✗"), fmt.Sprintf("%s %s cannot be installed", m.Name, m.Version))
	}
	if res.Reinstall.IsReinstall {
		warn("reinstall over existing %s (%s)", res.Reinstall.ExistingVersion, res.Reinstall.Warning)
	}
	for _, d := range res.Diagnostics {
		fmt.Printf("  - %s\n", d.Message)
	}
}
