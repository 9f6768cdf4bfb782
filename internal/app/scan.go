package app

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/commodctl/internal/library"
)

func newScanCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the distribution directory for mods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLibrary(); err != nil {
				return err
			}
			opts := library.ScanOpts{StrictFileChecks: strict, LoadGUI: false}
			if err := lib.Scan(cmd.Context(), opts); err != nil {
				return err
			}

			mods := lib.Mods()
			header("%d mod(s) in %s", len(mods), cfg.DistributionDir)
			for _, m := range mods {
				loc := localized(m)
				line := fmt.Sprintf("  %s  %s %s [%s/%s]",
					color.WhiteString(m.Name), loc.DisplayName, m.Version, loc.Language, m.Installment)
				if len(m.Translations) > 0 {
					line += fmt.Sprintf("  (+%d translations)", len(m.Translations))
				}
				fmt.Println(line)
			}

			for _, e := range lib.Errors() {
				warn("skipped %s: %v", e.ManifestPath, e.Err)
			}
			if len(lib.Errors()) == 0 {
				ok("scan complete")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Also verify content directories exist for each mod")
	return cmd
}
