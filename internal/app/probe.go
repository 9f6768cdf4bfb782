package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/commodctl/internal/game"
)

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe [dir]",
		Short: "Probe a game directory and report its state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := cfg.GameDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return fmt.Errorf("no game directory given")
			}

			res := game.Probe(dir)
			switch res.Kind {
			case game.ProbeValid:
				ok("game copy at %s", dir)
				fmt.Printf("  executable: %s\n", res.Copy.TargetExe)
				fmt.Printf("  version:    %s\n", res.Copy.ExeLabel)
				fmt.Printf("  installment: %s\n", res.Copy.Installment)
				if len(res.Copy.InstalledContent) == 0 {
					fmt.Println("  installed:  nothing (clean copy)")
					return nil
				}
				header("installed content:")
				for name, desc := range res.Copy.InstalledDescriptions {
					fmt.Printf("  %s  %s\n", name, desc)
				}
				return nil
			case game.ProbeWrongPath:
				return fmt.Errorf("%s is not a directory", dir)
			case game.ProbeInvalidDir:
				return fmt.Errorf("%s is not a game directory: missing %s", dir, res.MissingPath)
			case game.ProbeExeNotFound:
				return fmt.Errorf("no game executable found in %s", dir)
			case game.ProbeExeNotSupported:
				return fmt.Errorf("game version %q cannot host community patch content", res.Label)
			case game.ProbeExeIsRunning:
				return fmt.Errorf("the game appears to be running, close it and retry")
			case game.ProbeInvalidManifest:
				return fmt.Errorf("installation manifest in %s is invalid for a %s executable", dir, res.Label)
			case game.ProbeManifestButUnpatched:
				warn("found an installation manifest but the executable (%s) is unpatched, dirty copy", res.Label)
				return nil
			case game.ProbePatchedButNoManifest:
				warn("executable is patched (%s) but no installation manifest exists, dirty copy", res.Label)
				return nil
			}
			return fmt.Errorf("unexpected probe outcome")
		},
	}
}
