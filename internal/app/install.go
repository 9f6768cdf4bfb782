package app

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/commodctl/internal/installer"
	"github.com/blackwell-systems/commodctl/internal/resolver"
)

func newInstallCmd() *cobra.Command {
	var (
		optionFlags []string
		skipBase    bool
		yes         bool
	)

	cmd := &cobra.Command{
		Use:   "install <mod-name>",
		Short: "Install a mod into the configured game directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, gc, err := loadModAndGame(cmd, args[0])
			if err != nil {
				return err
			}

			res := resolver.Check(m, resolverContext(gc))
			printVerdict(m, res)
			if !res.CanInstall {
				return fmt.Errorf("resolver rejected the install")
			}
			benign := res.Reinstall.Warning == resolver.WarnCanReinstall ||
				res.Reinstall.Warning == resolver.WarnCanReinstallNewBuild
			if res.Reinstall.IsReinstall && !benign && !yes {
				return fmt.Errorf("reinstall warning %q, pass --yes to proceed", res.Reinstall.Warning)
			}

			chosen := map[string]string{}
			if skipBase {
				chosen["base"] = "skip"
			}
			for _, kv := range optionFlags {
				parts := strings.SplitN(kv, "=", 2)
				if len(parts) != 2 {
					return fmt.Errorf("bad --option %q, want name=value", kv)
				}
				chosen[parts[0]] = parts[1]
			}
			settings, err := installer.BuildSettings(m, chosen)
			if err != nil {
				return err
			}

			ins := installer.New(log)
			ins.MonitorWidth = cfg.MonitorWidth
			ins.Status = func(s string) {
				fmt.Printf("%s %s\n", color.CyanString("→"), strings.ReplaceAll(s, "_", " "))
			}
			ins.Progress = func(done, total int, name string, size int64) {
				fmt.Printf("\r  [%d/%d] %-50.50s", done, total, name)
				if done == total {
					fmt.Println()
				}
			}

			if err := ins.Install(cmd.Context(), m, settings, gc); err != nil {
				return fmt.Errorf("install failed: %w", err)
			}
			ok("%s %s installed", m.Name, m.Version)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&optionFlags, "option", nil, "Optional content decision, name=yes|skip|<setting> (repeatable)")
	cmd.Flags().BoolVar(&skipBase, "skip-base", false, "Skip base content (only for mods without base content)")
	cmd.Flags().BoolVar(&yes, "yes", false, "Proceed over reinstall warnings")
	return cmd
}
