package main

import (
	"fmt"
	"os"

	"github.com/dwforge/romfmt/pkg"
	"github.com/dwforge/romfmt/pkg/config"
	"github.com/dwforge/romfmt/pkg/format"
	"github.com/dwforge/romfmt/pkg/pipeline"
	"github.com/moby/sys/atomicwriter"
	"github.com/spf13/cobra"
)

func requireROM(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&romPath, "rom", "r", "", "Path to the ROM image (required)")
	if err := cmd.MarkFlagRequired("rom"); err != nil {
		panic(err)
	}
}

func workspaceFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&workDir, "workspace", "w", "assets", "Workspace directory for editable files")
}

func writeContainer(cfg *config.Config, path string, c *format.Container) error {
	mode, err := cfg.WorkspaceMode()
	if err != nil {
		return err
	}
	return atomicwriter.WriteFile(path, c.Bytes(), mode)
}

func newExtractCmd() *cobra.Command {
	var typeName, output string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract one asset section into a container file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup("extract")
			if err != nil {
				return err
			}
			t, err := format.ParseAssetType(typeName)
			if err != nil {
				return err
			}
			p, err := pipeline.FromConfig(cfg, logger)
			if err != nil {
				return err
			}
			rom, err := pipeline.LoadROM(romPath)
			if err != nil {
				return err
			}

			c, err := p.Extract(rom, t)
			if err != nil {
				return err
			}
			if output == "" {
				output = t.String() + ".rfmt"
			}
			if err := writeContainer(cfg, output, c); err != nil {
				return err
			}
			printContainer("extracted", output, c)
			return nil
		},
	}
	requireROM(cmd)
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Asset type (monster, spell, item, map, text, graphics)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Container path (defaults to <type>.rfmt)")
	if err := cmd.MarkFlagRequired("type"); err != nil {
		panic(err)
	}
	return cmd
}

func newTransformCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transform CONTAINER...",
		Short: "Verify containers and write their editable documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup("transform")
			if err != nil {
				return err
			}
			p, err := pipeline.FromConfig(cfg, logger)
			if err != nil {
				return err
			}
			ws, err := pkg.OpenWorkspace(cfg, workDir, logger)
			if err != nil {
				return err
			}

			for _, path := range args {
				raw, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				ea, err := p.TransformBytes(raw)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				files, err := ws.Save(ea)
				if err != nil {
					return err
				}
				for _, f := range files {
					okColor.Print("✓ ")
					fmt.Printf("%s -> %s\n", path, f)
				}
			}
			return nil
		},
	}
	workspaceFlag(cmd)
	return cmd
}

func newPackageCmd() *cobra.Command {
	var typeName, output string
	cmd := &cobra.Command{
		Use:   "package",
		Short: "Validate an edited document and build a container file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup("package")
			if err != nil {
				return err
			}
			t, err := format.ParseAssetType(typeName)
			if err != nil {
				return err
			}
			ws, err := pkg.OpenWorkspace(cfg, workDir, logger)
			if err != nil {
				return err
			}
			ea, err := ws.Load(t)
			if err != nil {
				return err
			}
			p, err := pipeline.FromConfig(cfg, logger)
			if err != nil {
				return err
			}

			c, err := p.Package(ea)
			if err != nil {
				return err
			}
			if output == "" {
				output = t.String() + ".rfmt"
			}
			if err := writeContainer(cfg, output, c); err != nil {
				return err
			}
			printContainer("packaged", output, c)
			return nil
		},
	}
	workspaceFlag(cmd)
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Asset type to package")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Container path (defaults to <type>.rfmt)")
	if err := cmd.MarkFlagRequired("type"); err != nil {
		panic(err)
	}
	return cmd
}

func newReinsertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reinsert CONTAINER...",
		Short: "Write containers back into the ROM after backing it up",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup("reinsert")
			if err != nil {
				return err
			}
			p, err := pipeline.FromConfig(cfg, logger)
			if err != nil {
				return err
			}

			containers := make([]*format.Container, 0, len(args))
			for _, path := range args {
				raw, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				c, err := format.ParseContainer(raw)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				containers = append(containers, c)
			}

			res, err := p.ReinsertFile(cmd.Context(), romPath, containers)
			if err != nil {
				return err
			}
			printReinsert(res)
			return nil
		},
	}
	requireROM(cmd)
	return cmd
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify CONTAINER...",
		Short: "Check container files at every level and report each check",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup("verify")
			if err != nil {
				return err
			}
			p, err := pipeline.FromConfig(cfg, logger)
			if err != nil {
				return err
			}
			v := p.Validator()

			var first error
			for _, path := range args {
				report := pkg.VerifyContainerFile(path, v, logger)
				printReport(report)
				if first == nil && !report.Passed() {
					first = fmt.Errorf("%s: %w", path, report.Err)
				}
			}
			return first
		},
	}
}

func newUnpackCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "unpack",
		Short: "Extract every configured asset into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup("unpack")
			if err != nil {
				return err
			}
			res, err := pkg.Unpack(cmd.Context(), cfg, romPath, workDir, force, logger)
			if err != nil {
				return err
			}
			if res.Skipped {
				okColor.Print("✓ ")
				fmt.Printf("%s is already unpacked from this ROM (%s)\n", workDir, format.FormatChecksum(res.ROMChecksum))
				return nil
			}
			for _, f := range res.Files {
				okColor.Print("✓ ")
				fmt.Println(f)
			}
			return nil
		},
	}
	requireROM(cmd)
	workspaceFlag(cmd)
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an up-to-date workspace")
	return cmd
}

func newRepackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repack",
		Short: "Package every workspace document and write them into the ROM",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup("repack")
			if err != nil {
				return err
			}
			res, err := pkg.Repack(cmd.Context(), cfg, romPath, workDir, logger)
			if err != nil {
				return err
			}
			printReinsert(res)
			return nil
		},
	}
	requireROM(cmd)
	workspaceFlag(cmd)
	return cmd
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore BACKUP",
		Short: "Replace the ROM with a backup taken by reinsert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup("restore")
			if err != nil {
				return err
			}
			p, err := pipeline.FromConfig(cfg, logger)
			if err != nil {
				return err
			}
			if err := p.Restore(cmd.Context(), romPath, args[0]); err != nil {
				return err
			}
			okColor.Print("✓ ")
			fmt.Printf("restored %s from %s\n", romPath, args[0])
			return nil
		},
	}
	requireROM(cmd)
	return cmd
}

func printReinsert(res *pipeline.ReinsertResult) {
	if res.Changed == 0 {
		okColor.Print("✓ ")
		fmt.Println("ROM already up to date")
		return
	}
	for _, t := range format.AllAssetTypes {
		if n, ok := res.PerAsset[t]; ok {
			okColor.Print("✓ ")
			fmt.Printf("%s: %d bytes changed\n", t, n)
		}
	}
	dimColor.Printf("  backup: %s\n", res.Backup)
}
