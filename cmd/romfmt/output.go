package main

import (
	"fmt"
	"os"

	"github.com/docker/go-units"
	"github.com/dwforge/romfmt/pkg"
	"github.com/dwforge/romfmt/pkg/format"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

func init() {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

func printError(err error) {
	failColor.Fprint(os.Stderr, "✗ ")
	fmt.Fprintln(os.Stderr, err)
}

func printContainer(label, path string, c *format.Container) {
	okColor.Print("✓ ")
	fmt.Printf("%s %s -> %s (%s, %s)\n",
		label, c.Header.AssetType, path,
		units.HumanSize(float64(len(c.Data))),
		format.FormatChecksum(c.Header.Checksum))
}

func printReport(r *pkg.VerifyReport) {
	fmt.Println(r.Path)
	for _, c := range r.Checks {
		if c.Passed {
			okColor.Print("  ✓ ")
		} else {
			failColor.Print("  ✗ ")
		}
		fmt.Print(c.Name)
		if c.Detail != "" {
			dimColor.Printf("  %s", c.Detail)
		}
		fmt.Println()
	}
}
