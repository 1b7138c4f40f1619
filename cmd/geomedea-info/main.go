// Command geomedea-info prints a geomedea file's header summary: version,
// compression, schema, page count, feature count, total bounds, and index
// depth (spec.md Section 6, CLI surface). Peripheral to the format itself
// -- a thin consumer of the public Reader API.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/michaelkirk/geomedea"
)

var cli struct {
	Verbose bool `help:"Enable debug logging." short:"v"`
	Info    struct {
		Path string `help:"Path to a geomedea file." arg:"" type:"existingfile"`
		JSON bool   `help:"Print the summary as JSON instead of text." name:"json"`
	} `cmd:"" help:"Print a geomedea file's header summary."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("geomedea-info"),
		kong.Description("Inspect a geomedea file's header, schema, and index."),
	)

	if cli.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	switch ctx.Command() {
	case "info <path>":
		if err := runInfo(cli.Info.Path, cli.Info.JSON); err != nil {
			log.Error().Err(err).Str("path", cli.Info.Path).Msg("failed to read geomedea file")
			os.Exit(1)
		}
	default:
		log.Error().Str("command", ctx.Command()).Msg("unknown command")
		os.Exit(1)
	}
}

func runInfo(path string, asJSON bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := geomedea.Open(f)
	if err != nil {
		return err
	}
	defer r.Close()

	summary := geomedea.Inspect(r)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("version:       %d\n", summary.Version)
	fmt.Printf("compression:   %s\n", summary.Compression)
	fmt.Printf("hilbert order: %d\n", summary.HilbertOrder)
	fmt.Printf("branching:     %d\n", summary.BranchingFactor)
	fmt.Printf("schema:\n")
	for _, c := range summary.Schema {
		fmt.Printf("  %-20s %s\n", c.Name, c.Kind)
	}
	fmt.Printf("page count:    %d\n", summary.PageCount)
	fmt.Printf("feature count: %d\n", summary.FeatureCount)
	fmt.Printf("total bounds:  %s\n", summary.TotalBounds)
	fmt.Printf("index depth:   %d\n", summary.IndexDepth)
	return nil
}
