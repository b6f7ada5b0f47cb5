// Command knots turns a delta sweep log into a knot table and, optionally,
// the delta lookup tables built on those knots.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/rendercal/internal/knots"
	"github.com/coreman2200/rendercal/internal/lut"
	"github.com/coreman2200/rendercal/internal/sweep"
	"github.com/coreman2200/rendercal/internal/trials"
)

func main() {
	var (
		in     = flag.String("in", "data/data_delta.txt", "sweep log (CSV)")
		out    = flag.String("out", "knots.yaml", "knot table output")
		k      = flag.Float64("k", knots.DefaultConfig().Reflectance, "peak Lambertian reflectance")
		lutDir = flag.String("lut-dir", "", "also write delta_NN.cube tables on the new knots here")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	f, err := os.Open(*in)
	if err != nil {
		log.Fatal().Err(err).Msg("open sweep log")
	}
	tab, err := trials.ReadCSV(f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Str("path", *in).Msg("read sweep log")
	}

	cfg := knots.DefaultConfig()
	cfg.Reflectance = *k
	table, err := knots.Extract(tab, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("extract knots")
	}
	if err := sweep.SaveKnots(*out, table); err != nil {
		log.Fatal().Err(err).Msg("save knots")
	}
	log.Info().Int("knots", len(table.Knots)).Int("rows", len(tab.Rows)).Str("path", *out).Msg("knots written")

	if *lutDir == "" {
		return
	}
	lib, err := lut.DeltaLibrary(table.Knots)
	if err != nil {
		log.Fatal().Err(err).Msg("build delta tables")
	}
	if err := lib.SaveDir(*lutDir); err != nil {
		log.Fatal().Err(err).Msg("write delta tables")
	}
	log.Info().Int("tables", len(lib.Deltas())).Str("dir", *lutDir).Msg("delta tables written")
}
