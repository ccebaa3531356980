package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/goccy/go-json"

	"github.com/poiesic/obsim"
	"github.com/poiesic/obsim/config"
	"github.com/poiesic/obsim/core"
	"github.com/poiesic/obsim/corpus"
	"github.com/poiesic/obsim/ingestion"
	"github.com/poiesic/obsim/storage/sqlstore"
)

// garments maps a style type to the operations its breakdowns draw from,
// in sewing order.
var garments = map[string][]string{
	"T-Shirt": {
		"Join shoulder", "Attach neck rib", "Top stitch neck", "Attach sleeve",
		"Side seam", "Sleeve hem", "Bottom hem", "Attach care label", "Trim threads",
	},
	"Polo": {
		"Attach placket", "Top stitch placket", "Join shoulder", "Attach collar",
		"Attach sleeve", "Side seam with vent", "Sleeve hem", "Bottom hem",
		"Button hole", "Button attach",
	},
	"Shirt": {
		"Attach pocket", "Front placket", "Back yoke", "Join shoulder",
		"Collar run stitch", "Collar turn and top stitch", "Attach collar",
		"Sleeve placket", "Attach sleeve", "Side seam", "Attach cuff", "Bottom hem",
		"Button hole", "Button attach",
	},
	"Trouser": {
		"Overlock panels", "Attach front pocket", "Back dart", "Attach back pocket",
		"Fly attach", "Join inseam", "Join side seam", "Attach waistband",
		"Belt loop attach", "Bottom hem", "Bartack",
	},
}

var machines = map[string][]string{
	"Join shoulder":   {"OL", "SNLS"},
	"Side seam":       {"OL"},
	"Bottom hem":      {"FL", "SNLS"},
	"Sleeve hem":      {"FL"},
	"Button hole":     {"BH"},
	"Button attach":   {"BS"},
	"Bartack":         {"BT"},
	"Attach neck rib": {"OL"},
	"Trim threads":    {"MANUAL"},
}

var (
	count     = flag.Int("n", 200, "number of breakdowns to generate")
	tenant    = flag.Int64("tenant", 1, "tenant id of the generated breakdowns")
	seed      = flag.Uint64("seed", 42, "random seed")
	dbPath    = flag.String("db", "./obsim_db", "BadgerDB directory to import into (empty to skip)")
	outFile   = flag.String("out", "", "also write the dataset as JSON to this file")
	sqlDriver = flag.String("sql-driver", "", "also seed a SQL database with this driver (postgres, sqlite3)")
	sqlDSN    = flag.String("sql-dsn", "", "DSN of the SQL database to seed")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// breakdowns returns an iterator over n synthetic breakdowns. Each one keeps
// a random subset of its garment's operations in sewing order.
func breakdowns(rng *rand.Rand, tenantID int64, n int) iter.Seq[core.Breakdown] {
	styles := []string{"T-Shirt", "Polo", "Shirt", "Trouser"}

	return func(yield func(core.Breakdown) bool) {
		for i := range n {
			style := styles[rng.IntN(len(styles))]
			b := core.Breakdown{
				LayoutID:   int64(i + 1),
				LayoutCode: fmt.Sprintf("%s-%04d", style[:2], i+1),
				StyleType:  style,
				TenantID:   tenantID,
			}
			seq := 0
			for _, op := range garments[style] {
				if rng.Float64() < 0.2 {
					continue
				}
				seq++
				b.Operations = append(b.Operations, core.OperationStep{
					OperationName:  op,
					MachineName:    machineFor(rng, op),
					SequenceNumber: seq,
				})
			}
			if len(b.Operations) == 0 {
				continue
			}
			if !yield(b) {
				return
			}
		}
	}
}

func machineFor(rng *rand.Rand, op string) string {
	if options, ok := machines[op]; ok {
		return options[rng.IntN(len(options))]
	}
	return "SNLS"
}

// allocations gives most breakdowns one to three lines. Some lines have no
// recorded efficiency.
func allocations(rng *rand.Rand, bs []core.Breakdown) []core.AllocationRecord {
	var out []core.AllocationRecord
	next := int64(1)
	for _, b := range bs {
		for range rng.IntN(4) {
			line := rng.Int64N(40) + 1
			record := core.AllocationRecord{
				LayoutID:       b.LayoutID,
				AllocationID:   next,
				AllocationName: fmt.Sprintf("Line %d", line),
				LineID:         &line,
				HourlyTarget:   float64(40 + rng.IntN(120)),
			}
			if rng.Float64() > 0.15 {
				eff := 0.4 + rng.Float64()*0.55
				record.RunEfficiency = &eff
			}
			out = append(out, record)
			next++
		}
	}
	return out
}

func seedSQL(ctx context.Context, driver, dsn string, bs []core.Breakdown, as []core.AllocationRecord) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqlstore.CreateSchema(ctx, db); err != nil {
		return err
	}
	return sqlstore.Seed(ctx, db, bs, as)
}

func main() {
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(*seed, *seed))

	var bs []core.Breakdown
	for b := range breakdowns(rng, *tenant, *count) {
		bs = append(bs, b)
	}
	ds := &ingestion.Dataset{
		Rows:        corpus.Flatten(bs),
		Allocations: allocations(rng, bs),
	}
	slog.Info("generated dataset", "breakdowns", len(bs), "rows", len(ds.Rows), "allocations", len(ds.Allocations))

	if *outFile != "" {
		data, err := json.MarshalIndent(ds, "", "  ")
		if err != nil {
			panic(err)
		}
		if err := os.WriteFile(*outFile, data, 0o644); err != nil {
			panic(err)
		}
		slog.Info("wrote dataset", "file", *outFile)
	}

	if *dbPath != "" {
		cfg := config.Default()
		cfg.Storage.BadgerPath = *dbPath

		engine, err := obsim.Open(ctx, cfg)
		if err != nil {
			panic(err)
		}
		defer engine.Close()

		importer, err := engine.NewImporter(ingestion.WithProgress(os.Stderr))
		if err != nil {
			panic(err)
		}
		defer importer.Release()

		source := fmt.Sprintf("seeder:tenant=%d:n=%d:seed=%d", *tenant, *count, *seed)
		if _, err := importer.Import(ctx, source, ds, ds.Fingerprint()); err != nil {
			panic(err)
		}
	}

	if *sqlDriver != "" {
		if err := seedSQL(ctx, *sqlDriver, *sqlDSN, bs, ds.Allocations); err != nil {
			panic(err)
		}
		slog.Info("seeded sql database", "driver", *sqlDriver)
	}
}
