// Package main is a small CLI / demo harness wiring an AggregationManager
// against a TOML star-schema fixture and a live MySQL connection,
// exercising lookup/load/flush and SQL generation end to end.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	rolap "github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/cache"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/config"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/execctx"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/extcache"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/segment"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/sqlgen"
)

type rootFlags struct {
	configPath string
	schemaPath string
	dsn        string
	starName   string
}

func main() {
	root := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:   "rolapd",
		Short: "ROLAP aggregation engine demo harness",
	}
	rootCmd.PersistentFlags().StringVar(&root.configPath, "config", "", "engine config file (TOML or YAML); defaults built in if omitted")
	rootCmd.PersistentFlags().StringVar(&root.schemaPath, "schema", "testdata/star.toml", "star schema fixture (TOML)")
	rootCmd.PersistentFlags().StringVar(&root.dsn, "dsn", "", "MySQL DSN, e.g. user:pass@tcp(localhost:3306)/db")
	rootCmd.PersistentFlags().StringVar(&root.starName, "star", "", "registered star name; defaults to the fixture's own name")

	rootCmd.AddCommand(lookupCmd(root))
	rootCmd.AddCommand(loadCmd(root))
	rootCmd.AddCommand(flushCmd(root))
	rootCmd.AddCommand(drillThroughCmd(root))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// engine boots an AggregationManager against root's config/schema/dsn
// flags, returning the registered star's name alongside it.
func engine(root *rootFlags) (*rolap.AggregationManager, string, func(), error) {
	cfg := config.Default()
	if root.configPath != "" {
		var err error
		cfg, err = config.Load(root.configPath)
		if err != nil {
			return nil, "", nil, fmt.Errorf("loading config: %w", err)
		}
	}

	fixtureName, s, schemaID, cubeID, factID, err := loadStar(root.schemaPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("loading schema: %w", err)
	}
	starName := root.starName
	if starName == "" {
		starName = fixtureName
	}

	var extc extcache.Cache
	if cfg.ExternalCache.Kind == "bolt" {
		extc, err = extcache.OpenBoltCache(cfg.ExternalCache.Path)
		if err != nil {
			return nil, "", nil, fmt.Errorf("opening external cache: %w", err)
		}
	}

	exec, err := newSQLExecutor(root.dsn)
	if err != nil {
		return nil, "", nil, fmt.Errorf("connecting: %w", err)
	}

	log := logrus.NewEntry(logrus.StandardLogger())
	mgr, err := rolap.New(cfg, exec, extc, log)
	if err != nil {
		_ = exec.Close()
		return nil, "", nil, fmt.Errorf("constructing engine: %w", err)
	}
	mgr.RegisterStar(starName, s, schemaID, cubeID, factID)

	cleanup := func() {
		mgr.Shutdown()
		_ = exec.Close()
		if extc != nil {
			_ = extc.Close()
		}
	}
	return mgr, starName, cleanup, nil
}

// parseColumns turns "bitpos=value" pairs (e.g. "0=5", "2=west") into
// rolap.ColumnValue entries, parsing each value as a number when it
// looks numeric and leaving it as a string otherwise.
func parseColumns(pairs []string) ([]rolap.ColumnValue, error) {
	out := make([]rolap.ColumnValue, 0, len(pairs))
	for _, p := range pairs {
		parts := strings.SplitN(p, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --col %q, expected bitpos=value", p)
		}
		bitPos, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid bit position in --col %q: %w", p, err)
		}
		out = append(out, rolap.ColumnValue{BitPos: bitPos, Value: coerceValue(parts[1])})
	}
	return out, nil
}

func coerceValue(raw string) predicate.Value {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	return raw
}

func parseAggregator(name string) (sqlgen.Aggregator, error) {
	switch strings.ToLower(name) {
	case "sum":
		return sqlgen.Sum, nil
	case "min":
		return sqlgen.Min, nil
	case "max":
		return sqlgen.Max, nil
	case "count":
		return sqlgen.Count, nil
	case "count_distinct", "countdistinct":
		return sqlgen.CountDistinct, nil
	case "avg":
		return sqlgen.Avg, nil
	default:
		return 0, fmt.Errorf("unknown aggregator %q", name)
	}
}

type cellFlags struct {
	measureBitPos int
	aggregator    string
	cols          []string
}

func bindCellFlags(cmd *cobra.Command, f *cellFlags) {
	cmd.Flags().IntVar(&f.measureBitPos, "measure", 0, "measure bit position")
	cmd.Flags().StringVar(&f.aggregator, "agg", "sum", "aggregator: sum, min, max, count, count_distinct, avg")
	cmd.Flags().StringArrayVar(&f.cols, "col", nil, "column constraint bitpos=value, repeatable")
}

func (f *cellFlags) request(starName string) (rolap.CellRequest, error) {
	agg, err := parseAggregator(f.aggregator)
	if err != nil {
		return rolap.CellRequest{}, err
	}
	cols, err := parseColumns(f.cols)
	if err != nil {
		return rolap.CellRequest{}, err
	}
	return rolap.CellRequest{
		StarName:      starName,
		MeasureBitPos: f.measureBitPos,
		Aggregator:    agg,
		Columns:       cols,
	}, nil
}

func lookupCmd(root *rootFlags) *cobra.Command {
	flags := &cellFlags{}
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Look up a single cell against the segment cache",
		RunE: func(_ *cobra.Command, _ []string) error {
			mgr, starName, cleanup, err := engine(root)
			if err != nil {
				return err
			}
			defer cleanup()

			req, err := flags.request(starName)
			if err != nil {
				return err
			}

			res, err := mgr.Lookup(req, execctx.NewID())
			if err != nil {
				return err
			}
			switch res.Kind {
			case cache.Hit:
				fmt.Println("hit")
			case cache.Pending:
				fmt.Println("pending (already loading)")
			default:
				fmt.Println("miss")
			}
			return nil
		},
	}
	bindCellFlags(cmd, flags)
	return cmd
}

func loadCmd(root *rootFlags) *cobra.Command {
	flags := &cellFlags{}
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load a single cell, issuing SQL or an in-process rollup as needed",
		RunE: func(_ *cobra.Command, _ []string) error {
			mgr, starName, cleanup, err := engine(root)
			if err != nil {
				return err
			}
			defer cleanup()

			req, err := flags.request(starName)
			if err != nil {
				return err
			}

			width, err := mgr.StarWidth(starName)
			if err != nil {
				return err
			}
			batches := rolap.BuildBatches([]rolap.CellRequest{req}, width,
				func(string) uint32 { return 0 },
				func(int) predicate.Datatype { return predicate.Numeric },
			)
			if len(batches) != 1 {
				return fmt.Errorf("expected exactly one batch, got %d", len(batches))
			}

			execID := execctx.NewID()
			futures, err := mgr.Load(context.Background(), batches[0], execID)
			if err != nil {
				return err
			}
			for hash, fut := range futures {
				body, err := fut.Wait(context.Background())
				if err != nil {
					fmt.Printf("segment %d: error: %v\n", hash, err)
					continue
				}
				fmt.Printf("segment %d: loaded, %d logical cells\n", hash, body.Size())
			}
			return nil
		},
	}
	bindCellFlags(cmd, flags)
	return cmd
}

func flushCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Evict every cached segment for the registered star",
		RunE: func(_ *cobra.Command, _ []string) error {
			mgr, starName, cleanup, err := engine(root)
			if err != nil {
				return err
			}
			defer cleanup()

			n := mgr.Flush(starName, cache.Region{Match: func(_ segment.Header) bool { return true }})
			fmt.Printf("flushed %d segment(s)\n", n)
			return nil
		},
	}
	return cmd
}

func drillThroughCmd(root *rootFlags) *cobra.Command {
	var fields []int
	var countOnly bool
	cmd := &cobra.Command{
		Use:   "drillthrough",
		Short: "Generate (without executing) row-level detail SQL",
		RunE: func(_ *cobra.Command, _ []string) error {
			mgr, starName, cleanup, err := engine(root)
			if err != nil {
				return err
			}
			defer cleanup()

			sqlText, types, err := mgr.GenerateDrillThroughSQL(starName, fields, nil, countOnly)
			if err != nil {
				return err
			}
			fmt.Println(sqlText)
			for _, t := range types {
				fmt.Printf("-- column %s\n", t.Alias)
			}
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&fields, "field", nil, "bit positions to project, repeatable")
	cmd.Flags().BoolVar(&countOnly, "count-only", false, "generate a COUNT(*) query instead of row detail")
	return cmd
}
