package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"aggregate-mapper/engine"
	"aggregate-mapper/internal/codec"
	"aggregate-mapper/internal/datastore/boltdb"
	"aggregate-mapper/internal/datastore/memory"
	"aggregate-mapper/internal/datastore/sqlite"
	"aggregate-mapper/internal/diagnostic"
	"aggregate-mapper/internal/migrate"
	"aggregate-mapper/internal/model"
	"aggregate-mapper/options"
)

func newLogger(c *cli.Command) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(level)

	return log, nil
}

func loadModel(c *cli.Command) (*model.Model, error) {
	if patterns := c.StringSlice("packages"); len(patterns) > 0 {
		return model.LoadPackages(patterns...)
	}

	path := c.String("model")
	if path == "" {
		return nil, errors.New("either --model or --packages is required")
	}

	return model.LoadFile(path)
}

func pipelineFlags() []cli.Flag {
	def := migrate.DefaultConfig()

	return []cli.Flag{
		&cli.IntFlag{Name: "batch-size", Value: def.BatchSize, Usage: "records per created batch"},
		&cli.IntFlag{Name: "consumers", Value: def.Consumers, Usage: "concurrent batch writers"},
		&cli.IntFlag{Name: "queue-size", Value: def.QueueSize, Usage: "records buffered between reader and writers"},
		&cli.DurationFlag{Name: "await", Value: def.Await, Usage: "ceiling on the migration of one type"},
	}
}

func pipelineConfig(c *cli.Command) migrate.Config {
	return migrate.Config{
		BatchSize: c.Int("batch-size"),
		Consumers: c.Int("consumers"),
		QueueSize: c.Int("queue-size"),
		Await:     c.Duration("await"),
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Load and resolve the model",
		Action: func(ctx context.Context, c *cli.Command) error {
			m, err := loadModel(c)
			if err != nil {
				return err
			}

			fmt.Printf("model ok: %d types, %d entities\n", len(m.Types()), len(m.Entities()))

			return nil
		},
	}
}

func orderCommand() *cli.Command {
	return &cli.Command{
		Name:  "order",
		Usage: "Print the entity types in migration order",
		Action: func(ctx context.Context, c *cli.Command) error {
			m, err := loadModel(c)
			if err != nil {
				return err
			}

			types, err := migrate.EntitiesInOrder(m)
			if err != nil {
				return err
			}

			for _, t := range types {
				fmt.Println(t.Name)
			}

			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Decode JSON aggregates and store their flat records in bbolt",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Required: true, Usage: "JSON file with one record or an array"},
			&cli.StringFlag{Name: "type", Required: true, Usage: "root type of the records"},
			&cli.StringFlag{Name: "bolt", Required: true, Usage: "bbolt file to write"},
			&cli.StringFlag{Name: "settings", Usage: "settings YAML for the TO_DOMAIN traversal"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			log, err := newLogger(c)
			if err != nil {
				return err
			}

			m, err := loadModel(c)
			if err != nil {
				return err
			}

			s := options.Default(options.ActionToDomain)
			if path := c.String("settings"); path != "" {
				if s, err = options.LoadSettings(path); err != nil {
					return err
				}
				s.Action = options.ActionToDomain
			}

			f, err := os.Open(c.String("in"))
			if err != nil {
				return err
			}
			defer f.Close()

			recs, err := codec.ReadJSON(f)
			if err != nil {
				return err
			}

			mem := memory.New()
			e, err := engine.New(m, mem, engine.WithLogger(log))
			if err != nil {
				return err
			}

			res, err := e.Execute(ctx, s, engine.Records{Type: c.String("type"), Items: recs})
			if err != nil {
				return err
			}

			printDiagnostics(log, res.Diagnostics.Warnings)

			store, err := boltdb.Open(c.String("bolt"), boltdb.WithLogger(log))
			if err != nil {
				return err
			}
			defer store.Close()

			return copyRecords(ctx, m, mem, store, log)
		},
	}
}

// copyRecords writes the flat records of every entity of src into dst,
// identifiers included.
func copyRecords(ctx context.Context, m *model.Model, src migrate.Source, dst migrate.Target, log logrus.FieldLogger) error {
	types, err := migrate.EntitiesInOrder(m)
	if err != nil {
		return err
	}

	for _, t := range types {
		cur, err := src.Scroll(ctx, t)
		if err != nil {
			return err
		}

		var recs []model.Record
		for {
			rec, err := cur.Next(ctx)
			if errors.Is(err, io.EOF) {
				break
			}

			if err != nil {
				cur.Close()
				return err
			}
			recs = append(recs, rec)
		}
		cur.Close()

		if len(recs) == 0 {
			continue
		}

		if _, err := dst.CreateBatch(ctx, t, recs); err != nil {
			return err
		}

		log.WithField("action", "import_records").WithField("type", t.Name).WithField("count", len(recs)).Info("records imported")
	}

	return nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Copy a bbolt record store into SQLite with new identifiers",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "bolt", Required: true, Usage: "bbolt file to read"},
			&cli.StringFlag{Name: "sqlite", Required: true, Usage: "SQLite database to write"},
			&cli.StringSliceFlag{Name: "types", Usage: "entity types to migrate, all by default"},
		}, pipelineFlags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			log, err := newLogger(c)
			if err != nil {
				return err
			}

			m, err := loadModel(c)
			if err != nil {
				return err
			}

			src, err := boltdb.Open(c.String("bolt"), boltdb.WithLogger(log))
			if err != nil {
				return err
			}
			defer src.Close()

			dst, err := sqlite.OpenStore(ctx, c.String("sqlite"), log)
			if err != nil {
				return err
			}
			defer dst.Close()

			mg, err := migrate.NewMigrator(m, src, dst, pipelineConfig(c), log)
			if err != nil {
				return err
			}

			results, err := mg.Run(ctx, c.StringSlice("types")...)
			for _, res := range results {
				fmt.Printf("%-20s read %d written %d failed %d\n", res.Type, res.Read, res.Written, res.Failed)
			}

			return err
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Render the aggregates of a bbolt record store as JSON",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "bolt", Required: true, Usage: "bbolt file to read"},
			&cli.StringFlag{Name: "type", Required: true, Usage: "root type to export"},
			&cli.StringSliceFlag{Name: "follow", Usage: "associations to nest, as Type.property"},
		}, pipelineFlags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			log, err := newLogger(c)
			if err != nil {
				return err
			}

			m, err := loadModel(c)
			if err != nil {
				return err
			}

			t, err := m.Type(c.String("type"))
			if err != nil {
				return err
			}

			src, err := boltdb.Open(c.String("bolt"), boltdb.WithLogger(log))
			if err != nil {
				return err
			}
			defer src.Close()

			mem := memory.New()
			e, err := engine.New(m, mem, engine.WithLogger(log))
			if err != nil {
				return err
			}

			cfg := pipelineConfig(c)
			cfg.Consumers = 1

			mg, err := migrate.NewMigrator(m, src, migrate.NewGraphTarget(e.Walker()), cfg, log)
			if err != nil {
				return err
			}

			if _, err := mg.Run(ctx); err != nil {
				return err
			}

			s := options.Default(options.ActionToExternal)
			s.Associations = c.StringSlice("follow")

			res, err := e.Execute(ctx, s, mem.Objects(t))
			if err != nil {
				return err
			}

			return codec.WriteJSON(os.Stdout, res.Records)
		},
	}
}

func printDiagnostics(log logrus.FieldLogger, warnings []diagnostic.Diagnostic) {
	for _, w := range warnings {
		log.WithField("code", w.Code).WithField("path", w.Path).Warn(w.Message)
	}
}
