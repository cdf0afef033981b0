package main

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/tracker/internal/chart"
	"github.com/mtlprog/tracker/internal/config"
	"github.com/mtlprog/tracker/internal/domain"
	"github.com/mtlprog/tracker/internal/export"
	"github.com/mtlprog/tracker/internal/goals"
	"github.com/mtlprog/tracker/internal/snapshot"
	"github.com/mtlprog/tracker/internal/state"
	"github.com/mtlprog/tracker/internal/view"
)

var platformFlag = &cli.StringFlag{
	Name:    "platform",
	Aliases: []string{"p"},
	Usage:   "platform `ID` to make active",
}

// load bootstraps a dashboard and selects the requested platform.
func load(c *cli.Context, cfg config.Config) (*dashboard, state.State, error) {
	d, err := newDashboard(c.Context, cfg)
	if err != nil {
		return nil, state.State{}, err
	}
	s, _ := d.controller.Bootstrap(c.Context)
	if s.Status == state.StatusError {
		d.close()
		return nil, s, cli.Exit(s.Error, 1)
	}
	if id := c.String(platformFlag.Name); id != "" {
		s = d.controller.SelectPlatform(id)
		if s.ActivePlatformID != id {
			slog.Warn("unknown platform, keeping the default", "platform", id,
				"active", s.ActivePlatformID, "available", domain.PlatformIDs(s.Platforms))
		}
	}
	return d, s, nil
}

func showCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "load the latest snapshot and print the metric cards and holdings",
		Flags: []cli.Flag{platformFlag},
		Action: func(c *cli.Context) error {
			d, s, err := load(c, cfg)
			if err != nil {
				return err
			}
			defer d.close()
			return view.Render(os.Stdout, s, cfg.Location())
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "check the structure of a snapshot file",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return cli.Exit("usage: tracker validate <file>", 2)
			}
			snap, err := snapshot.ValidateFile(path)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			holdings := 0
			for _, p := range snap.Platforms {
				holdings += len(p.Holdings)
			}
			fmt.Printf("%s is valid: %d platforms (%s), %d holdings, generated at %s\n",
				path, len(snap.Platforms), strings.Join(domain.PlatformIDs(snap.Platforms), ", "),
				holdings, snap.GeneratedAt)
			return nil
		},
	}
}

func goalsCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "goals",
		Usage: "fetch the Fintual goals and publish them as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: cfg.GoalsOutput, Usage: "destination `FILE`"},
		},
		Action: func(c *cli.Context) error {
			creds, err := goals.CredentialsFromEnv()
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			job := goals.NewJob(goals.NewClient(cfg.GoalsAPIURL), creds, c.String("output"))
			if err := job.Run(c.Context); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

func bannerCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "banner",
		Usage: "print the goals banner",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "source", Aliases: []string{"s"}, Usage: "goals.json `URL or FILE`, repeatable"},
		},
		Action: func(c *cli.Context) error {
			sources := c.StringSlice("source")
			if len(sources) == 0 {
				sources = cfg.GoalsBannerSources
			}
			banner, err := goals.NewBannerLoader(sources, cfg.Location()).Banner(c.Context)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			fmt.Println(banner.Message)
			return nil
		},
	}
}

func chartCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "chart",
		Usage: "render the selected chart as a PNG image",
		Flags: []cli.Flag{
			platformFlag,
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(state.DefaultChartMode), Usage: "timeseries, monthly_change, return_1y or return_5y"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "chart.png", Usage: "output `FILE`"},
			&cli.IntFlag{Name: "width", Value: chart.DefaultWidth},
			&cli.IntFlag{Name: "height", Value: chart.DefaultHeight},
		},
		Action: func(c *cli.Context) error {
			mode := state.ChartMode(c.String("mode"))
			if !mode.Valid() {
				return cli.Exit(fmt.Sprintf("unknown chart mode %q", mode), 2)
			}
			d, _, err := load(c, cfg)
			if err != nil {
				return err
			}
			defer d.close()

			ch, placeholder := chart.Build(d.controller.SetChartMode(mode))
			if ch.Empty() {
				return cli.Exit(placeholder, 1)
			}

			out := c.String("out")
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			if err := chart.RenderPNG(f, ch, c.Int("width"), c.Int("height")); err != nil {
				f.Close()
				return fmt.Errorf("rendering chart: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			slog.Info("chart written", "path", out, "mode", mode)
			return nil
		},
	}
}

func exportCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "export the holdings to XLSX and, when configured, Google Sheets",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "xlsx", Value: cmp.Or(cfg.ExportXLSXPath, "holdings.xlsx"), Usage: "workbook `FILE`, empty to skip"},
		},
		Action: func(c *cli.Context) error {
			exporter := newExporter(c.Context, cfg, c.String("xlsx"))
			if exporter == nil {
				return cli.Exit("no export destination configured", 2)
			}
			d, s, err := load(c, cfg)
			if err != nil {
				return err
			}
			defer d.close()
			return exporter.Export(c.Context, s)
		},
	}
}

// newExporter returns nil when neither a workbook path nor Google Sheets is configured.
func newExporter(ctx context.Context, cfg config.Config, xlsxPath string) *export.Service {
	var writers []export.Writer
	if xlsxPath != "" {
		writers = append(writers, export.NewXLSXWriter(xlsxPath))
	}
	if cfg.GoogleSheetsID != "" && cfg.GoogleCredentialsJSON != "" {
		w, err := export.NewSheetsWriter(ctx, cfg.GoogleSheetsID, cfg.GoogleCredentialsJSON)
		if err != nil {
			slog.Warn("Google Sheets export disabled", "error", err)
		} else {
			writers = append(writers, w)
		}
	}
	if len(writers) == 0 {
		return nil
	}
	return export.NewService(writers...)
}
