package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/lisaec/MappingYourTransit-hosted/internal/config"
	"github.com/lisaec/MappingYourTransit-hosted/internal/server"
	"github.com/lisaec/MappingYourTransit-hosted/internal/store"
)

func main() {
	app := &cli.App{
		Name:  "transitmap",
		Usage: "load GTFS feeds into per-feed stores and serve their map queries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to the YAML config file",
				Value: "transitmap.yml",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "load",
				Usage:     "build (or reuse) the store for a feed directory",
				ArgsUsage: "feed-name",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "feeds-dir",
						Usage: "override the configured feeds directory",
					},
					&cli.StringFlag{
						Name:  "databases-dir",
						Usage: "override the configured databases directory",
					},
				},
				Action: runLoad,
			},
			{
				Name:   "serve",
				Usage:  "serve feed queries over HTTP",
				Action: runServe,
			},
			{
				Name:      "summary",
				Usage:     "print an overview of a loaded feed",
				ArgsUsage: "feed-name",
				Action:    runSummary,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func runLoad(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("a feed name was not provided")
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	name := c.Args().First()
	if dir := c.String("feeds-dir"); dir != "" {
		cfg.Paths.FeedsDir = dir
	}
	if dir := c.String("databases-dir"); dir != "" {
		cfg.Paths.DatabasesDir = dir
	}

	manager := store.NewManager(cfg.Paths.FeedsDir, cfg.Paths.DatabasesDir)
	defer manager.Close()

	ctx := context.Background()
	st, err := manager.Get(ctx, name)
	if err != nil {
		return err
	}

	loadID, loadedAt, err := st.LastLoad(ctx)
	if err != nil {
		return err
	}
	ok := color.New(color.FgGreen)
	fmt.Printf("Feed %s ready (load %s at %s)\n", ok.Sprint(name), loadID, loadedAt.Format("2006-01-02 15:04:05"))

	for _, table := range []struct {
		label string
		count func() (int, error)
	}{
		{"stops", func() (int, error) { s, err := st.Stops(ctx); return len(s), err }},
		{"routes", func() (int, error) { r, err := st.Routes(ctx); return len(r), err }},
		{"trips", func() (int, error) { t, err := st.Trips(ctx); return len(t), err }},
		{"stop_times", func() (int, error) { t, err := st.StopTimes(ctx); return len(t), err }},
		{"shapes", func() (int, error) { p, err := st.Shapes(ctx); return len(p), err }},
	} {
		n, err := table.count()
		if err != nil {
			return err
		}
		fmt.Printf("  %-10s %d rows\n", table.label, n)
	}
	return nil
}

func runServe(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	manager := store.NewManager(cfg.Paths.FeedsDir, cfg.Paths.DatabasesDir)
	defer manager.Close()

	srv := server.New(manager)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("transitmap server listening on %s (feeds: %s)", addr, cfg.Paths.FeedsDir)
	return http.ListenAndServe(addr, srv.Router(cfg.Server.AllowedOrigins))
}

func runSummary(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("a feed name was not provided")
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	name := c.Args().First()

	manager := store.NewManager(cfg.Paths.FeedsDir, cfg.Paths.DatabasesDir)
	defer manager.Close()

	ctx := context.Background()
	st, err := manager.Get(ctx, name)
	if err != nil {
		return err
	}

	heading := color.New(color.FgCyan, color.Bold)
	agencyName, err := st.AgencyName(ctx)
	if err != nil {
		return err
	}
	agencyURL, err := st.AgencyURL(ctx)
	if err != nil {
		return err
	}
	heading.Println(agencyName)
	fmt.Println(agencyURL)

	lat, lon, err := st.CenterPoint(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Network center: %.5f, %.5f\n", lat, lon)

	geometries, err := st.RouteShapeGeometries(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Distinct route paths: %d\n", len(geometries))

	matrix, err := st.RouteHourlyFrequency(ctx)
	if err != nil {
		return err
	}
	heading.Println("Busiest routes, trips per hour (8:00-20:59)")
	for i, routeID := range matrix.RouteIDs {
		fmt.Printf("  %-12s", routeID)
		for _, n := range matrix.Counts[i] {
			fmt.Printf(" %3d", n)
		}
		fmt.Println()
	}
	return nil
}
