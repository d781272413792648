package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"eve-importer/internal/api"
	"eve-importer/internal/config"
	"eve-importer/internal/db"
	"eve-importer/internal/engine"
	"eve-importer/internal/esi"
	"eve-importer/internal/logger"
	"eve-importer/internal/refine"
)

var version = "dev"

func main() {
	port := flag.Int("port", 13370, "HTTP server port")
	scan := flag.Bool("scan", false, "run one import scan with the stored settings and exit")
	basket := flag.String("refine", "", `solve a compression basket and exit, e.g. "Tritanium:1000,Pyerite:500"`)
	variant := flag.String("variant", "", "yield table variant for -refine (default from settings)")
	flag.Parse()

	logger.Banner(version)

	database, err := db.Open()
	if err != nil {
		logger.Error("DB", fmt.Sprintf("Failed to open database: %v", err))
		os.Exit(1)
	}
	defer database.Close()

	cfg := database.LoadConfig()
	esiClient := esi.NewClient(database)

	switch {
	case *scan:
		if err := runScan(cfg, esiClient, database); err != nil {
			logger.Error("SCAN", err.Error())
			os.Exit(1)
		}
	case *basket != "":
		if err := runRefine(cfg, esiClient, *basket, *variant); err != nil {
			logger.Error("REFINE", err.Error())
			os.Exit(1)
		}
	default:
		srv := api.NewServer(cfg, esiClient, database)
		logger.Info("HTTP", fmt.Sprintf("Listening on http://localhost:%d", *port))
		if err := http.ListenAndServe(fmt.Sprintf(":%d", *port), srv.Handler()); err != nil {
			logger.Error("HTTP", err.Error())
			os.Exit(1)
		}
	}
}

// runScan executes one import scan and prints the candidate table.
func runScan(cfg *config.Config, esiClient *esi.Client, database *db.DB) error {
	importer := engine.NewImporter(esiClient)
	importer.History = database

	start := time.Now()
	results, err := importer.Run(context.Background(), cfg.ImportParams(), func(msg string) {
		logger.Info("SCAN", msg)
	})
	if err != nil {
		return err
	}
	logger.Success("SCAN", fmt.Sprintf("%d candidates in %s", len(results), time.Since(start).Round(time.Millisecond)))
	if len(results) == 0 {
		return nil
	}

	logger.Section("Import candidates")
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Item", "Profit/day", "Margin", "Sold/day", "Sell", "Buy", "Left", "Days left", "m³")
	for _, r := range results {
		daysLeft := fmt.Sprintf("%d", r.DaysRemaining)
		if r.DaysRemaining == engine.UnboundedDaysRemaining {
			daysLeft = "∞"
		}
		table.Append(
			r.TypeName,
			fmt.Sprintf("%d", r.ProfitPerDay),
			fmt.Sprintf("%d%%", r.MarginPercent),
			fmt.Sprintf("%.1f", r.VolumePerDay),
			fmt.Sprintf("%.2f", r.SellPrice),
			fmt.Sprintf("%.2f", r.BuyPrice),
			fmt.Sprintf("%d", r.Remaining),
			daysLeft,
			fmt.Sprintf("%.2f", r.PackagedVolume),
		)
	}
	table.Render()
	return nil
}

// runRefine solves a compression basket with live ore prices and prints the
// required / resulting / surplus tables.
func runRefine(cfg *config.Config, esiClient *esi.Client, basketArg, variant string) error {
	if variant == "" {
		variant = cfg.OreVariant
	}
	table, err := refine.LoadYieldTable(variant)
	if err != nil {
		return err
	}

	wanted, err := refine.ParseBasket(basketArg)
	if err != nil {
		return err
	}
	basket := refine.DefaultBasket(table)
	if err := basket.Merge(table, wanted); err != nil {
		return err
	}

	logger.Info("REFINE", fmt.Sprintf("Fetching ore prices from region %s...", cfg.OreRegionID))
	ctx := context.Background()
	costs, err := refine.SourceCosts(ctx, esiClient, cfg.OreRegionID, cfg.OreFromBuyOrders, cfg.CostMultiplier, table)
	if err != nil {
		return err
	}

	result, err := refine.Solve(basket, cfg.RefineRate, costs, table)
	if err != nil {
		return err
	}

	logger.Section("Required ore")
	req := tablewriter.NewWriter(os.Stdout)
	req.Header("Ore", "Units", "Cost/unit")
	for i, r := range result.Required {
		if r.Units == 0 {
			continue
		}
		req.Append(r.Name, fmt.Sprintf("%d", r.Units), fmt.Sprintf("%.2f", costs[i]))
	}
	req.Render()

	logger.Section("Resulting minerals")
	res := tablewriter.NewWriter(os.Stdout)
	res.Header("Mineral", "Amount", "Surplus")
	for j, m := range result.Resulting {
		res.Append(m.Name, fmt.Sprintf("%.0f", m.Amount), fmt.Sprintf("%.0f", result.Surplus[j].Amount))
	}
	res.Render()
	return nil
}
