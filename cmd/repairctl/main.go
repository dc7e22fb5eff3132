// cmd/repairctl/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/partforge/catalog-backend/internal/config"
	"github.com/partforge/catalog-backend/internal/database"
	"github.com/partforge/catalog-backend/internal/models"
	"github.com/partforge/catalog-backend/internal/services"
)

var (
	flagCategory string
	flagConfirm  bool
)

var rootCmd = &cobra.Command{
	Use:   "repairctl",
	Short: "Catalog repair and report jobs",
	Long: `repairctl runs the maintenance passes the catalog needs over time:
duplicate sweeps, classification repair, unit normalization, price-history
backfills, and under-tracked reports.

Every destructive pass is dry-run by default and prints what would change;
pass --confirm to commit.`,
}

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Find and merge duplicate records in a category",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(func(db *gorm.DB, cfg *config.Config) error {
			category, err := parseCategory()
			if err != nil {
				return err
			}

			ledger := services.NewLedgerService(db, cfg.Engine.LedgerDedupWindowHours)
			dedup := services.NewDedupService(db, ledger, cfg.Engine.DedupNameSimilarity)

			sweep, err := dedup.SweepCategory(category, flagConfirm)
			if err != nil {
				return err
			}

			mode := "dry-run"
			if flagConfirm {
				mode = "committed"
			}
			fmt.Printf("%s: %d duplicate group(s), %d record(s) merged [%s]\n",
				category, sweep.Groups, sweep.Merged, mode)
			for _, result := range sweep.Results {
				fmt.Printf("  survivor %s <- %d duplicate(s), history length %d\n",
					result.SurvivorID, len(result.MergedIDs), result.HistoryLength)
			}
			return nil
		})
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Re-derive sub-types for a category and report corrections",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(func(db *gorm.DB, cfg *config.Config) error {
			category, err := parseCategory()
			if err != nil {
				return err
			}

			classifier := services.NewClassifierService(db, cfg.Engine.ClassifierFloor)
			report, err := classifier.RepairCategory(category, flagConfirm)
			if err != nil {
				return err
			}

			fmt.Printf("%s: %d record(s), %d correction(s), %d unclassified, %d misfiled\n",
				category, report.Total, len(report.Corrections), len(report.Unclassified), len(report.Misfiled))
			for _, correction := range report.Corrections {
				fmt.Printf("  %s: %s -> %s (%s, %.2f)\n",
					correction.ComponentID, correction.OldSubType, correction.NewSubType,
					correction.Rule, correction.Confidence)
			}
			for _, misfiled := range report.Misfiled {
				fmt.Printf("  %s: filed under %s, looks like %s (%s); move manually\n",
					misfiled.ComponentID, misfiled.DeclaredCategory,
					misfiled.SuggestedCategory, misfiled.Rule)
			}
			return nil
		})
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Re-run unit normalization over a category",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(func(db *gorm.DB, cfg *config.Config) error {
			category, err := parseCategory()
			if err != nil {
				return err
			}

			normalizer := services.NewNormalizerService()
			reports := services.NewReportService(db, normalizer, cfg.Engine.UnderTrackedThreshold)

			report, err := reports.NormalizeCategory(category, flagConfirm)
			if err != nil {
				return err
			}

			fmt.Printf("%s: %d record(s), %d changed, %d held for review\n",
				category, report.Total, report.Changed, report.Held)
			return nil
		})
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Seed an initial history entry for single-observation components",
	Long: `backfill finds components in a category whose history has exactly one
observation and inserts a synthetic head entry predating it, so charts have
a starting point. Components with longer histories are skipped as already
seeded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(func(db *gorm.DB, cfg *config.Config) error {
			category, err := parseCategory()
			if err != nil {
				return err
			}

			ledger := services.NewLedgerService(db, cfg.Engine.LedgerDedupWindowHours)

			var components []models.Component
			if err := db.Where("category = ?", category).Find(&components).Error; err != nil {
				return err
			}

			seeded, skipped := 0, 0
			for _, component := range components {
				history, err := ledger.History(component.ID)
				if err != nil {
					return err
				}
				if len(history) != 1 {
					skipped++
					continue
				}
				if !flagConfirm {
					seeded++
					continue
				}
				seedAt := ledger.BackfillSeedTime(component.CreatedAt, history[0].ObservedAt)
				result, err := ledger.BackfillInitial(component.ID, component.CurrentPrice,
					component.IsAvailable, seedAt, "backfill")
				if err != nil {
					// One unbackfillable record must not abort the category pass.
					fmt.Printf("  skipping %s: %v\n", component.ID, err)
					skipped++
					continue
				}
				if result.Status == services.AppendStatusBackfilled {
					seeded++
				} else {
					skipped++
				}
			}

			mode := "dry-run"
			if flagConfirm {
				mode = "committed"
			}
			fmt.Printf("%s: %d seeded, %d skipped [%s]\n", category, seeded, skipped, mode)
			return nil
		})
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reload denormalized prices from the ledger for a category",
	Long: `reconcile re-derives every component's current_price/is_available from
its latest stored observation. The ledger is the authoritative side; run this
after a crash that may have left the read model stale.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(func(db *gorm.DB, cfg *config.Config) error {
			category, err := parseCategory()
			if err != nil {
				return err
			}

			ledger := services.NewLedgerService(db, cfg.Engine.LedgerDedupWindowHours)

			var components []models.Component
			if err := db.Where("category = ?", category).Find(&components).Error; err != nil {
				return err
			}

			for _, component := range components {
				if err := ledger.Reconcile(component.ID); err != nil {
					return fmt.Errorf("reconcile %s: %w", component.ID, err)
				}
			}

			fmt.Printf("%s: %d component(s) reconciled\n", category, len(components))
			return nil
		})
	},
}

var underTrackedCmd = &cobra.Command{
	Use:   "undertracked",
	Short: "List components with too short a price history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(func(db *gorm.DB, cfg *config.Config) error {
			normalizer := services.NewNormalizerService()
			reports := services.NewReportService(db, normalizer, cfg.Engine.UnderTrackedThreshold)

			components, err := reports.UnderTracked()
			if err != nil {
				return err
			}

			fmt.Printf("%d under-tracked component(s)\n", len(components))
			for _, c := range components {
				fmt.Printf("  [%s] %s (%s): %d observation(s)\n",
					c.Category, c.Name, c.ComponentID, c.HistoryLength)
			}
			return nil
		})
	},
}

func parseCategory() (models.Category, error) {
	category := models.Category(strings.ToLower(flagCategory))
	if !category.Valid() {
		return "", fmt.Errorf("unknown category %q", flagCategory)
	}
	return category, nil
}

func withServices(fn func(*gorm.DB, *config.Config) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close(db)

	return fn(db, cfg)
}

func init() {
	for _, cmd := range []*cobra.Command{dedupCmd, classifyCmd, normalizeCmd, backfillCmd, reconcileCmd} {
		cmd.Flags().StringVarP(&flagCategory, "category", "c", "", "Component category to process")
		cmd.MarkFlagRequired("category")
		cmd.Flags().BoolVar(&flagConfirm, "confirm", false, "Commit changes instead of dry-run")
	}

	rootCmd.AddCommand(dedupCmd, classifyCmd, normalizeCmd, backfillCmd, reconcileCmd, underTrackedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
