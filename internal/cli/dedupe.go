package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chorus-cloud/chorussearch/internal/config"
	"github.com/chorus-cloud/chorussearch/internal/repository/qdrant"
)

var dedupeDryRun bool

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Remove duplicate points from the vector store",
	Long: `Dedupe scans every point in the collection, groups them by the
business identifier in their payload metadata, keeps the first point of
each group and deletes the rest. Points without a business identifier
are left alone.

The command talks to Qdrant directly using the same configuration as
the server, so run it where the server's config file is reachable.`,
	RunE: runDedupe,
}

func init() {
	dedupeCmd.Flags().BoolVar(&dedupeDryRun, "dry-run", false, "report duplicates without deleting")
	rootCmd.AddCommand(dedupeCmd)
}

func runDedupe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.GetEnv())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := qdrant.NewStore(qdrant.Config{
		Host:           cfg.Qdrant.Host,
		Port:           cfg.Qdrant.Port,
		APIKey:         cfg.Qdrant.APIKey,
		Collection:     cfg.Qdrant.Collection,
		VectorSize:     cfg.Qdrant.VectorSize,
		ConnectRetries: cfg.Qdrant.ConnectRetries,
		RetryDelay:     time.Duration(cfg.Qdrant.RetryDelaySec) * time.Second,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if err := store.Connect(ctx); err != nil {
		return fmt.Errorf("connect to qdrant: %w", err)
	}

	points, err := store.ScrollAll(ctx)
	if err != nil {
		return fmt.Errorf("scroll points: %w", err)
	}
	fmt.Printf("Scanned %d points in %q\n", len(points), cfg.Qdrant.Collection)

	duplicates := findDuplicates(points)
	if len(duplicates) == 0 {
		fmt.Println("No duplicates found.")
		return nil
	}

	fmt.Printf("Found %d duplicate points across %d chorus ids\n",
		countPoints(duplicates), len(duplicates))
	for id, extras := range duplicates {
		fmt.Printf("  %s: %d extra point(s)\n", id, len(extras))
	}

	if dedupeDryRun {
		fmt.Println("\nDry run; nothing deleted.")
		return nil
	}

	var toDelete []string
	for _, extras := range duplicates {
		toDelete = append(toDelete, extras...)
	}
	if err := deleteInBatches(ctx, store, toDelete); err != nil {
		return err
	}
	fmt.Printf("\nDeleted %d points.\n", len(toDelete))
	return nil
}

// findDuplicates groups points by business id and returns, per id with
// more than one point, every point id after the first. Scroll order
// decides which point survives.
func findDuplicates(points []qdrant.RawPoint) map[string][]string {
	seen := make(map[string]bool)
	dups := make(map[string][]string)
	for _, p := range points {
		id, ok := p.ChorusID()
		if !ok {
			continue
		}
		if seen[id] {
			dups[id] = append(dups[id], p.PointID)
			continue
		}
		seen[id] = true
	}
	return dups
}

func countPoints(dups map[string][]string) int {
	n := 0
	for _, extras := range dups {
		n += len(extras)
	}
	return n
}

func deleteInBatches(ctx context.Context, store *qdrant.Store, ids []string) error {
	const batch = 200
	for i := 0; i < len(ids); i += batch {
		end := i + batch
		if end > len(ids) {
			end = len(ids)
		}
		if err := store.DeletePoints(ctx, ids[i:end]); err != nil {
			return fmt.Errorf("delete batch: %w", err)
		}
	}
	return nil
}
