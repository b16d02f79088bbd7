package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ingmarAvocado/abs-worker/internal/core/config"
	redisq "github.com/ingmarAvocado/abs-worker/internal/infra/redis"
	"github.com/ingmarAvocado/abs-worker/internal/infra/storage/postgres"
)

var resetEnqueue bool

var resetCmd = &cobra.Command{
	Use:   "reset <record-id>",
	Short: "Reset a record to pending for reprocessing",
	Long:  `Reset forces a record back to pending, clearing any error detail. Use it to recover records stuck in processing after an abandoned run, or to reprocess a terminal record.`,
	Args:  cobra.ExactArgs(1),
	Run:   runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetEnqueue, "enqueue", false, "enqueue the record after resetting")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := postgres.NewRecordRepo(db).Reset(ctx, args[0]); err != nil {
		slog.Error("Failed to reset record", "error", err)
		os.Exit(1)
	}
	fmt.Printf("record %s reset to pending\n", args[0])

	if !resetEnqueue {
		return
	}

	queue, err := redisq.NewQueue(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = queue.Close()
	}()

	jobID, err := queue.Enqueue(ctx, args[0])
	if err != nil {
		slog.Error("Failed to enqueue record", "error", err)
		os.Exit(1)
	}
	fmt.Printf("record %s enqueued (job %s)\n", args[0], jobID)
}
