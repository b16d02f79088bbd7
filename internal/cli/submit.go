package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ingmarAvocado/abs-worker/internal/core/config"
	"github.com/ingmarAvocado/abs-worker/internal/core/domain"
	redisq "github.com/ingmarAvocado/abs-worker/internal/infra/redis"
	"github.com/ingmarAvocado/abs-worker/internal/infra/storage/postgres"
)

var (
	submitKind    string
	submitOwner   string
	submitAddress string
)

var submitCmd = &cobra.Command{
	Use:   "submit <file>",
	Short: "Create a notarization record for a file and enqueue it",
	Args:  cobra.ExactArgs(1),
	Run:   runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitKind, "kind", string(domain.KindHashOnly), "record kind: hash_only or asset_mint")
	submitCmd.Flags().StringVar(&submitOwner, "owner", "", "owner identifier")
	submitCmd.Flags().StringVar(&submitAddress, "owner-address", "", "owner ledger address (required for asset_mint)")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	kind := domain.RecordKind(submitKind)
	if kind != domain.KindHashOnly && kind != domain.KindAssetMint {
		slog.Error("Invalid kind", "kind", submitKind)
		os.Exit(1)
	}
	if kind == domain.KindAssetMint && submitAddress == "" {
		slog.Error("asset_mint requires --owner-address")
		os.Exit(1)
	}

	filePath, err := filepath.Abs(args[0])
	if err != nil {
		slog.Error("Failed to resolve file path", "error", err)
		os.Exit(1)
	}

	fingerprint, err := fingerprintFile(filePath)
	if err != nil {
		slog.Error("Failed to fingerprint file", "error", err)
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

	rec := &domain.NotarizationRecord{
		ID:                 uuid.NewString(),
		OwnerID:            submitOwner,
		OwnerAddress:       submitAddress,
		FileName:           filepath.Base(filePath),
		FilePath:           filePath,
		Kind:               kind,
		ContentFingerprint: fingerprint,
	}

	if err := postgres.NewRecordRepo(db).Create(ctx, rec); err != nil {
		slog.Error("Failed to create record", "error", err)
		os.Exit(1)
	}

	queue, err := redisq.NewQueue(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = queue.Close()
	}()

	jobID, err := queue.Enqueue(ctx, rec.ID)
	if err != nil {
		slog.Error("Failed to enqueue record", "error", err)
		os.Exit(1)
	}

	fmt.Printf("record %s enqueued (job %s, fingerprint %s)\n", rec.ID, jobID, fingerprint)
}

func fingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
