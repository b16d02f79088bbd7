package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ingmarAvocado/abs-worker/internal/core/config"
	"github.com/ingmarAvocado/abs-worker/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status <record-id>",
	Short: "Show the current state of a notarization record",
	Args:  cobra.ExactArgs(1),
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
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

	rec, err := postgres.NewRecordRepo(db).Load(ctx, args[0])
	if err != nil {
		slog.Error("Failed to load record", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%s\n", rec.ID)
	fmt.Fprintf(w, "Status\t%s\n", rec.Status)
	fmt.Fprintf(w, "Kind\t%s\n", rec.Kind)
	fmt.Fprintf(w, "File\t%s\n", rec.FileName)
	fmt.Fprintf(w, "Fingerprint\t%s\n", rec.ContentFingerprint)
	fmt.Fprintf(w, "Proof\t%s\n", rec.ProofReference)
	if rec.AssetReference != "" {
		fmt.Fprintf(w, "Asset\t%s\n", rec.AssetReference)
	}
	for i, ref := range rec.StorageReferences {
		fmt.Fprintf(w, "Storage[%d]\t%s\n", i, ref)
	}
	if rec.CertificateJSONPath != "" {
		fmt.Fprintf(w, "Cert JSON\t%s\n", rec.CertificateJSONPath)
	}
	if rec.CertificatePDFPath != "" {
		fmt.Fprintf(w, "Cert PDF\t%s\n", rec.CertificatePDFPath)
	}
	if rec.ErrorDetail != "" {
		fmt.Fprintf(w, "Error\t%s\n", rec.ErrorDetail)
	}
	fmt.Fprintf(w, "Updated\t%s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05"))
	w.Flush()
}
