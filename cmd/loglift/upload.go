package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/droneops/loglift/pkg/config"
	"github.com/droneops/loglift/pkg/fsutil"
	"github.com/droneops/loglift/pkg/locator"
	"github.com/droneops/loglift/pkg/upload"
)

var uploadTaskID string

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload the newest flight log to remote storage",
	Long: `Scan the configured logs directory and any auto-mounted
flight-controller storage for the most recent log file, then upload it
to S3-compatible storage under the task-scoped key <prefix>/<task-id>.<ext>.`,
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVar(&uploadTaskID, "task-id", "",
		"Task ID for the object key (overrides batch.task_id)")
}

func runUpload(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use --config)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if uploadTaskID != "" {
		cfg.Batch.TaskID = uploadTaskID
	}

	if err := cfg.ValidateBatch(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	loc := locator.New(log, &cfg.Locator)

	latest, err := loc.FindLatest()
	if err != nil {
		return fmt.Errorf("locating log file: %w", err)
	}

	uploader, err := upload.NewS3Uploader(log, cfg.Storage.S3)
	if err != nil {
		return fmt.Errorf("creating S3 uploader: %w", err)
	}

	ctx := cmd.Context()

	if err := uploader.Preflight(ctx); err != nil {
		return fmt.Errorf("storage preflight: %w", err)
	}

	key := upload.BatchKey(cfg.Storage.S3.Prefix, cfg.Batch.TaskID, latest.Path)

	log.WithField("path", latest.Path).
		WithField("key", key).
		Info("Uploading flight log")

	url, err := uploader.UploadFile(ctx, latest.Path, key)
	if err != nil {
		return fmt.Errorf("uploading log: %w", err)
	}

	archiveLog(cfg, latest.Path)

	log.WithField("url", url).Info("Upload completed successfully")

	return nil
}

// archiveLog copies the uploaded log into the local archive directory when
// one is configured. Failures are logged but do not fail the run, since
// the upload itself already succeeded.
func archiveLog(cfg *config.Config, path string) {
	if cfg.Batch.ArchiveDir == "" {
		return
	}

	owner, err := fsutil.ParseOwner(cfg.Batch.ArchiveOwner)
	if err != nil {
		log.WithError(err).Warn("Invalid archive_owner, skipping archive")

		return
	}

	if err := fsutil.MkdirAll(cfg.Batch.ArchiveDir, 0o755, owner); err != nil {
		log.WithError(err).Warn("Failed to create archive directory")

		return
	}

	dst := filepath.Join(cfg.Batch.ArchiveDir, filepath.Base(path))
	if err := fsutil.CopyFile(path, dst, owner); err != nil {
		log.WithError(err).Warn("Failed to archive log file")

		return
	}

	log.WithField("path", dst).Info("Archived log file locally")
}
