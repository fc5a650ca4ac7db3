package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/storage"
)

// BackupConfig für den nächtlichen Dump der Journal-Datenbank.
type BackupConfig struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	BackupBucket    string `envconfig:"BACKUP_S3_BUCKET" required:"true"`
	BackupEndpoint  string `envconfig:"BACKUP_S3_ENDPOINT" required:"true"`
	BackupAccessKey string `envconfig:"BACKUP_S3_ACCESS_KEY" required:"true"`
	BackupSecretKey string `envconfig:"BACKUP_S3_SECRET_KEY" required:"true"`
	BackupRegion    string `envconfig:"BACKUP_S3_REGION" required:"true"`
	BackupPrefix    string `envconfig:"BACKUP_PREFIX" default:"backups/"`
	KeepBackups     int    `envconfig:"KEEP_BACKUPS" default:"4"`
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	_ = godotenv.Load()
	var cfg BackupConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	logging.Info("Starting backup", zap.String("database", cfg.DBName))
	dump, err := createDump(ctx, cfg)
	if err != nil {
		logging.Fatal("Database dump failed", zap.Error(err))
	}

	client, err := storage.NewS3Client(ctx, cfg.BackupEndpoint, cfg.BackupRegion, cfg.BackupAccessKey, cfg.BackupSecretKey)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}
	store := &storage.S3Store{Client: client, Bucket: cfg.BackupBucket, BaseURL: cfg.BackupEndpoint}

	key := backupKey(cfg.BackupPrefix, time.Now())
	if _, err := store.Upload(ctx, key, "application/gzip", dump); err != nil {
		logging.Fatal("Backup upload failed", zap.Error(err))
	}
	logging.Info("Backup uploaded", zap.String("bucket", cfg.BackupBucket), zap.String("key", key), zap.Int("bytes", len(dump)))

	if err := rotateBackups(ctx, store, cfg.BackupPrefix, cfg.KeepBackups, logging); err != nil {
		logging.Fatal("Backup rotation failed", zap.Error(err))
	}
	logging.Info("Backup finished")
}

func backupKey(prefix string, now time.Time) string {
	return fmt.Sprintf("%sjournal-%s.sql.gz", prefix, now.UTC().Format("2006-01-02T15-04-05Z"))
}

// createDump ruft pg_dump auf und komprimiert die Ausgabe.
func createDump(ctx context.Context, cfg BackupConfig) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "pg_dump",
		"-h", cfg.DBHost,
		"-p", fmt.Sprint(cfg.DBPort),
		"-U", cfg.DBUser,
		"-d", cfg.DBName,
		"-w",
	)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+cfg.DBPassword)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := io.Copy(gz, stdout); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("pg_dump: %w", err)
	}
	return buf.Bytes(), nil
}

// expired liefert die Objekte jenseits der keep neuesten.
func expired(objects []storage.Object, keep int) []storage.Object {
	if keep < 0 {
		keep = 0
	}
	if len(objects) <= keep {
		return nil
	}
	sorted := append([]storage.Object(nil), objects...)
	storage.SortNewestFirst(sorted)
	return sorted[keep:]
}

func rotateBackups(ctx context.Context, store *storage.S3Store, prefix string, keep int, logging *zap.Logger) error {
	objects, err := store.List(ctx, prefix)
	if err != nil {
		return err
	}
	old := expired(objects, keep)
	if len(old) == 0 {
		logging.Info("No rotation needed", zap.Int("backups", len(objects)), zap.Int("keep", keep))
		return nil
	}
	for _, obj := range old {
		logging.Info("Deleting old backup", zap.String("key", obj.Key))
		if err := store.Delete(ctx, obj.Key); err != nil {
			logging.Warn("Failed to delete backup", zap.String("key", obj.Key), zap.Error(err))
		}
	}
	return nil
}
