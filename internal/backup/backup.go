package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/smartpantry/smartpantry/internal/store"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds backup manager configuration. The manager stays disabled until
// a bucket and credentials are set.
type Config struct {
	S3            S3Config
	DBPath        string
	Interval      time.Duration
	RetentionDays int
}

// Manager periodically snapshots the database file and uploads it to
// S3-compatible storage.
type Manager struct {
	mu          sync.RWMutex
	cfg         Config
	db          *sql.DB
	backupStore *store.BackupStore
	client      s3Client
	logger      *slog.Logger
	lastBackup  time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager.
func NewManager(cfg Config, db *sql.DB, bs *store.BackupStore, logger *slog.Logger) *Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}

	m := &Manager{
		cfg:         cfg,
		db:          db,
		backupStore: bs,
		logger:      logger,
	}
	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
		m.client = newS3Client(cfg.S3)
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether S3 credentials are configured.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Start begins the scheduled backup loop. No-op when disabled.
func (m *Manager) Start(ctx context.Context) {
	if !m.Enabled() {
		return
	}

	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.RunNow(ctx); err != nil {
					m.logger.Error("scheduled backup failed", "error", err)
				}
				if err := m.prune(ctx); err != nil {
					m.logger.Error("backup pruning failed", "error", err)
				}
			}
		}
	}()
}

// Stop gracefully stops the backup loop.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// RunNow takes a snapshot and uploads it, returning the backup record id.
func (m *Manager) RunNow(ctx context.Context) (int64, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return 0, fmt.Errorf("backup not configured: S3 credentials missing")
	}

	key := fmt.Sprintf("backups/pantry-%s.db", time.Now().UTC().Format("2006-01-02T150405Z"))
	record, err := m.backupStore.Create(key)
	if err != nil {
		return 0, fmt.Errorf("create backup record: %w", err)
	}

	snapshot := filepath.Join(os.TempDir(), fmt.Sprintf("pantry-backup-%d.db", record.ID))
	defer os.Remove(snapshot)

	// Checkpoint the WAL so the main file is complete, then copy it.
	if _, err := m.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		m.backupStore.MarkFailed(record.ID, err.Error())
		return 0, fmt.Errorf("wal checkpoint: %w", err)
	}
	if err := copyFile(m.cfg.DBPath, snapshot); err != nil {
		m.backupStore.MarkFailed(record.ID, err.Error())
		return 0, fmt.Errorf("copy database: %w", err)
	}

	f, err := os.Open(snapshot)
	if err != nil {
		m.backupStore.MarkFailed(record.ID, err.Error())
		return 0, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		m.backupStore.MarkFailed(record.ID, err.Error())
		return 0, fmt.Errorf("stat snapshot: %w", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(stat.Size()),
	})
	if err != nil {
		m.backupStore.MarkFailed(record.ID, err.Error())
		return 0, fmt.Errorf("upload to s3: %w", err)
	}

	if err := m.backupStore.MarkCompleted(record.ID, stat.Size()); err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.lastBackup = time.Now()
	m.mu.Unlock()

	return record.ID, nil
}

// prune removes completed backups older than the retention window, both from
// the bucket and from history.
func (m *Manager) prune(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	retention := m.cfg.RetentionDays
	m.mu.RUnlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -retention).Format("2006-01-02 15:04:05")
	old, err := m.backupStore.ListCompletedOlderThan(cutoff)
	if err != nil {
		return err
	}

	for _, b := range old {
		_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(b.S3Key),
		})
		if err != nil {
			return fmt.Errorf("delete s3 object %s: %w", b.S3Key, err)
		}
		if err := m.backupStore.Delete(b.ID); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
