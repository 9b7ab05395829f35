package audit

import (
	"context"
	"errors"

	"hearth/internal/storage"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type StoreDestination struct {
	store *storage.Store
}

func NewStoreDestination(store *storage.Store) *StoreDestination {
	return &StoreDestination{store: store}
}

func (d *StoreDestination) Name() string { return "db" }

func (d *StoreDestination) Write(ctx context.Context, entry storage.AuditLog) error {
	return d.store.AddAuditLog(ctx, entry)
}

// FileDestination appends JSON lines to a file through its own zap core.
type FileDestination struct {
	logger *zap.Logger
}

func NewFileDestination(path string) (*FileDestination, error) {
	if path == "" {
		return nil, errors.New("activity file path is empty")
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.Sampling = nil
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "event"
	cfg.EncoderConfig.LevelKey = ""
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &FileDestination{logger: logger}, nil
}

func (d *FileDestination) Name() string { return "file" }

func (d *FileDestination) Write(_ context.Context, entry storage.AuditLog) error {
	d.logger.Info(entry.Event,
		zap.String("level", entry.Level),
		zap.String("guild_id", entry.GuildID),
		zap.String("user_id", entry.UserID),
		zap.String("details", entry.Details),
	)
	return nil
}

func (d *FileDestination) Sync() error {
	return d.logger.Sync()
}

type NotifyDestination struct {
	notify func(context.Context, storage.AuditLog) error
}

func NewNotifyDestination(notify func(context.Context, storage.AuditLog) error) *NotifyDestination {
	return &NotifyDestination{notify: notify}
}

func (d *NotifyDestination) Name() string { return "discord" }

func (d *NotifyDestination) Write(ctx context.Context, entry storage.AuditLog) error {
	if d.notify == nil {
		return nil
	}
	return d.notify(ctx, entry)
}
