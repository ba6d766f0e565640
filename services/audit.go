package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kickplan/tournament-mirror/storage"
)

// AuditRecorder persists raw API responses fetched while processing a
// delivery in diagnostic mode. It is observational only: recording failures
// are logged and never influence sync or ledger semantics.
type AuditRecorder interface {
	RecordSnapshot(ctx context.Context, name string, payload interface{})
}

type uploaderAuditRecorder struct {
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewAuditRecorder(uploader storage.FileUploader, logger *slog.Logger) AuditRecorder {
	return &uploaderAuditRecorder{uploader: uploader, logger: logger}
}

func (r *uploaderAuditRecorder) RecordSnapshot(ctx context.Context, name string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Warn("audit snapshot marshal failed", slog.String("name", name), slog.Any("error", err))
		return
	}

	key := name + ".json"
	if _, err := r.uploader.Upload(ctx, key, "application/json", bytes.NewReader(data)); err != nil {
		r.logger.Warn("audit snapshot upload failed", slog.String("key", key), slog.Any("error", err))
	}
}

type auditContextKey struct{}

type auditScope struct {
	recorder AuditRecorder
	prefix   string
}

// WithAudit marks the call context as diagnostic: every raw response fetched
// below it is recorded under the given key prefix. The production path never
// sets this, so the reconciler stays untouched by diagnostic concerns.
func WithAudit(ctx context.Context, recorder AuditRecorder, prefix string) context.Context {
	if recorder == nil {
		return ctx
	}
	return context.WithValue(ctx, auditContextKey{}, &auditScope{recorder: recorder, prefix: prefix})
}

func recordFetch(ctx context.Context, name string, payload interface{}) {
	scope, ok := ctx.Value(auditContextKey{}).(*auditScope)
	if !ok || scope == nil {
		return
	}
	scope.recorder.RecordSnapshot(ctx, fmt.Sprintf("%s/%s", scope.prefix, name), payload)
}
