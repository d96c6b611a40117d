package services

import (
	"context"
	"strings"
)

// ensureContext guards against nil contexts reaching gorm.
func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// normaliseEmail lowercases and trims an address for comparison and storage.
func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// recordAudit logs the supplied entry while tolerating audit failures.
func recordAudit(audit *AuditService, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	_ = audit.Log(ctx, entry)
}
