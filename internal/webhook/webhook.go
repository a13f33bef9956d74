package webhook

import (
	"context"
	"time"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is an operator-facing diagnostic about a broken invariant.
type Alert struct {
	Severity   Severity          `json:"severity"`
	Component  string            `json:"component"`
	Message    string            `json:"message"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

type Sender interface {
	SendAlert(ctx context.Context, alert Alert) error
}
