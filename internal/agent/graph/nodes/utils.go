package nodes

import (
	"context"
	"strings"
	"time"
)

// withTimeout bounds one external call. A zero timeout leaves ctx as is.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// appendSection concatenates onto an existing final response.
func appendSection(prev, next string) string {
	prev = strings.TrimRight(prev, "\n ")
	if prev == "" {
		return next
	}
	return prev + "\n\n" + next
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
