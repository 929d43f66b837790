// Package surface holds the delivery paths for platform notifications.
package surface

import (
	"context"

	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
)

// Surface renders one platform notification. Implementations must map a
// platform permission refusal to domain.PermissionDeniedError so the
// dispatcher can treat it as a silent no-op.
type Surface interface {
	Show(ctx context.Context, n *domain.Notification) error
	Name() string
}
