package port

import (
	"context"

	"github.com/wangyingjie930/fulfillment/internal/api/events"
)

// OutcomePublisher 把每次下单尝试的最终结果发布到事件总线。
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, ev events.OrderOutcome) error
}
