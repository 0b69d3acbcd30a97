package notify

import (
	"context"
	"sync"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const EventOrderCreated = "order_created"

// Notifier is told about committed orders. It is never consulted before
// commit and its failures never undo one.
type Notifier interface {
	OrderCreated(ctx context.Context, order *models.Order) error
}

// EventItem is one order line in an event payload.
type EventItem struct {
	ProductID int64           `json:"product_id"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderCreatedEvent is the message published for every committed order.
type OrderCreatedEvent struct {
	EventType   string          `json:"event_type"`
	OrderNumber string          `json:"order_number"`
	Total       decimal.Decimal `json:"total"`
	Items       []EventItem     `json:"items"`
	CouponCode  *string         `json:"coupon_code,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func NewOrderCreatedEvent(order *models.Order) OrderCreatedEvent {
	items := make([]EventItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, EventItem{
			ProductID: it.ProductID,
			SKU:       it.ProductSKU,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return OrderCreatedEvent{
		EventType:   EventOrderCreated,
		OrderNumber: order.OrderNumber,
		Total:       order.Total,
		Items:       items,
		CouponCode:  order.CouponCode,
		CreatedAt:   order.CreatedAt,
	}
}

// LogNotifier writes events to the log. Used when no topic is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OrderCreated(ctx context.Context, order *models.Order) error {
	n.logger.Info("order created",
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Int("items", len(order.Items)),
	)
	return nil
}

// Async hands orders to next on a background goroutine bounded by timeout.
// OrderCreated returns immediately; failures are logged.
type Async struct {
	next    Notifier
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewAsync(next Notifier, timeout time.Duration, logger *zap.Logger) *Async {
	return &Async{
		next:    next,
		timeout: timeout,
		logger:  logger,
	}
}

func (a *Async) OrderCreated(ctx context.Context, order *models.Order) error {
	// the request context ends with the response
	ctx = context.WithoutCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		if err := a.next.OrderCreated(ctx, order); err != nil {
			a.logger.Warn("order notification failed",
				zap.String("order_number", order.OrderNumber),
				zap.Error(err),
			)
		}
	}()
	return nil
}

// Wait blocks until in-flight notifications finish.
func (a *Async) Wait() {
	a.wg.Wait()
}
