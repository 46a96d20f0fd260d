package events

import (
	"math"
	"time"

	"eve.evalgo.org/internal/mlerrors"
)

// lineTotalTolerance is the allowed drift between a reported line total
// and quantity*unitPrice before a line item is rejected as malformed.
const lineTotalTolerance = 0.01

// OrderLineItem is one line of an OrderCreated event. Each line item
// becomes one training record for the demand-forecast family it belongs
// to.
type OrderLineItem struct {
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	LineTotal float64 `json:"lineTotal"`
}

// OrderCreated is the typed envelope this consumer standardizes on.
type OrderCreated struct {
	MessageID  string          `json:"messageId"`
	OrderID    string          `json:"orderId"`
	CustomerID string          `json:"customerId"`
	Items      []OrderLineItem `json:"items"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Validate rejects malformed payloads: empty ids, non-positive quantities,
// and line totals inconsistent with quantity*unitPrice beyond tolerance.
// Invalid events are a KindMalformedEvent error the caller discards
// rather than re-raises, so a poison-pill message cannot loop forever.
func (o OrderCreated) Validate() error {
	if o.MessageID == "" {
		return mlerrors.New(mlerrors.KindMalformedEvent, "order event missing messageId")
	}
	if o.OrderID == "" {
		return mlerrors.New(mlerrors.KindMalformedEvent, "order event missing orderId")
	}
	if len(o.Items) == 0 {
		return mlerrors.New(mlerrors.KindMalformedEvent, "order event has no line items")
	}
	for _, item := range o.Items {
		if item.ProductID == "" {
			return mlerrors.New(mlerrors.KindMalformedEvent, "order event line item missing productId")
		}
		if item.Quantity <= 0 {
			return mlerrors.New(mlerrors.KindMalformedEvent, "order event line item has non-positive quantity")
		}
		if item.UnitPrice < 0 {
			return mlerrors.New(mlerrors.KindMalformedEvent, "order event line item has negative unitPrice")
		}
		expected := item.Quantity * item.UnitPrice
		if math.Abs(item.LineTotal-expected) > lineTotalTolerance {
			return mlerrors.New(mlerrors.KindMalformedEvent, "order event line item lineTotal inconsistent with quantity*unitPrice")
		}
	}
	return nil
}
