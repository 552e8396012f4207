package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/tmoore22/boostd/internal/order"
)

// orderView is the serializable projection of an order for CLI output.
type orderView struct {
	ID                int64  `json:"id"`
	Kind              string `json:"kind"`
	OwnerID           int64  `json:"owner_id"`
	TargetLink        string `json:"target_link"`
	Quantity          int64  `json:"quantity,omitempty"`
	Content           string `json:"content,omitempty"`
	ServiceKind       string `json:"service_kind,omitempty"`
	Speed             string `json:"speed,omitempty"`
	ChargedAmount     int64  `json:"charged_amount"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference,omitempty"`
	DeliveredCount    int64  `json:"delivered_count"`
	LastCheckedAt     string `json:"last_checked_at,omitempty"`
	ErrorAnnotation   string `json:"error_annotation,omitempty"`
	CreatedAt         string `json:"created_at"`
}

func newOrderView(o order.Order) orderView {
	v := orderView{
		ID:                o.ID,
		Kind:              string(o.Kind),
		OwnerID:           o.OwnerID,
		TargetLink:        o.TargetLink,
		Quantity:          o.Quantity,
		Content:           o.Content,
		ServiceKind:       o.ServiceKind,
		Speed:             o.Speed,
		ChargedAmount:     o.ChargedAmount,
		Status:            string(o.Status),
		ExternalReference: o.ExternalReference,
		DeliveredCount:    o.DeliveredCount,
		ErrorAnnotation:   o.ErrorAnnotation,
		CreatedAt:         o.CreatedAt.UTC().Format(time.RFC3339),
	}
	if o.LastCheckedAt != nil {
		v.LastCheckedAt = o.LastCheckedAt.UTC().Format(time.RFC3339)
	}
	return v
}

func (v orderView) text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order #%d (%s)\n", v.ID, v.Kind)
	fmt.Fprintf(&b, "  owner:     %d\n", v.OwnerID)
	fmt.Fprintf(&b, "  target:    %s\n", v.TargetLink)
	if v.Kind == string(order.KindVote) {
		fmt.Fprintf(&b, "  service:   %s (%s)\n", v.ServiceKind, v.Speed)
		fmt.Fprintf(&b, "  delivered: %d/%d\n", v.DeliveredCount, v.Quantity)
	} else {
		fmt.Fprintf(&b, "  content:   %s\n", v.Content)
	}
	fmt.Fprintf(&b, "  charged:   %d\n", v.ChargedAmount)
	fmt.Fprintf(&b, "  status:    %s\n", v.Status)
	if v.ExternalReference != "" {
		fmt.Fprintf(&b, "  tracking:  %s\n", v.ExternalReference)
	}
	if v.LastCheckedAt != "" {
		fmt.Fprintf(&b, "  checked:   %s\n", v.LastCheckedAt)
	}
	if v.ErrorAnnotation != "" {
		fmt.Fprintf(&b, "  notes:     %s\n", v.ErrorAnnotation)
	}
	return strings.TrimRight(b.String(), "\n")
}

// txnView is the serializable projection of a ledger entry.
type txnView struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"user_id"`
	Amount         int64  `json:"amount"`
	Type           string `json:"type"`
	Description    string `json:"description,omitempty"`
	RelatedOrderID *int64 `json:"related_order_id,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func newTxnView(t order.Transaction) txnView {
	return txnView{
		ID:             t.ID,
		UserID:         t.UserID,
		Amount:         t.Amount,
		Type:           string(t.Type),
		Description:    t.Description,
		RelatedOrderID: t.RelatedOrderID,
		CreatedAt:      t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (v txnView) text() string {
	return fmt.Sprintf("#%-4d %-14s %+8d  %s", v.ID, v.Type, v.Amount, v.Description)
}
