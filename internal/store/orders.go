package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmoore22/boostd/internal/order"
)

// ErrNoSuchOrder is returned when an order id does not exist.
var ErrNoSuchOrder = errors.New("no such order")

// terminalStatuses is the SQL guard shared by every lifecycle update.
// Completed and Cancelled orders accept no further writes.
const terminalStatuses = "('COMPLETED', 'CANCELLED')"

// OrderPatch describes a partial order update. Nil fields are left
// untouched. ExternalReference is applied set-at-most-once: a patch never
// overwrites an existing reference.
type OrderPatch struct {
	Status            *order.Status
	ExternalReference *string
	DeliveredCount    *int64
	LastCheckedAt     *time.Time

	// AppendAnnotation is appended to the existing error annotation
	// rather than replacing it.
	AppendAnnotation *string
}

// GetOrder returns a single order by id.
func (s *Store) GetOrder(ctx context.Context, id int64) (order.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, owner_id, target_link, quantity, content,
		       service_kind, speed, charged_amount, status,
		       external_reference, delivered_count, last_checked_at,
		       error_annotation, created_at
		FROM orders
		WHERE id = ?
	`, id)

	ord, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order.Order{}, fmt.Errorf("get order %d: %w", id, ErrNoSuchOrder)
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("get order %d: %w", id, err)
	}
	return ord, nil
}

// UpdateFields applies a partial update to an order row.
//
// The update silently no-ops when the order is already in a terminal
// status; callers that need to distinguish "row gone" from "row terminal"
// should GetOrder first. Returns ErrNoSuchOrder only when the id does not
// exist at all.
func (s *Store) UpdateFields(ctx context.Context, id int64, patch OrderPatch) error {
	sets, args := patchClauses(patch)
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE orders SET %s
		WHERE id = ? AND status NOT IN %s
	`, strings.Join(sets, ", "), terminalStatuses)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update order %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order %d: rows affected: %w", id, err)
	}
	if affected == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM orders WHERE id = ?`, id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("update order %d: check existence: %w", id, err)
		}
		if exists == 0 {
			return fmt.Errorf("update order %d: %w", id, ErrNoSuchOrder)
		}
		// Terminal row: the write is a deliberate no-op.
	}
	return nil
}

// patchClauses builds SET fragments for UpdateFields.
func patchClauses(patch OrderPatch) (sets []string, args []any) {
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.ExternalReference != nil {
		// Set at most once: COALESCE keeps an existing reference.
		sets = append(sets, "external_reference = COALESCE(external_reference, ?)")
		args = append(args, *patch.ExternalReference)
	}
	if patch.DeliveredCount != nil {
		sets = append(sets, "delivered_count = ?")
		args = append(args, *patch.DeliveredCount)
	}
	if patch.LastCheckedAt != nil {
		sets = append(sets, "last_checked_at = ?")
		args = append(args, encodeTime(*patch.LastCheckedAt))
	}
	if patch.AppendAnnotation != nil {
		sets = append(sets, `error_annotation = CASE
			WHEN error_annotation = '' THEN ?
			ELSE error_annotation || '; ' || ?
		END`)
		args = append(args, *patch.AppendAnnotation, *patch.AppendAnnotation)
	}
	return sets, args
}

// MergeProviderState folds a provider status snapshot into the order in a
// single write. The merge is idempotent and enforces the delivered-count
// invariants in SQL: the stored count never decreases and never exceeds
// the ordered quantity. Terminal rows are untouched.
func (s *Store) MergeProviderState(ctx context.Context, id int64, status order.Status, deliveredCount int64, checkedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE orders SET
			status = ?,
			delivered_count = MIN(quantity, MAX(delivered_count, ?)),
			last_checked_at = ?
		WHERE id = ? AND status NOT IN %s
	`, terminalStatuses),
		string(status), deliveredCount, encodeTime(checkedAt), id)
	if err != nil {
		return fmt.Errorf("merge provider state for order %d: %w", id, err)
	}
	return nil
}

// TouchLastChecked advances only last_checked_at, used after a failed poll
// to keep the cooldown window moving without touching order state.
func (s *Store) TouchLastChecked(ctx context.Context, id int64, checkedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE orders SET last_checked_at = ?
		WHERE id = ? AND status NOT IN %s
	`, terminalStatuses), encodeTime(checkedAt), id)
	if err != nil {
		return fmt.Errorf("touch last_checked_at for order %d: %w", id, err)
	}
	return nil
}

// ListEligibleForRefresh returns the ids of a user's orders that carry an
// external reference and are not yet terminal, oldest first.
func (s *Store) ListEligibleForRefresh(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id FROM orders
		WHERE owner_id = ?
		  AND external_reference IS NOT NULL
		  AND status NOT IN %s
		ORDER BY id ASC
	`, terminalStatuses), userID)
	if err != nil {
		return nil, fmt.Errorf("list eligible orders: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list eligible orders: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate eligible orders: %w", err)
	}
	return ids, nil
}

// ListOrders returns all of a user's orders, newest first.
func (s *Store) ListOrders(ctx context.Context, userID int64) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, owner_id, target_link, quantity, content,
		       service_kind, speed, charged_amount, status,
		       external_reference, delivered_count, last_checked_at,
		       error_annotation, created_at
		FROM orders
		WHERE owner_id = ?
		ORDER BY id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []order.Order{}
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("list orders: %w", err)
		}
		orders = append(orders, ord)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

func scanOrder(row scanner) (order.Order, error) {
	var (
		ord         order.Order
		kind        string
		status      string
		externalRef sql.NullString
		lastChecked sql.NullString
		createdAt   string
	)
	err := row.Scan(
		&ord.ID, &kind, &ord.OwnerID, &ord.TargetLink, &ord.Quantity,
		&ord.Content, &ord.ServiceKind, &ord.Speed, &ord.ChargedAmount,
		&status, &externalRef, &ord.DeliveredCount, &lastChecked,
		&ord.ErrorAnnotation, &createdAt,
	)
	if err != nil {
		return order.Order{}, err
	}

	ord.Kind = order.Kind(kind)
	ord.Status = order.Status(status)
	if externalRef.Valid {
		ord.ExternalReference = externalRef.String
	}
	if lastChecked.Valid {
		t, err := decodeTime(lastChecked.String)
		if err != nil {
			return order.Order{}, err
		}
		ord.LastCheckedAt = &t
	}
	created, err := decodeTime(createdAt)
	if err != nil {
		return order.Order{}, err
	}
	ord.CreatedAt = created
	return ord, nil
}
