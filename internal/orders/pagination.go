package orders

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/safar/go-checkout/internal/models"
)

type CursorPage struct {
	Items      []models.Order `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
}

type cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        int64     `json:"id"`
}

func encodeCursor(c cursor) string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

func decodeCursor(encoded string) (cursor, error) {
	if encoded == "" {
		return cursor{
			CreatedAt: time.Now(),
			ID:        int64(1<<63 - 1),
		}, nil
	}

	var c cursor
	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return c, err
	}

	err = json.Unmarshal(data, &c)
	return c, err
}

// ListByUser pages a user's orders newest first. Items and history are
// not expanded; use Get for the full aggregate.
func ListByUser(ctx context.Context, db *sql.DB, userID int64, encodedCursor string, limit int) (*CursorPage, error) {
	c, err := decodeCursor(encodedCursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, order_number, status, payment_method, payment_status,
		        subtotal, discount_amount, total, total_with_shipping, created_at, updated_at
		 FROM orders
		 WHERE user_id = $1
		   AND (created_at, id) < ($2, $3)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $4`,
		userID, c.CreatedAt, c.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var list []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID, &order.UserID, &order.OrderNumber, &order.Status,
			&order.PaymentMethod, &order.PaymentStatus,
			&order.Subtotal, &order.DiscountAmount, &order.Total, &order.TotalWithShipping,
			&order.CreatedAt, &order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		list = append(list, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(list) > limit
	if hasMore {
		list = list[:limit]
	}

	var nextCursor string
	if hasMore && len(list) > 0 {
		last := list[len(list)-1]
		nextCursor = encodeCursor(cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &CursorPage{
		Items:      list,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
