package repository

import (
	"context"
	"fmt"

	"github.com/luckybee/storefront-system/internal/model"
)

// EnqueueMail ставит письмо в очередь mail. Доставкой занимается внешний воркер.
func (r *PostgresRepository) EnqueueMail(ctx context.Context, m model.Mail) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO mail (to_addr, subject, html, text_body) VALUES ($1, $2, $3, $4)`,
		m.To, m.Subject, m.HTML, m.Text,
	)
	if err != nil {
		return fmt.Errorf("enqueue mail: %w", err)
	}

	return nil
}
