// internal/repository/postgres_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"printer-service/internal/database"
	"printer-service/internal/model"
)

// PostgresRepository stores the printer registry in PostgreSQL. Used
// when several POS stations share one printer fleet and one receipt
// sequence.
type PostgresRepository struct {
	db     *database.DB
	logger *zap.Logger
}

func NewPostgresRepository(db *database.DB, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, logger: logger}
}

func (r *PostgresRepository) Save(ctx context.Context, printer *model.Printer) error {
	identity := printer.Identity()
	query := `
		INSERT INTO printers (id, name, model, transport, address, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			model = EXCLUDED.model,
			transport = EXCLUDED.transport,
			address = EXCLUDED.address,
			last_seen = EXCLUDED.last_seen`

	_, err := r.db.ExecContext(ctx, query,
		identity.ID, identity.Name, identity.Model,
		string(identity.Transport), identity.Address, identity.LastSeen)
	if err != nil {
		return fmt.Errorf("save printer %s: %w", identity.ID, err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*model.Printer, error) {
	query := `
		SELECT id, name, model, transport, address, last_seen
		FROM printers
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list printers: %w", err)
	}
	defer rows.Close()

	var printers []*model.Printer
	for rows.Next() {
		p := &model.Printer{
			Connected: false,
			State:     model.StateDisconnected,
		}
		var transport string
		if err := rows.Scan(&p.ID, &p.Name, &p.Model, &transport, &p.Address, &p.LastSeen); err != nil {
			return nil, fmt.Errorf("scan printer row: %w", err)
		}
		p.Transport = model.TransportKind(transport)
		printers = append(printers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate printer rows: %w", err)
	}
	return printers, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM printers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete printer %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete printer %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) NextReceiptNumber(ctx context.Context) (int64, error) {
	query := `
		INSERT INTO counters (name, value) VALUES ('receipt', 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value`

	var n int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("allocate receipt number: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) PeekReceiptNumber(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM counters WHERE name = 'receipt'`).Scan(&n)
	switch {
	case err == sql.ErrNoRows:
		return 1, nil
	case err != nil:
		return 0, fmt.Errorf("peek receipt number: %w", err)
	}
	return n + 1, nil
}

func (r *PostgresRepository) Close() error {
	// Pool lifecycle belongs to the application.
	return nil
}
