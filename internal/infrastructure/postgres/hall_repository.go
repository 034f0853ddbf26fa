package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-hall-booking/internal/domain/hall"
)

type hallRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Capacity  int       `db:"capacity"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *hallRow) toEntity() *hall.Hall {
	return &hall.Hall{ID: r.ID, Name: r.Name, Capacity: r.Capacity, CreatedAt: r.CreatedAt}
}

// HallRepository はPostgreSQLを使用したホールリポジトリ
type HallRepository struct {
	db *sqlx.DB
}

var _ hall.Repository = (*HallRepository)(nil)

func NewHallRepository(db *sqlx.DB) *HallRepository {
	return &HallRepository{db: db}
}

// GetByID はIDからホールを取得する
func (r *HallRepository) GetByID(ctx context.Context, id string) (*hall.Hall, error) {
	var row hallRow
	query := `SELECT id, name, capacity, created_at FROM halls WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hall.ErrHallNotFound
		}
		return nil, classifyError("ホール取得に失敗", err)
	}
	return row.toEntity(), nil
}

// List はホール一覧を取得する
func (r *HallRepository) List(ctx context.Context) ([]*hall.Hall, error) {
	var rows []hallRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, name, capacity, created_at FROM halls ORDER BY id`); err != nil {
		return nil, classifyError("ホール一覧取得に失敗", err)
	}
	halls := make([]*hall.Hall, len(rows))
	for i := range rows {
		halls[i] = rows[i].toEntity()
	}
	return halls, nil
}
