package memory

import (
	"context"
	"sort"

	"github.com/sanosuguru/go-hall-booking/internal/domain/hall"
)

// DefaultHalls はマイグレーションと同じ初期ホール
func DefaultHalls() []*hall.Hall {
	return []*hall.Hall{
		hall.NewHall("main-hall", "メインホール", 300),
		hall.NewHall("conference-room", "会議室", 40),
		hall.NewHall("seminar-room", "セミナー室", 80),
	}
}

// HallRepository は固定のホール一覧を返すリポジトリ
type HallRepository struct {
	halls map[string]hall.Hall
}

var _ hall.Repository = (*HallRepository)(nil)

func NewHallRepository(halls ...*hall.Hall) *HallRepository {
	m := make(map[string]hall.Hall, len(halls))
	for _, h := range halls {
		m[h.ID] = *h
	}
	return &HallRepository{halls: m}
}

func (r *HallRepository) GetByID(ctx context.Context, id string) (*hall.Hall, error) {
	h, ok := r.halls[id]
	if !ok {
		return nil, hall.ErrHallNotFound
	}
	return &h, nil
}

func (r *HallRepository) List(ctx context.Context) ([]*hall.Hall, error) {
	out := make([]*hall.Hall, 0, len(r.halls))
	for _, h := range r.halls {
		out = append(out, &h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
