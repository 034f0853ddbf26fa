package application

import (
	"context"

	"github.com/sanosuguru/go-hall-booking/internal/domain/hall"
)

type HallService struct {
	hallRepo hall.Repository
}

func NewHallService(hallRepo hall.Repository) *HallService {
	return &HallService{hallRepo: hallRepo}
}

func (s *HallService) ListHalls(ctx context.Context) ([]*hall.Hall, error) {
	return s.hallRepo.List(ctx)
}

func (s *HallService) GetHall(ctx context.Context, id string) (*hall.Hall, error) {
	return s.hallRepo.GetByID(ctx, id)
}
