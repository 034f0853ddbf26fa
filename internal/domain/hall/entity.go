package hall

import (
	"regexp"
	"time"
)

// Hall は予約対象のホールを表す
type Hall struct {
	ID        string // "main-hall" のようなスラッグ
	Name      string
	Capacity  int
	CreatedAt time.Time
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// NewHall は新しいホールを作成する
func NewHall(id, name string, capacity int) *Hall {
	return &Hall{
		ID:        id,
		Name:      name,
		Capacity:  capacity,
		CreatedAt: time.Now(),
	}
}

// Validate はホールの検証を行う
func (h *Hall) Validate() error {
	if !slugPattern.MatchString(h.ID) {
		return ErrInvalidHallID
	}
	if h.Name == "" {
		return ErrHallNameRequired
	}
	if h.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	return nil
}
