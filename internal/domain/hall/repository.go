package hall

import "context"

// Repository はホールリポジトリのインターフェース。ホールはマイグレーションで投入される固定集合
type Repository interface {
	// GetByID はIDからホールを取得する
	GetByID(ctx context.Context, id string) (*Hall, error)

	// List はホール一覧を取得する
	List(ctx context.Context) ([]*Hall, error)
}
