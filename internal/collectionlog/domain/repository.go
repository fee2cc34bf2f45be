package domain

import "context"

type Repository interface {
	Add(ctx context.Context, log *CollectionLog) error
	Update(ctx context.Context, log *CollectionLog) error
	GetRecent(ctx context.Context, count int) ([]CollectionLog, error)
}
