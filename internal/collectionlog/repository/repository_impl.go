package repository

import (
	"context"

	"github.com/subsidytracker/subsidytracker/internal/collectionlog/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) Add(ctx context.Context, log *domain.CollectionLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) Update(ctx context.Context, log *domain.CollectionLog) error {
	return r.db.WithContext(ctx).Save(log).Error
}

func (r *repository) GetRecent(ctx context.Context, count int) ([]domain.CollectionLog, error) {
	if count <= 0 {
		count = 10
	}

	var logs []domain.CollectionLog
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(count).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
