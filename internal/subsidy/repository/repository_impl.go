package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/subsidytracker/subsidytracker/internal/subsidy/domain"
	"github.com/subsidytracker/subsidytracker/pkg/db"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id snowflake.ID) (*domain.Subsidy, error) {
	var subsidy domain.Subsidy
	err := r.db.WithContext(ctx).
		Preload("Region").
		Preload("Category").
		Preload("TargetGroups").
		First(&subsidy, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &subsidy, nil
}

func (r *repository) GetByExternalID(ctx context.Context, externalID string) (*domain.Subsidy, error) {
	var subsidy domain.Subsidy
	err := r.db.WithContext(ctx).
		First(&subsidy, "external_id = ?", externalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &subsidy, nil
}

func (r *repository) Exists(ctx context.Context, externalID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Subsidy{}).
		Where("external_id = ?", externalID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) List(ctx context.Context, filter domain.Filter) ([]domain.Subsidy, error) {
	query := r.buildQuery(ctx, filter).
		Preload("Region").
		Preload("Category").
		Preload("TargetGroups")

	switch filter.SortBy {
	case domain.SortByTitle:
		query = query.Order(orderClause("title", filter.SortDescending))
	case domain.SortByApplicationEndDate:
		query = query.Order(orderClause("application_end_date", filter.SortDescending))
	default:
		query = query.Order(orderClause("created_at", filter.SortDescending))
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var subsidies []domain.Subsidy
	if err := query.Find(&subsidies).Error; err != nil {
		return nil, err
	}
	return subsidies, nil
}

func (r *repository) Count(ctx context.Context, filter domain.Filter) (int64, error) {
	var count int64
	if err := r.buildQuery(ctx, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) Insert(ctx context.Context, subsidy *domain.Subsidy) error {
	err := r.db.WithContext(ctx).Create(subsidy).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrDuplicateExternalID
	}
	return err
}

// Update overwrites the row. Callers stamp UpdatedAt themselves; it is
// the staleness clock for the collectors' update-vs-skip decision.
func (r *repository) Update(ctx context.Context, subsidy *domain.Subsidy) error {
	return r.db.WithContext(ctx).
		Omit("Region", "Category", "TargetGroups").
		Save(subsidy).Error
}

func (r *repository) ReplaceTargetGroups(ctx context.Context, subsidy *domain.Subsidy, groups []domain.TargetGroup) error {
	return r.db.WithContext(ctx).
		Model(subsidy).
		Association("TargetGroups").
		Replace(groups)
}

// CloseMissing marks stored rows of one source absent from its latest
// full listing as Closed. Only active rows of that source are touched;
// closedAt comes from the caller's clock.
func (r *repository) CloseMissing(ctx context.Context, sourceType domain.SourceType, activeExternalIDs []string, closedAt time.Time) (int64, error) {
	if len(activeExternalIDs) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Subsidy{}).
		Where("source_type = ?", sourceType).
		Where("status = ?", domain.StatusActive).
		Where("external_id IS NOT NULL").
		Where("external_id NOT IN ?", activeExternalIDs).
		Updates(map[string]any{
			"status":     domain.StatusClosed,
			"updated_at": closedAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) GetRegionByCode(ctx context.Context, code string) (*domain.Region, error) {
	var region domain.Region
	err := r.db.WithContext(ctx).First(&region, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRegionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &region, nil
}

func (r *repository) GetTopLevelRegions(ctx context.Context) ([]domain.Region, error) {
	var regions []domain.Region
	err := r.db.WithContext(ctx).
		Where("parent_id IS NULL").
		Order("name").
		Find(&regions).Error
	if err != nil {
		return nil, err
	}
	return regions, nil
}

func (r *repository) GetRegionChildren(ctx context.Context, parentID snowflake.ID) ([]domain.Region, error) {
	var regions []domain.Region
	err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("name").
		Find(&regions).Error
	if err != nil {
		return nil, err
	}
	return regions, nil
}

func (r *repository) ListRegions(ctx context.Context) ([]domain.Region, error) {
	var regions []domain.Region
	if err := r.db.WithContext(ctx).Order("name").Find(&regions).Error; err != nil {
		return nil, err
	}
	return regions, nil
}

func (r *repository) GetCategoryByCode(ctx context.Context, code string) (*domain.Category, error) {
	var category domain.Category
	err := r.db.WithContext(ctx).First(&category, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := r.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repository) GetTargetGroupByCode(ctx context.Context, code string) (*domain.TargetGroup, error) {
	var group domain.TargetGroup
	err := r.db.WithContext(ctx).First(&group, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *repository) buildQuery(ctx context.Context, filter domain.Filter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&domain.Subsidy{})

	if keyword := filter.Keyword; keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where(
			"title LIKE ? OR description LIKE ? OR organization LIKE ?",
			like, like, like,
		)
	}
	if filter.RegionID != nil {
		query = query.Where("region_id = ?", *filter.RegionID)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.TargetGroupID != nil {
		query = query.Where(
			"id IN (SELECT subsidy_id FROM subsidy_target_groups WHERE target_group_id = ?)",
			*filter.TargetGroupID,
		)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	return query
}

func orderClause(column string, descending bool) string {
	if descending {
		return column + " DESC"
	}
	return column + " ASC"
}
