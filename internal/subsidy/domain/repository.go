package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type SortBy string

const (
	SortByTitle              SortBy = "title"
	SortByApplicationEndDate SortBy = "applicationEndDate"
	SortByCreatedAt          SortBy = "createdAt"
)

// Filter narrows and orders catalog listings.
type Filter struct {
	Keyword        string
	RegionID       *snowflake.ID
	CategoryID     *snowflake.ID
	TargetGroupID  *snowflake.ID
	Status         *SubsidyStatus
	SortBy         SortBy
	SortDescending bool
	Page           int
	PageSize       int
}

// Repository is the catalog store consumed by collectors and the read API.
type Repository interface {
	GetByID(ctx context.Context, id snowflake.ID) (*Subsidy, error)
	GetByExternalID(ctx context.Context, externalID string) (*Subsidy, error)
	Exists(ctx context.Context, externalID string) (bool, error)
	List(ctx context.Context, filter Filter) ([]Subsidy, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	Insert(ctx context.Context, subsidy *Subsidy) error
	Update(ctx context.Context, subsidy *Subsidy) error
	ReplaceTargetGroups(ctx context.Context, subsidy *Subsidy, groups []TargetGroup) error
	CloseMissing(ctx context.Context, sourceType SourceType, activeExternalIDs []string, closedAt time.Time) (int64, error)

	GetRegionByCode(ctx context.Context, code string) (*Region, error)
	GetTopLevelRegions(ctx context.Context) ([]Region, error)
	GetRegionChildren(ctx context.Context, parentID snowflake.ID) ([]Region, error)
	ListRegions(ctx context.Context) ([]Region, error)
	GetCategoryByCode(ctx context.Context, code string) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	GetTargetGroupByCode(ctx context.Context, code string) (*TargetGroup, error)
}
