package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type SubsidyStatus string

const (
	StatusActive   SubsidyStatus = "Active"
	StatusUpcoming SubsidyStatus = "Upcoming"
	StatusExpired  SubsidyStatus = "Expired"
	StatusClosed   SubsidyStatus = "Closed"
)

type SourceType string

const (
	SourcePublicDataPortal SourceType = "PublicDataPortal"
	SourceBokjiro          SourceType = "Bokjiro"
	SourceYouthCenter      SourceType = "YouthCenter"
	SourceLocalGovernment  SourceType = "LocalGovernment"
	SourceManual           SourceType = "Manual"
)

// Sentinel codes used when no mapping resolves.
const (
	RegionCodeAll   = "ALL"
	CategoryCodeEtc = "ETC"
)

// Subsidy is one normalized benefit listing. ExternalID is the
// source-namespaced dedup key; rows without one are never deduplicated.
type Subsidy struct {
	ID                   snowflake.ID  `gorm:"primaryKey" json:"id"`
	Title                string        `gorm:"size:500;not null" json:"title"`
	Description          string        `gorm:"type:text" json:"description"`
	Organization         string        `gorm:"size:300" json:"organization"`
	Amount               *string       `gorm:"type:text" json:"amount,omitempty"`
	EligibilityCriteria  *string       `gorm:"type:text" json:"eligibility_criteria,omitempty"`
	ApplicationMethod    *string       `gorm:"type:text" json:"application_method,omitempty"`
	ApplicationURL       *string       `gorm:"size:1000" json:"application_url,omitempty"`
	ContactInfo          *string       `gorm:"size:300" json:"contact_info,omitempty"`
	SourceURL            *string       `gorm:"size:1000" json:"source_url,omitempty"`
	ExternalID           *string       `gorm:"size:200;uniqueIndex" json:"external_id,omitempty"`
	ApplicationStartDate *time.Time    `json:"application_start_date,omitempty"`
	ApplicationEndDate   *time.Time    `json:"application_end_date,omitempty"`
	Status               SubsidyStatus `gorm:"size:30;not null;index" json:"status"`
	SourceType           SourceType    `gorm:"size:40;not null;index" json:"source_type"`
	ViewCount            int           `gorm:"not null;default:0" json:"view_count"`

	RegionID snowflake.ID `gorm:"not null;index" json:"region_id"`
	Region   Region       `json:"region,omitempty"`

	CategoryID snowflake.ID `gorm:"not null;index" json:"category_id"`
	Category   Category     `json:"category,omitempty"`

	TargetGroups []TargetGroup `gorm:"many2many:subsidy_target_groups" json:"target_groups,omitempty"`

	// Timestamps are stamped by callers through the shared clock so the
	// staleness policy stays testable; gorm's auto time is disabled.
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
}

func (Subsidy) TableName() string { return "subsidies" }

// Region is hierarchical: top-level rows have a nil ParentID. The
// sentinel ALL region always exists and is the default resolution target.
type Region struct {
	ID       snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name     string        `gorm:"size:100;not null" json:"name"`
	Code     string        `gorm:"size:50;not null;uniqueIndex" json:"code"`
	ParentID *snowflake.ID `gorm:"index" json:"parent_id,omitempty"`
}

func (Region) TableName() string { return "regions" }

type Category struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:100;not null" json:"name"`
	Code        string       `gorm:"size:50;not null;uniqueIndex" json:"code"`
	Description *string      `gorm:"size:300" json:"description,omitempty"`
}

func (Category) TableName() string { return "categories" }

type TargetGroup struct {
	ID   snowflake.ID `gorm:"primaryKey" json:"id"`
	Name string       `gorm:"size:100;not null" json:"name"`
	Code string       `gorm:"size:50;not null;uniqueIndex" json:"code"`
}

func (TargetGroup) TableName() string { return "target_groups" }

type SubsidyTargetGroup struct {
	SubsidyID     snowflake.ID `gorm:"primaryKey" json:"subsidy_id"`
	TargetGroupID snowflake.ID `gorm:"primaryKey" json:"target_group_id"`
}

func (SubsidyTargetGroup) TableName() string { return "subsidy_target_groups" }

// ParseStatus maps a query value onto a status, defaulting to Active.
func ParseStatus(raw string) (SubsidyStatus, bool) {
	if raw == "" {
		return StatusActive, true
	}
	for _, s := range []SubsidyStatus{StatusActive, StatusUpcoming, StatusExpired, StatusClosed} {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}
