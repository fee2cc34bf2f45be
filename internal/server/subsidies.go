package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	subsidydomain "github.com/subsidytracker/subsidytracker/internal/subsidy/domain"
	"github.com/subsidytracker/subsidytracker/pkg/db/pagination"
)

type subsidyListItem struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Organization       string     `json:"organization"`
	Amount             *string    `json:"amount,omitempty"`
	RegionName         string     `json:"region_name"`
	CategoryName       string     `json:"category_name"`
	TargetGroups       []string   `json:"target_groups"`
	Status             string     `json:"status"`
	ApplicationEndDate *time.Time `json:"application_end_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type subsidyDetail struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Organization         string     `json:"organization"`
	Amount               *string    `json:"amount,omitempty"`
	EligibilityCriteria  *string    `json:"eligibility_criteria,omitempty"`
	ApplicationMethod    *string    `json:"application_method,omitempty"`
	ApplicationURL       *string    `json:"application_url,omitempty"`
	ContactInfo          *string    `json:"contact_info,omitempty"`
	SourceURL            *string    `json:"source_url,omitempty"`
	ApplicationStartDate *time.Time `json:"application_start_date,omitempty"`
	ApplicationEndDate   *time.Time `json:"application_end_date,omitempty"`
	Status               string     `json:"status"`
	SourceType           string     `json:"source_type"`
	ViewCount            int        `json:"view_count"`
	RegionName           string     `json:"region_name"`
	CategoryName         string     `json:"category_name"`
	TargetGroups         []string   `json:"target_groups"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

type pagedResult struct {
	Items      []subsidyListItem `json:"items"`
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
}

func (s *Server) ListSubsidies(c *gin.Context) {
	filter, err := s.buildFilter(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.respondPaged(c, filter)
}

// SearchSubsidies is the keyword-first variant of the listing; unlike
// ListSubsidies it requires a keyword and applies no status default.
func (s *Server) SearchSubsidies(c *gin.Context) {
	keyword := strings.TrimSpace(c.Query("keyword"))
	if keyword == "" {
		AbortWithError(c, newValidationError("keyword", "invalid_keyword", "검색어를 입력해주세요"))
		return
	}

	page := pagination.Page{}
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, newValidationError("page", "invalid_page", "invalid pagination"))
		return
	}
	page = page.Normalize()

	s.respondPaged(c, subsidydomain.Filter{
		Keyword:  keyword,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}

func (s *Server) GetSubsidy(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid subsidy id"))
		return
	}

	subsidy, err := s.subsidies.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toDetail(subsidy))
}

func (s *Server) respondPaged(c *gin.Context, filter subsidydomain.Filter) {
	ctx := c.Request.Context()

	subsidies, err := s.subsidies.List(ctx, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	total, err := s.subsidies.Count(ctx, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items := make([]subsidyListItem, 0, len(subsidies))
	for i := range subsidies {
		items = append(items, toListItem(&subsidies[i]))
	}

	c.JSON(http.StatusOK, pagedResult{
		Items:      items,
		TotalCount: total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
	})
}

func (s *Server) buildFilter(c *gin.Context) (subsidydomain.Filter, error) {
	page := pagination.Page{}
	if err := c.ShouldBindQuery(&page); err != nil {
		return subsidydomain.Filter{}, newValidationError("page", "invalid_page", "invalid pagination")
	}
	page = page.Normalize()

	regionID, err := parseOptionalSnowflakeID(c.Query("regionId"))
	if err != nil {
		return subsidydomain.Filter{}, newValidationError("regionId", "invalid_region_id", "invalid region id")
	}
	categoryID, err := parseOptionalSnowflakeID(c.Query("categoryId"))
	if err != nil {
		return subsidydomain.Filter{}, newValidationError("categoryId", "invalid_category_id", "invalid category id")
	}
	targetGroupID, err := parseOptionalSnowflakeID(c.Query("targetGroupId"))
	if err != nil {
		return subsidydomain.Filter{}, newValidationError("targetGroupId", "invalid_target_group_id", "invalid target group id")
	}

	// Listings default to active records unless a status is requested.
	status, ok := subsidydomain.ParseStatus(c.Query("status"))
	if !ok {
		return subsidydomain.Filter{}, newValidationError("status", "invalid_status", "invalid status")
	}

	descending := true
	if parsed, err := parseOptionalBool(c.Query("sortDescending")); err != nil {
		return subsidydomain.Filter{}, newValidationError("sortDescending", "invalid_sort", "invalid sort direction")
	} else if parsed != nil {
		descending = *parsed
	}

	return subsidydomain.Filter{
		Keyword:        strings.TrimSpace(c.Query("keyword")),
		RegionID:       regionID,
		CategoryID:     categoryID,
		TargetGroupID:  targetGroupID,
		Status:         &status,
		SortBy:         parseSortBy(c.Query("sortBy")),
		SortDescending: descending,
		Page:           page.Page,
		PageSize:       page.PageSize,
	}, nil
}

// parseSortBy whitelists sortable columns; anything else falls back to
// creation time.
func parseSortBy(raw string) subsidydomain.SortBy {
	switch subsidydomain.SortBy(raw) {
	case subsidydomain.SortByTitle:
		return subsidydomain.SortByTitle
	case subsidydomain.SortByApplicationEndDate:
		return subsidydomain.SortByApplicationEndDate
	default:
		return subsidydomain.SortByCreatedAt
	}
}

func toListItem(s *subsidydomain.Subsidy) subsidyListItem {
	return subsidyListItem{
		ID:                 s.ID.String(),
		Title:              s.Title,
		Organization:       s.Organization,
		Amount:             s.Amount,
		RegionName:         s.Region.Name,
		CategoryName:       s.Category.Name,
		TargetGroups:       targetGroupNames(s.TargetGroups),
		Status:             string(s.Status),
		ApplicationEndDate: s.ApplicationEndDate,
		CreatedAt:          s.CreatedAt,
	}
}

func toDetail(s *subsidydomain.Subsidy) subsidyDetail {
	return subsidyDetail{
		ID:                   s.ID.String(),
		Title:                s.Title,
		Description:          s.Description,
		Organization:         s.Organization,
		Amount:               s.Amount,
		EligibilityCriteria:  s.EligibilityCriteria,
		ApplicationMethod:    s.ApplicationMethod,
		ApplicationURL:       s.ApplicationURL,
		ContactInfo:          s.ContactInfo,
		SourceURL:            s.SourceURL,
		ApplicationStartDate: s.ApplicationStartDate,
		ApplicationEndDate:   s.ApplicationEndDate,
		Status:               string(s.Status),
		SourceType:           string(s.SourceType),
		ViewCount:            s.ViewCount,
		RegionName:           s.Region.Name,
		CategoryName:         s.Category.Name,
		TargetGroups:         targetGroupNames(s.TargetGroups),
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func targetGroupNames(groups []subsidydomain.TargetGroup) []string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	return names
}
