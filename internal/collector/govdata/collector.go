// Package govdata collects benefit listings from the public-data portal
// service list API (api.odcloud.kr gov24 serviceList).
package govdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/subsidytracker/subsidytracker/internal/clock"
	logdomain "github.com/subsidytracker/subsidytracker/internal/collectionlog/domain"
	"github.com/subsidytracker/subsidytracker/internal/collector/domain"
	"github.com/subsidytracker/subsidytracker/internal/collector/mapping"
	subsidydomain "github.com/subsidytracker/subsidytracker/internal/subsidy/domain"
	"go.uber.org/zap"
)

const sourceName = "PublicDataPortal"

// stalenessWindow bounds update churn to at most once per day per record.
const stalenessWindow = 24 * time.Hour

type Config struct {
	APIKey    string
	BaseURL   string
	PageSize  int
	PageDelay time.Duration
}

type Collector struct {
	cfg    Config
	client *http.Client
	store  subsidydomain.Repository
	logs   logdomain.Repository
	clk    clock.Clock
	genID  *snowflake.Node
	log    *zap.Logger
}

func New(
	cfg Config,
	client *http.Client,
	store subsidydomain.Repository,
	logs logdomain.Repository,
	clk clock.Clock,
	genID *snowflake.Node,
	log *zap.Logger,
) *Collector {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &Collector{
		cfg:    cfg,
		client: client,
		store:  store,
		logs:   logs,
		clk:    clk,
		genID:  genID,
		log:    log.Named("collector.govdata"),
	}
}

func (c *Collector) SourceName() string { return sourceName }

// listResponse is the portal's page envelope.
type listResponse struct {
	Page         int           `json:"page"`
	PerPage      int           `json:"perPage"`
	TotalCount   int           `json:"totalCount"`
	CurrentCount int           `json:"currentCount"`
	Data         []serviceItem `json:"data"`
}

// serviceItem maps the portal's Korean field names once, at the
// boundary, instead of carrying untyped maps through the pipeline.
type serviceItem struct {
	ServiceID    string `json:"서비스ID"`
	Name         string `json:"서비스명"`
	Summary      string `json:"서비스목적요약"`
	Target       string `json:"지원대상"`
	Criteria     string `json:"선정기준"`
	Benefit      string `json:"지원내용"`
	ApplyMethod  string `json:"신청방법"`
	Deadline     string `json:"신청기한"`
	OrgName      string `json:"소관기관명"`
	UserCategory string `json:"사용자구분"`
	ServiceField string `json:"서비스분야"`
	Contact      string `json:"전화문의"`
	DetailURL    string `json:"상세조회URL"`
	ModifiedAt   string `json:"수정일시"`
}

func (c *Collector) Collect(ctx context.Context) (int, error) {
	run := &logdomain.CollectionLog{
		ID:         c.genID.Generate(),
		Source:     sourceName,
		SourceType: subsidydomain.SourcePublicDataPortal,
		StartedAt:  c.clk.Now(),
		Status:     logdomain.StatusRunning,
	}
	if err := c.logs.Add(ctx, run); err != nil {
		return 0, fmt.Errorf("create collection log: %w", err)
	}

	if c.cfg.APIKey == "" || c.cfg.APIKey == domain.PlaceholderAPIKey {
		c.log.Warn("api key is not configured, skipping run")
		c.finish(ctx, run, counts{}, logdomain.StatusFailed, domain.ErrMissingAPIKey.Error())
		return 0, nil
	}

	topRegions, err := c.store.GetTopLevelRegions(ctx)
	if err != nil {
		c.finish(ctx, run, counts{}, logdomain.StatusFailed, err.Error())
		return 0, fmt.Errorf("load top-level regions: %w", err)
	}

	var totals counts
	page := 1
	hasMore := true

	for hasMore && ctx.Err() == nil {
		url := fmt.Sprintf("%s?page=%d&perPage=%d&returnType=JSON", c.cfg.BaseURL, page, c.cfg.PageSize)
		c.log.Info("fetching service list page", zap.Int("page", page))

		body, err := c.fetchPage(ctx, url)
		if err != nil {
			// A page-level failure ends pagination but keeps what
			// was already accumulated.
			c.log.Warn("page fetch failed, stopping pagination", zap.Int("page", page), zap.Error(err))
			break
		}

		var resp listResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			c.log.Warn("unexpected response shape", zap.Int("page", page), zap.Error(err))
			break
		}
		if len(resp.Data) == 0 {
			break
		}
		if page == 1 {
			c.log.Info("service list discovered", zap.Int("total", resp.TotalCount))
		}

		for _, item := range resp.Data {
			if ctx.Err() != nil {
				break
			}
			switch c.processItem(ctx, item, topRegions) {
			case itemCollected:
				totals.collected++
			case itemUpdated:
				totals.updated++
			case itemSkipped:
				totals.skipped++
			}
		}

		currentCount := resp.CurrentCount
		if currentCount == 0 {
			currentCount = len(resp.Data)
		}
		if currentCount < c.cfg.PageSize {
			hasMore = false
		} else {
			page++
		}

		if hasMore {
			if err := domain.Wait(ctx, c.cfg.PageDelay); err != nil {
				break
			}
		}
	}

	c.finish(ctx, run, totals, logdomain.StatusCompleted, "")
	c.log.Info("collection finished",
		zap.Int("collected", totals.collected),
		zap.Int("updated", totals.updated),
		zap.Int("skipped", totals.skipped),
	)
	return totals.collected, nil
}

type counts struct {
	collected int
	updated   int
	skipped   int
}

type itemResult int

const (
	itemSkipped itemResult = iota
	itemCollected
	itemUpdated
)

func (c *Collector) processItem(ctx context.Context, item serviceItem, topRegions []subsidydomain.Region) itemResult {
	if item.ServiceID == "" {
		return itemSkipped
	}
	externalID := item.ServiceID

	existing, err := c.store.GetByExternalID(ctx, externalID)
	if err == nil {
		return c.maybeUpdate(ctx, existing, item)
	}
	if !errors.Is(err, subsidydomain.ErrNotFound) {
		c.log.Error("dedup lookup failed", zap.String("external_id", externalID), zap.Error(err))
		return itemSkipped
	}

	categoryCode := mapping.GovDataCategories.Resolve(item.ServiceField, subsidydomain.CategoryCodeEtc)
	category, err := c.store.GetCategoryByCode(ctx, categoryCode)
	if err != nil {
		category, err = c.store.GetCategoryByCode(ctx, subsidydomain.CategoryCodeEtc)
		if err != nil {
			c.log.Error("sentinel category missing", zap.Error(err))
			return itemSkipped
		}
	}

	region, ok := mapping.ResolveRegion(item.OrgName, topRegions)
	if !ok {
		c.log.Error("sentinel region missing")
		return itemSkipped
	}

	sourceURL := item.DetailURL
	if sourceURL == "" {
		sourceURL = fmt.Sprintf("https://www.gov.kr/portal/rcvfvrSvc/dtlEx/%s", externalID)
	}
	title := item.Name
	if title == "" {
		title = "제목 없음"
	}

	now := c.clk.Now()
	subsidy := &subsidydomain.Subsidy{
		ID:                  c.genID.Generate(),
		Title:               title,
		Description:         item.Summary,
		Organization:        item.OrgName,
		Amount:              optional(item.Benefit),
		EligibilityCriteria: buildEligibility(item),
		ApplicationMethod:   optional(item.ApplyMethod),
		ApplicationURL:      optional(item.DetailURL),
		ContactInfo:         optional(item.Contact),
		SourceURL:           optional(sourceURL),
		ExternalID:          &externalID,
		ApplicationEndDate:  parseDeadline(item.Deadline),
		Status:              subsidydomain.StatusActive,
		SourceType:          subsidydomain.SourcePublicDataPortal,
		RegionID:            region.ID,
		CategoryID:          category.ID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := c.store.Insert(ctx, subsidy); err != nil {
		// Concurrent runs can race existence-check-then-insert on the
		// same external id; the unique index turns that into a skip.
		if !errors.Is(err, subsidydomain.ErrDuplicateExternalID) {
			c.log.Warn("insert failed", zap.String("external_id", externalID), zap.Error(err))
		}
		return itemSkipped
	}

	c.attachTargetGroups(ctx, subsidy, item.UserCategory)
	return itemCollected
}

// maybeUpdate applies the staleness policy: mutable fields are only
// overwritten when the stored update timestamp is older than the
// staleness window.
func (c *Collector) maybeUpdate(ctx context.Context, existing *subsidydomain.Subsidy, item serviceItem) itemResult {
	if item.ModifiedAt == "" || !existing.UpdatedAt.Before(c.clk.Now().Add(-stalenessWindow)) {
		return itemSkipped
	}

	if item.Name != "" {
		existing.Title = item.Name
	}
	if item.Summary != "" {
		existing.Description = item.Summary
	}
	if item.OrgName != "" {
		existing.Organization = item.OrgName
	}
	if v := optional(item.Benefit); v != nil {
		existing.Amount = v
	}
	if v := buildEligibility(item); v != nil {
		existing.EligibilityCriteria = v
	}
	if v := optional(item.ApplyMethod); v != nil {
		existing.ApplicationMethod = v
	}
	if v := optional(item.Contact); v != nil {
		existing.ContactInfo = v
	}
	existing.UpdatedAt = c.clk.Now()

	if err := c.store.Update(ctx, existing); err != nil {
		c.log.Error("update failed", zap.Error(err))
		return itemSkipped
	}
	return itemUpdated
}

func (c *Collector) attachTargetGroups(ctx context.Context, subsidy *subsidydomain.Subsidy, userCategory string) {
	codes := mapping.TargetGroupCodes(userCategory)
	if len(codes) == 0 {
		return
	}

	var groups []subsidydomain.TargetGroup
	for _, code := range codes {
		group, err := c.store.GetTargetGroupByCode(ctx, code)
		if err != nil {
			continue
		}
		groups = append(groups, *group)
	}
	if len(groups) == 0 {
		return
	}

	if err := c.store.ReplaceTargetGroups(ctx, subsidy, groups); err != nil {
		c.log.Warn("target group association failed", zap.Error(err))
	}
}

func (c *Collector) fetchPage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Infuser "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (c *Collector) finish(ctx context.Context, run *logdomain.CollectionLog, totals counts, status logdomain.CollectionStatus, errMsg string) {
	run.ItemsCollected = totals.collected
	run.ItemsUpdated = totals.updated
	run.ItemsSkipped = totals.skipped
	run.Status = status
	if errMsg != "" {
		run.ErrorMessage = &errMsg
	}
	completed := c.clk.Now()
	run.CompletedAt = &completed

	// Finalization must survive cancellation of the run itself.
	if err := c.logs.Update(context.WithoutCancel(ctx), run); err != nil {
		c.log.Error("failed to finalize collection log", zap.Error(err))
	}
}

// buildEligibility assembles the eligibility text from the labeled
// sub-fields the source provides, omitting empty sections.
func buildEligibility(item serviceItem) *string {
	var parts []string
	if item.Target != "" {
		parts = append(parts, "[지원대상] "+item.Target)
	}
	if item.Criteria != "" {
		parts = append(parts, "[선정기준] "+item.Criteria)
	}
	if len(parts) == 0 {
		return nil
	}
	joined := strings.Join(parts, "\n")
	return &joined
}

var deadlineLayouts = []string{"2006-01-02", "2006.01.02", "20060102"}

// parseDeadline parses the free-text 신청기한 field; sentinel values like
// 상시 and 별도공지 and anything unparsable leave the date unset.
func parseDeadline(raw string) *time.Time {
	if raw == "" || raw == "상시" || raw == "별도공지" {
		return nil
	}
	for _, layout := range deadlineLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
