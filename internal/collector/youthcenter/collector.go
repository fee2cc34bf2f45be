// Package youthcenter collects youth-policy listings from the
// youthcenter.go.kr policy API and closes stored policies that have
// disappeared from the upstream listing.
package youthcenter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
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

const sourceName = "YouthCenter"

const externalIDPrefix = "youth_"

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
		log:    log.Named("collector.youthcenter"),
	}
}

func (c *Collector) SourceName() string { return sourceName }

type policyResponse struct {
	ResultCode    int    `json:"resultCode"`
	ResultMessage string `json:"resultMessage"`
	Result        struct {
		Pagging struct {
			TotCount int `json:"totCount"`
			PageNum  int `json:"pageNum"`
			PageSize int `json:"pageSize"`
		} `json:"pagging"`
		YouthPolicyList []policyItem `json:"youthPolicyList"`
	} `json:"result"`
}

// policyItem maps the API's abbreviated field names at the boundary.
type policyItem struct {
	PolicyNo       string `json:"plcyNo"`
	Name           string `json:"plcyNm"`
	Description    string `json:"plcyExplnCn"`
	TopClass       string `json:"lclsfNm"`
	Benefit        string `json:"plcySprtCn"`
	Supervisor     string `json:"sprvsnInstCdNm"`
	SupervisorPic  string `json:"sprvsnInstPicNm"`
	Registrar      string `json:"rgtrInstCdNm"`
	ApplyMethod    string `json:"plcyAplyMthdCn"`
	ApplyURL       string `json:"aplyUrlAddr"`
	Qualification  string `json:"addAplyQlfcCndCn"`
	Excluded       string `json:"ptcpPrpTrgtCn"`
	MinAge         string `json:"sprtTrgtMinAge"`
	MaxAge         string `json:"sprtTrgtMaxAge"`
	BizStart       string `json:"bizPrdBgngYmd"`
	BizEnd         string `json:"bizPrdEndYmd"`
	ViewCount      string `json:"inqCnt"`
	ReferenceURL   string `json:"refUrlAddr1"`
	LastModifiedAt string `json:"lastMdfcnDt"`
}

func (c *Collector) Collect(ctx context.Context) (int, error) {
	run := &logdomain.CollectionLog{
		ID:         c.genID.Generate(),
		Source:     sourceName,
		SourceType: subsidydomain.SourceYouthCenter,
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
	pageNum := 1
	hasMore := true
	var seenExternalIDs []string

	for hasMore && ctx.Err() == nil {
		url := fmt.Sprintf("%s?apiKeyNm=%s&pageNum=%d&pageSize=%d&rtnType=json",
			c.cfg.BaseURL, c.cfg.APIKey, pageNum, c.cfg.PageSize)
		c.log.Info("fetching policy page", zap.Int("page", pageNum))

		body, err := c.fetchPage(ctx, url)
		if err != nil {
			c.log.Warn("page fetch failed, stopping pagination", zap.Int("page", pageNum), zap.Error(err))
			break
		}

		var resp policyResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			c.log.Warn("unexpected response shape", zap.Int("page", pageNum), zap.Error(err))
			break
		}
		if resp.ResultCode != 200 {
			c.log.Warn("api returned error result", zap.Int("code", resp.ResultCode), zap.String("message", resp.ResultMessage))
			break
		}

		policies := resp.Result.YouthPolicyList
		if len(policies) == 0 {
			break
		}
		if pageNum == 1 {
			c.log.Info("youth policies discovered", zap.Int("total", resp.Result.Pagging.TotCount))
		}

		for _, item := range policies {
			if ctx.Err() != nil {
				break
			}
			result, externalID := c.processItem(ctx, item, topRegions)
			if externalID != "" {
				seenExternalIDs = append(seenExternalIDs, externalID)
			}
			switch result {
			case itemCollected:
				totals.collected++
			case itemUpdated:
				totals.updated++
			case itemSkipped:
				totals.skipped++
			}
		}

		if len(policies) < c.cfg.PageSize {
			hasMore = false
		} else {
			pageNum++
		}

		if hasMore {
			if err := domain.Wait(ctx, c.cfg.PageDelay); err != nil {
				break
			}
		}
	}

	// Upstream reports removal only through absence: everything of this
	// source not seen in the current full listing is closed.
	var closed int64
	if len(seenExternalIDs) > 0 {
		closed, err = c.store.CloseMissing(ctx, subsidydomain.SourceYouthCenter, seenExternalIDs, c.clk.Now())
		if err != nil {
			c.log.Error("closing missing policies failed", zap.Error(err))
		} else if closed > 0 {
			c.log.Info("closed policies missing upstream", zap.Int64("closed", closed))
		}
	}

	c.finish(ctx, run, totals, logdomain.StatusCompleted, "")
	c.log.Info("collection finished",
		zap.Int("collected", totals.collected),
		zap.Int("updated", totals.updated),
		zap.Int("skipped", totals.skipped),
		zap.Int64("closed", closed),
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

func (c *Collector) processItem(ctx context.Context, item policyItem, topRegions []subsidydomain.Region) (itemResult, string) {
	if item.PolicyNo == "" {
		return itemSkipped, ""
	}
	externalID := externalIDPrefix + item.PolicyNo

	existing, err := c.store.GetByExternalID(ctx, externalID)
	if err == nil {
		return c.maybeUpdate(ctx, existing, item), externalID
	}
	if !errors.Is(err, subsidydomain.ErrNotFound) {
		c.log.Error("dedup lookup failed", zap.String("external_id", externalID), zap.Error(err))
		return itemSkipped, externalID
	}

	categoryCode := mapping.YouthCategories.Resolve(item.TopClass, "YOUTH")
	category, err := c.store.GetCategoryByCode(ctx, categoryCode)
	if err != nil {
		category, err = c.store.GetCategoryByCode(ctx, subsidydomain.CategoryCodeEtc)
		if err != nil {
			c.log.Error("sentinel category missing", zap.Error(err))
			return itemSkipped, externalID
		}
	}

	orgName := item.Supervisor
	if orgName == "" {
		orgName = item.Registrar
	}
	region, ok := mapping.ResolveRegion(orgName, topRegions)
	if !ok {
		c.log.Error("sentinel region missing")
		return itemSkipped, externalID
	}

	sourceURL := item.ReferenceURL
	if sourceURL == "" {
		sourceURL = fmt.Sprintf("https://www.youthcenter.go.kr/youthPolicy/bis498/%s", item.PolicyNo)
	}
	title := item.Name
	if title == "" {
		title = "제목 없음"
	}
	organization := item.Supervisor
	if organization == "" {
		organization = "온통청년"
	}

	now := c.clk.Now()
	subsidy := &subsidydomain.Subsidy{
		ID:                   c.genID.Generate(),
		Title:                title,
		Description:          item.Description,
		Organization:         organization,
		Amount:               optional(item.Benefit),
		EligibilityCriteria:  buildEligibility(item),
		ApplicationMethod:    optional(item.ApplyMethod),
		ApplicationURL:       optional(item.ApplyURL),
		ContactInfo:          optional(item.SupervisorPic),
		SourceURL:            optional(sourceURL),
		ExternalID:           &externalID,
		ApplicationStartDate: parseYMD(item.BizStart),
		ApplicationEndDate:   parseYMD(item.BizEnd),
		Status:               subsidydomain.StatusActive,
		SourceType:           subsidydomain.SourceYouthCenter,
		ViewCount:            parseCount(item.ViewCount),
		RegionID:             region.ID,
		CategoryID:           category.ID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := c.store.Insert(ctx, subsidy); err != nil {
		if !errors.Is(err, subsidydomain.ErrDuplicateExternalID) {
			c.log.Warn("insert failed", zap.String("external_id", externalID), zap.Error(err))
		}
		return itemSkipped, externalID
	}
	return itemCollected, externalID
}

func (c *Collector) maybeUpdate(ctx context.Context, existing *subsidydomain.Subsidy, item policyItem) itemResult {
	if item.LastModifiedAt == "" || !existing.UpdatedAt.Before(c.clk.Now().Add(-stalenessWindow)) {
		return itemSkipped
	}

	if item.Name != "" {
		existing.Title = item.Name
	}
	if item.Description != "" {
		existing.Description = item.Description
	}
	if item.Supervisor != "" {
		existing.Organization = item.Supervisor
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
	if v := optional(item.SupervisorPic); v != nil {
		existing.ContactInfo = v
	}
	existing.ViewCount = parseCount(item.ViewCount)
	existing.UpdatedAt = c.clk.Now()

	if err := c.store.Update(ctx, existing); err != nil {
		c.log.Error("update failed", zap.Error(err))
		return itemSkipped
	}
	return itemUpdated
}

func (c *Collector) fetchPage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")

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

	if err := c.logs.Update(context.WithoutCancel(ctx), run); err != nil {
		c.log.Error("failed to finalize collection log", zap.Error(err))
	}
}

// buildEligibility assembles labeled sections from the age range,
// qualification and exclusion fields, omitting empty ones.
func buildEligibility(item policyItem) *string {
	var parts []string
	if item.MinAge != "" && item.MaxAge != "" && item.MinAge != "0" && item.MaxAge != "0" {
		parts = append(parts, fmt.Sprintf("[연령] %s세 ~ %s세", item.MinAge, item.MaxAge))
	}
	if item.Qualification != "" {
		parts = append(parts, "[자격요건] "+item.Qualification)
	}
	if item.Excluded != "" {
		parts = append(parts, "[참여제외] "+item.Excluded)
	}
	if len(parts) == 0 {
		return nil
	}
	joined := strings.Join(parts, "\n")
	return &joined
}

var ymdLayouts = []string{"20060102", "2006-01-02", "2006.01.02"}

func parseYMD(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if len(raw) < 8 {
		return nil
	}
	for _, layout := range ymdLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}

func parseCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
