// Package bokjiro crawls the bokjiro.go.kr welfare-service listing page.
// The site has no stable item identifiers, so records are deduplicated
// by a hash of the normalized title.
package bokjiro

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/bwmarrin/snowflake"
	"github.com/subsidytracker/subsidytracker/internal/clock"
	logdomain "github.com/subsidytracker/subsidytracker/internal/collectionlog/domain"
	subsidydomain "github.com/subsidytracker/subsidytracker/internal/subsidy/domain"
	"go.uber.org/zap"
)

const sourceName = "Bokjiro"

const externalIDPrefix = "bokjiro_"

type Config struct {
	ListURL string
}

type Crawler struct {
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
) *Crawler {
	return &Crawler{
		cfg:    cfg,
		client: client,
		store:  store,
		logs:   logs,
		clk:    clk,
		genID:  genID,
		log:    log.Named("collector.bokjiro"),
	}
}

func (c *Crawler) SourceName() string { return sourceName }

// itemSelectors are tried in order; the markup has changed before.
var itemSelectors = []string{"div.service-list li", "ul.list li", "div.cont a"}

func (c *Crawler) Collect(ctx context.Context) (int, error) {
	run := &logdomain.CollectionLog{
		ID:         c.genID.Generate(),
		Source:     sourceName,
		SourceType: subsidydomain.SourceBokjiro,
		StartedAt:  c.clk.Now(),
		Status:     logdomain.StatusRunning,
	}
	if err := c.logs.Add(ctx, run); err != nil {
		return 0, fmt.Errorf("create collection log: %w", err)
	}

	var totals counts
	var items *goquery.Selection

	doc, err := c.fetchDocument(ctx)
	if err != nil {
		// A transport failure still finalizes the run with whatever was
		// accumulated; only an escaping panic marks the run failed.
		c.log.Warn("listing fetch failed", zap.Error(err))
	} else {
		for _, selector := range itemSelectors {
			items = doc.Find(selector)
			if items.Length() > 0 {
				break
			}
		}
	}

	if items != nil {
		items.Each(func(_ int, sel *goquery.Selection) {
			if ctx.Err() != nil {
				return
			}
			switch c.processItem(ctx, sel) {
			case itemCollected:
				totals.collected++
			case itemSkipped:
				totals.skipped++
			}
		})
	}

	// Zero collected items usually means the markup drifted away from
	// every known selector, so the run is flagged as partial.
	status := logdomain.StatusCompleted
	if totals.collected == 0 {
		status = logdomain.StatusPartiallyCompleted
	}
	c.finish(ctx, run, totals, status, "")
	c.log.Info("crawl finished",
		zap.Int("collected", totals.collected),
		zap.Int("skipped", totals.skipped),
	)
	return totals.collected, nil
}

type counts struct {
	collected int
	skipped   int
}

type itemResult int

const (
	itemSkipped itemResult = iota
	itemCollected
)

func (c *Crawler) processItem(ctx context.Context, sel *goquery.Selection) itemResult {
	title := extractTitle(sel)
	if title == "" {
		return itemSkipped
	}
	externalID := externalIDPrefix + titleHash(title)

	exists, err := c.store.Exists(ctx, externalID)
	if err != nil {
		c.log.Error("dedup lookup failed", zap.String("external_id", externalID), zap.Error(err))
		return itemSkipped
	}
	if exists {
		return itemSkipped
	}

	category, err := c.store.GetCategoryByCode(ctx, "LIVING")
	if err != nil {
		category, err = c.store.GetCategoryByCode(ctx, subsidydomain.CategoryCodeEtc)
		if err != nil {
			c.log.Error("sentinel category missing", zap.Error(err))
			return itemSkipped
		}
	}
	region, err := c.store.GetRegionByCode(ctx, subsidydomain.RegionCodeAll)
	if err != nil {
		c.log.Error("sentinel region missing", zap.Error(err))
		return itemSkipped
	}

	now := c.clk.Now()
	subsidy := &subsidydomain.Subsidy{
		ID:           c.genID.Generate(),
		Title:        title,
		Description:  extractDescription(sel),
		Organization: "보건복지부",
		SourceURL:    c.extractLink(sel),
		ExternalID:   &externalID,
		Status:       subsidydomain.StatusActive,
		SourceType:   subsidydomain.SourceBokjiro,
		RegionID:     region.ID,
		CategoryID:   category.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := c.store.Insert(ctx, subsidy); err != nil {
		if !errors.Is(err, subsidydomain.ErrDuplicateExternalID) {
			c.log.Warn("insert failed", zap.String("external_id", externalID), zap.Error(err))
		}
		return itemSkipped
	}
	return itemCollected
}

func (c *Crawler) fetchDocument(ctx context.Context) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ListURL, nil)
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
	return goquery.NewDocumentFromReader(resp.Body)
}

func (c *Crawler) finish(ctx context.Context, run *logdomain.CollectionLog, totals counts, status logdomain.CollectionStatus, errMsg string) {
	run.ItemsCollected = totals.collected
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

func extractTitle(sel *goquery.Selection) string {
	for _, inner := range []string{"strong", "a"} {
		if text := strings.TrimSpace(sel.Find(inner).First().Text()); text != "" {
			return text
		}
	}
	return strings.TrimSpace(sel.Text())
}

func extractDescription(sel *goquery.Selection) string {
	for _, inner := range []string{"p", "span.desc"} {
		if text := strings.TrimSpace(sel.Find(inner).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// extractLink resolves the item's anchor against the listing URL so
// relative hrefs come out absolute. Items without a usable href point
// back at the listing page itself.
func (c *Crawler) extractLink(sel *goquery.Selection) *string {
	listURL := c.cfg.ListURL

	anchor := sel
	if !sel.Is("a") {
		anchor = sel.Find("a").First()
	}
	href, ok := anchor.Attr("href")
	if !ok || href == "" || strings.HasPrefix(href, "javascript") {
		return &listURL
	}

	base, err := url.Parse(listURL)
	if err != nil {
		return &href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return &listURL
	}
	resolved := base.ResolveReference(ref).String()
	return &resolved
}

// titleHash produces a stable short identifier from the title with
// all whitespace runs collapsed, so re-flowed markup hashes the same.
func titleHash(title string) string {
	normalized := strings.Join(strings.Fields(title), " ")
	h := fnv.New32a()
	h.Write([]byte(normalized))
	return fmt.Sprintf("%08x", h.Sum32())
}
