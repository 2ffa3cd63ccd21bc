package crawler

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/romangod6/sitemap-builder/internal/metrics"
	"github.com/romangod6/sitemap-builder/internal/models"
	"github.com/romangod6/sitemap-builder/internal/utils"
	"github.com/temoto/robotstxt"
)

// ErrNoSitemap is returned when a robots.txt lists no Sitemap lines.
var ErrNoSitemap = errors.New("no sitemap found")

type VerifierConfig struct {
	UserAgent   string
	Parallelism int
	Timeout     time.Duration
}

// Result is the outcome of fetching one sitemap location.
type Result struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	Error      string `json:"error,omitempty"`
}

type Report struct {
	Total  int      `json:"total"`
	OK     int      `json:"ok"`
	Broken []Result `json:"broken"`
}

func (r *Report) HasBroken() bool {
	return len(r.Broken) > 0
}

// Verifier fetches a published sitemap and checks that every location answers.
type Verifier struct {
	config   *VerifierConfig
	recorder metrics.Recorder
	logger   *utils.Logger
}

func NewVerifier(config *VerifierConfig, recorder metrics.Recorder, logger *utils.Logger) *Verifier {
	cfg := *config
	if cfg.UserAgent == "" {
		cfg.UserAgent = "sitemap-builder/1.0"
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Verifier{config: &cfg, recorder: recorder, logger: logger}
}

func (v *Verifier) newCollector(async bool) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(v.config.UserAgent),
		colly.Async(async),
	)
	c.SetRequestTimeout(v.config.Timeout)

	// Set reasonable limits
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: v.config.Parallelism,
	})
	return c
}

// Verify resolves target (a sitemap or robots.txt URL) and visits every location.
func (v *Verifier) Verify(ctx context.Context, target string) (*Report, error) {
	locs, err := v.Locations(ctx, target)
	if err != nil {
		return nil, err
	}
	return v.VerifyURLs(ctx, locs)
}

// Locations returns the <loc> values of the sitemap at target. A robots.txt
// target is read for its Sitemap lines and each listed sitemap is fetched.
func (v *Verifier) Locations(ctx context.Context, target string) ([]string, error) {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid sitemap URL %q", target)
	}

	sitemaps := []string{target}
	if strings.EqualFold(strings.TrimPrefix(u.Path, "/"), "robots.txt") {
		body, err := v.fetch(ctx, target)
		if err != nil {
			return nil, err
		}
		sitemaps, err = ParseRobotsSitemaps(body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", target, err)
		}
		if len(sitemaps) == 0 {
			return nil, fmt.Errorf("%w in %s", ErrNoSitemap, target)
		}
		v.logger.LogDebug("robots.txt lists %d sitemap(s)", len(sitemaps))
	}

	var locs []string
	for _, sm := range sitemaps {
		body, err := v.fetch(ctx, sm)
		if err != nil {
			return nil, err
		}
		var doc models.Sitemap
		if err := xml.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse sitemap %s: %w", sm, err)
		}
		for _, u := range doc.URLs {
			if loc := strings.TrimSpace(u.Loc); loc != "" {
				locs = append(locs, loc)
			}
		}
	}
	return locs, nil
}

func (v *Verifier) fetch(ctx context.Context, target string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var body []byte
	c := v.newCollector(false)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	if err := c.Visit(target); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	return body, nil
}

// VerifyURLs visits every location concurrently, bounded by the configured parallelism.
func (v *Verifier) VerifyURLs(ctx context.Context, locs []string) (*Report, error) {
	var mu sync.Mutex
	results := make(map[string]Result, len(locs))
	record := func(res Result) {
		mu.Lock()
		defer mu.Unlock()
		if _, seen := results[res.URL]; seen {
			return
		}
		results[res.URL] = res
	}

	c := v.newCollector(true)
	c.OnResponse(func(r *colly.Response) {
		loc := r.Ctx.Get("loc")
		v.logger.LogDebug("OK %d %s", r.StatusCode, loc)
		record(Result{URL: loc, StatusCode: r.StatusCode})
	})
	c.OnError(func(r *colly.Response, err error) {
		loc := r.Ctx.Get("loc")
		v.logger.LogWarn("Broken %s: %v", loc, err)
		record(Result{URL: loc, StatusCode: r.StatusCode, Error: err.Error()})
	})

	for idx, loc := range locs {
		if ctx.Err() != nil {
			break
		}
		v.logger.LogDebug("Checking URL %d/%d: %s", idx+1, len(locs), loc)
		cctx := colly.NewContext()
		cctx.Put("loc", loc)
		if err := c.Request("GET", loc, nil, cctx, nil); err != nil && !errors.As(err, new(*colly.AlreadyVisitedError)) {
			record(Result{URL: loc, Error: err.Error()})
		}
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{Broken: []Result{}}
	for _, res := range results {
		ok := res.Error == ""
		v.recorder.IncVerifyResult(ok)
		report.Total++
		if ok {
			report.OK++
		} else {
			report.Broken = append(report.Broken, res)
		}
	}
	sort.Slice(report.Broken, func(i, j int) bool { return report.Broken[i].URL < report.Broken[j].URL })
	return report, nil
}

// ParseRobotsSitemaps returns the values of the Sitemap lines of a robots.txt body.
func ParseRobotsSitemaps(body []byte) ([]string, error) {
	robots, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, err
	}
	var sitemaps []string
	for _, sm := range robots.Sitemaps {
		// An empty "Sitemap:" line yields the line break as its value.
		if sm = strings.TrimSpace(sm); sm != "" {
			sitemaps = append(sitemaps, sm)
		}
	}
	return sitemaps, nil
}
