package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/renovo/internal/common"
	"github.com/ternarybob/renovo/internal/interfaces"
	"github.com/ternarybob/renovo/internal/models"
)

// ChromeDPExtractor renders merchant pages with headless Chrome and parses
// the structured product record out of the rendered DOM. It keeps one shared
// allocator and rotates browser contexts round-robin, with a per-host rate
// limiter so overlapping jobs for the same shop don't hammer it.
type ChromeDPExtractor struct {
	config   common.ScraperConfig
	logger   arbor.ILogger
	browsers []context.Context
	cancels  []context.CancelFunc
	mu       sync.Mutex
	current  int

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// NewChromeDPExtractor creates and initializes the browser pool.
func NewChromeDPExtractor(config common.ScraperConfig, logger arbor.ILogger) (*ChromeDPExtractor, error) {
	if config.BrowserInstances <= 0 {
		config.BrowserInstances = 1
	}

	e := &ChromeDPExtractor{
		config:   config,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}

	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(config.UserAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	e.cancels = append(e.cancels, allocatorCancel)

	for i := 0; i < config.BrowserInstances; i++ {
		browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

		// Startup test so a broken Chrome install fails fast
		testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
		err := chromedp.Run(testCtx, chromedp.Navigate("about:blank"))
		testCancel()
		if err != nil {
			browserCancel()
			if len(e.browsers) == 0 {
				e.Close()
				return nil, fmt.Errorf("failed to start any browser instance: %w", err)
			}
			logger.Warn().Err(err).Int("browser_index", i).Msg("Failed to create browser instance")
			continue
		}

		e.browsers = append(e.browsers, browserCtx)
		e.cancels = append(e.cancels, browserCancel)
	}

	logger.Info().
		Int("browsers", len(e.browsers)).
		Bool("headless", config.Headless).
		Dur("page_load_timeout", config.PageLoadTimeoutDuration()).
		Msg("ChromeDP extractor initialized")

	return e, nil
}

// Extract navigates to the URL, waits for JavaScript to render, and parses
// the product record. Failures come back as *interfaces.ExtractionError;
// the caller records them and moves on, never retries here.
func (e *ChromeDPExtractor) Extract(ctx context.Context, targetURL string) (*models.ExtractedPage, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil || parsed.Host == "" {
		return nil, interfaces.NewExtractionError(targetURL, "invalid url", err)
	}

	// Per-host politeness
	if err := e.hostLimiter(parsed.Host).Wait(ctx); err != nil {
		return nil, interfaces.NewExtractionError(targetURL, "cancelled while rate limited", err)
	}

	browserCtx := e.nextBrowser()
	if browserCtx == nil {
		return nil, interfaces.NewExtractionError(targetURL, "no browser instance available", nil)
	}

	// Bound the page load; a hung navigation is a failed attempt
	runCtx, cancel := context.WithTimeout(browserCtx, e.config.PageLoadTimeoutDuration())
	defer cancel()

	// Honor caller cancellation as well
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	var html string
	start := time.Now()
	err = chromedp.Run(runCtx,
		chromedp.Navigate(targetURL),
		chromedp.Sleep(e.config.JavaScriptWaitTimeDuration()),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		cause := "navigation failed"
		if runCtx.Err() == context.DeadlineExceeded {
			cause = "navigation timeout"
		}
		return nil, interfaces.NewExtractionError(targetURL, cause, err)
	}

	page, err := ParseProductPage(html, targetURL)
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("url", targetURL).
		Str("name", page.Name).
		Dur("duration", time.Since(start)).
		Msg("Page extracted")

	return page, nil
}

// Close releases all browser resources.
func (e *ChromeDPExtractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Cancel in reverse order: browser contexts before the allocator
	for i := len(e.cancels) - 1; i >= 0; i-- {
		e.cancels[i]()
	}
	e.browsers = nil
	e.cancels = nil
	return nil
}

// nextBrowser returns a browser context using round-robin allocation.
func (e *ChromeDPExtractor) nextBrowser() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.browsers) == 0 {
		return nil
	}
	ctx := e.browsers[e.current%len(e.browsers)]
	e.current++
	return ctx
}

func (e *ChromeDPExtractor) hostLimiter(host string) *rate.Limiter {
	e.limiterMu.Lock()
	defer e.limiterMu.Unlock()

	host = strings.ToLower(host)
	limiter, ok := e.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(e.config.RateLimitDuration()), 1)
		e.limiters[host] = limiter
	}
	return limiter
}
