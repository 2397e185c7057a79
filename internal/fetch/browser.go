package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"dhc-casetracker/internal/config"
	"dhc-casetracker/internal/search"
	"dhc-casetracker/pkg/logger"
)

// Browser drives a headless browser through the court search form. The
// browser process is launched for a single fetch attempt and torn down when
// the attempt finishes, so a crashed attempt cannot leak processes.
type Browser struct {
	cfg *config.Config
	log *logger.Logger
}

// NewBrowser returns a browser-automation fetcher. No process is started
// until FetchPage is called.
func NewBrowser(cfg *config.Config, log *logger.Logger) *Browser {
	return &Browser{cfg: cfg, log: log}
}

// FetchPage loads the case-status page, fills and submits the search form,
// waits for results to render, and returns the page HTML.
func (b *Browser) FetchPage(ctx context.Context, query search.Query) (html string, err error) {
	l := launcher.New().
		Headless(b.cfg.HeadlessMode).
		Set("disable-blink-features", "AutomationControlled").
		Delete("enable-automation")

	if b.cfg.BrowserPath != "" {
		l = l.Bin(b.cfg.BrowserPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("failed to launch browser: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil && err == nil {
			b.log.Warn("browser close failed", "error", cerr)
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, b.cfg.RequestTimeout)
	defer cancel()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}
	page = page.Context(fetchCtx)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width: 1920, Height: 1080, DeviceScaleFactor: 1,
	}); err != nil {
		return "", fmt.Errorf("failed to set viewport: %w", err)
	}

	courtURL := b.cfg.CourtBaseURL + "/app/get-case-type-status"
	b.log.Info("navigating to court website", "url", courtURL)

	if err := page.Navigate(courtURL); err != nil {
		return "", fmt.Errorf("failed to navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		b.log.Warn("page load wait failed, continuing", "error", err)
	}

	if err := b.fillForm(page, query); err != nil {
		return "", err
	}

	if err := b.waitForResults(page); err != nil {
		return "", err
	}

	html, err = page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read page html: %w", err)
	}
	return html, nil
}

func (b *Browser) fillForm(page *rod.Page, query search.Query) error {
	caseTypeSelect, err := page.Element("#case_type")
	if err != nil {
		return fmt.Errorf("case type select not found: %w", err)
	}
	if err := caseTypeSelect.Select([]string{query.CaseType}, true, rod.SelectorTypeText); err != nil {
		return fmt.Errorf("failed to select case type: %w", err)
	}

	caseNumberInput, err := page.Element("#case_number")
	if err != nil {
		return fmt.Errorf("case number input not found: %w", err)
	}
	if err := caseNumberInput.Input(query.CaseNumber); err != nil {
		return fmt.Errorf("failed to enter case number: %w", err)
	}

	yearSelect, err := page.Element("#case_year")
	if err != nil {
		return fmt.Errorf("year select not found: %w", err)
	}
	if err := yearSelect.Select([]string{fmt.Sprintf("%d", query.FilingYear)}, true, rod.SelectorTypeText); err != nil {
		return fmt.Errorf("failed to select year: %w", err)
	}

	submitBtn, err := page.Element("#search")
	if err != nil {
		return fmt.Errorf("submit button not found: %w", err)
	}
	if err := submitBtn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to submit form: %w", err)
	}
	return nil
}

// waitForResults polls until a results table or a recognizable outcome
// message appears.
func (b *Browser) waitForResults(page *rod.Page) error {
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if has, _, _ := page.Has("table"); has {
			return nil
		}
		body, err := page.HTML()
		if err == nil && len(body) > minBodyLength {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("timed out waiting for search results")
}
