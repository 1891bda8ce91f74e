package listing

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadsweep/internal/config"
	"github.com/sells-group/leadsweep/internal/model"
)

const mapsUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// MapsSession is a single stateful browser session against Google Maps
// search. It is not safe for concurrent use: navigation and card extraction
// are strictly sequential.
type MapsSession struct {
	ctx     context.Context
	cancels []context.CancelFunc
	cfg     config.ListingConfig
	limiter *rate.Limiter
}

// NewMapsSession launches a browser and prepares a tab for searching.
func NewMapsSession(ctx context.Context, cfg config.ListingConfig) (*MapsSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !cfg.Headful),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(mapsUserAgent),
		chromedp.WindowSize(1300, 900),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// Start the browser now so a broken environment fails fast.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, eris.Wrap(err, "listing: launch browser")
	}

	// Pace card extraction: one click per average configured delay.
	avgDelay := time.Duration(cfg.MinDelayMS+cfg.MaxDelayMS) / 2 * time.Millisecond
	if avgDelay <= 0 {
		avgDelay = 200 * time.Millisecond
	}

	return &MapsSession{
		ctx:     tabCtx,
		cancels: []context.CancelFunc{cancelTab, cancelAlloc},
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(avgDelay), 1),
	}, nil
}

// Close shuts the browser down.
func (s *MapsSession) Close() error {
	for _, cancel := range s.cancels {
		cancel()
	}
	return nil
}

// Search navigates to the query, waits for the result feed, scrolls until
// enough cards are loaded, then clicks through each card extracting its
// attributes. A single card failing to extract is skipped, not fatal.
func (s *MapsSession) Search(ctx context.Context, q model.QuerySpec) ([]model.CandidateCard, error) {
	term := q.Term()
	log := zap.L().With(zap.String("query", term))

	searchURL := fmt.Sprintf("https://www.google.com/maps/search/%s?hl=it", url.QueryEscape(term))
	log.Info("listing: navigating", zap.String("url", searchURL))

	navCtx, cancel := context.WithTimeout(s.ctx, time.Duration(s.cfg.NavTimeoutSecs)*time.Second)
	defer cancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(searchURL),
		chromedp.ActionFunc(s.dismissConsent),
		chromedp.WaitVisible(`div[role='feed']`, chromedp.ByQuery),
	)
	if err != nil {
		return nil, eris.Wrap(err, "listing: wait for results")
	}

	target := q.Max
	if err := s.loadResults(target); err != nil {
		log.Warn("listing: feed scroll stalled", zap.Error(err))
	}

	var cardNodes []*cdp.Node
	if err := chromedp.Run(s.ctx, chromedp.Nodes(`div[role='article']`, &cardNodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, eris.Wrap(err, "listing: count cards")
	}
	count := len(cardNodes)
	if count > target {
		count = target
	}
	log.Info("listing: cards found", zap.Int("available", len(cardNodes)), zap.Int("extracting", count))

	cards := make([]model.CandidateCard, 0, count)
	for idx := 0; idx < count; idx++ {
		select {
		case <-ctx.Done():
			return cards, ctx.Err()
		default:
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return cards, err
		}

		card, err := s.extractCard(idx, term, q)
		if err != nil {
			log.Warn("listing: card skipped", zap.Int("index", idx), zap.Error(err))
			continue
		}
		cards = append(cards, card)
	}

	s.pauseBetweenQueries()
	return cards, nil
}

// loadResults scrolls the feed until the target number of cards is present
// or the scroll attempts run out.
func (s *MapsSession) loadResults(target int) error {
	attempts := s.cfg.ScrollAttempts
	if attempts <= 0 {
		attempts = 15
	}

	for i := 0; i < attempts; i++ {
		var count int
		err := chromedp.Run(s.ctx,
			chromedp.Evaluate(`document.querySelectorAll("div[role='article']").length`, &count),
		)
		if err != nil {
			return eris.Wrap(err, "listing: count feed cards")
		}
		if count >= target {
			return nil
		}

		err = chromedp.Run(s.ctx,
			chromedp.Evaluate(`(() => {
				const feed = document.querySelector("div[role='feed']");
				if (feed) { feed.scrollBy(0, feed.scrollHeight * 2); }
			})()`, nil),
			chromedp.Sleep(50*time.Millisecond),
		)
		if err != nil {
			return eris.Wrap(err, "listing: scroll feed")
		}
	}
	return nil
}

// extractCard clicks the idx-th result card and reads the detail pane.
func (s *MapsSession) extractCard(idx int, term string, q model.QuerySpec) (model.CandidateCard, error) {
	click := fmt.Sprintf(`(() => {
		const cards = document.querySelectorAll("div[role='article']");
		if (%d >= cards.length) { return false; }
		cards[%d].scrollIntoView();
		cards[%d].click();
		return true;
	})()`, idx, idx, idx)

	var clicked bool
	err := chromedp.Run(s.ctx,
		chromedp.Evaluate(click, &clicked),
		chromedp.Sleep(s.cardDelay()),
	)
	if err != nil {
		return model.CandidateCard{}, eris.Wrap(err, "listing: click card")
	}
	if !clicked {
		return model.CandidateCard{}, eris.New("listing: card index out of range")
	}

	card := model.CandidateCard{
		Query:    term,
		Keyword:  q.Keyword,
		City:     q.City,
		Name:     s.safeText(`h1.DUwDvf`),
		Category: s.safeText(`button.DkEaL`),
		Address:  s.safeText(`button[data-item-id*='address']`),
		Website:  s.safeAttr(`a[data-item-id*='authority']`, "href"),
		Rating:   ParseRating(s.safeAttr(`span[aria-label*='stelle']`, "aria-label")),
		Reviews:  ParseReviews(s.safeText(`button[jsaction*='pane.rating.moreReviews']`)),
	}
	card.Phone = NormalizePhone(s.safeText(`button[data-item-id*='phone']`))

	return card, nil
}

// dismissConsent clicks through the cookie consent dialog when present,
// including the iframe variant. Best effort: a missing dialog is fine.
func (s *MapsSession) dismissConsent(ctx context.Context) error {
	script := `(() => {
		const labels = ["Accetta tutto", "Accetta", "I agree", "Rifiuta tutto", "Rifiuta"];
		const roots = [document];
		for (const f of document.querySelectorAll("iframe[name*='consent']")) {
			try { if (f.contentDocument) { roots.push(f.contentDocument); } } catch (e) {}
		}
		for (const root of roots) {
			for (const btn of root.querySelectorAll("button")) {
				const text = (btn.textContent || "").trim();
				if (labels.some(l => text.startsWith(l))) { btn.click(); return true; }
			}
		}
		return false;
	})()`

	var clicked bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &clicked)); err != nil {
		return nil
	}
	if clicked {
		_ = chromedp.Run(ctx, chromedp.Sleep(100*time.Millisecond))
	}
	return nil
}

// safeText reads the first matching element's text. Missing elements yield "".
func (s *MapsSession) safeText(selector string) string {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el ? el.innerText.trim() : "";
	})()`, selector)

	var out string
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(script, &out)); err != nil {
		return ""
	}
	return out
}

// safeAttr reads an attribute from the first matching element.
func (s *MapsSession) safeAttr(selector, attr string) string {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el ? (el.getAttribute(%q) || "") : "";
	})()`, selector, attr)

	var out string
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(script, &out)); err != nil {
		return ""
	}
	return out
}

// cardDelay picks a random wait inside the configured bounds.
func (s *MapsSession) cardDelay() time.Duration {
	minMS, maxMS := s.cfg.MinDelayMS, s.cfg.MaxDelayMS
	if maxMS <= minMS {
		return time.Duration(minMS) * time.Millisecond
	}
	return time.Duration(minMS+rand.IntN(maxMS-minMS)) * time.Millisecond
}

func (s *MapsSession) pauseBetweenQueries() {
	if s.cfg.QueryPauseMS > 0 {
		time.Sleep(time.Duration(s.cfg.QueryPauseMS) * time.Millisecond)
	}
}
