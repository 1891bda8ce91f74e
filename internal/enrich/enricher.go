package enrich

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadsweep/internal/model"
	"github.com/sells-group/leadsweep/internal/resilience"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// contactPaths are the likely contact pages probed after the site root, in
// order.
var contactPaths = []string{"/contatti", "/contact", "/about", "/chi-siamo"}

// maxPageBytes caps how much of a page is read. Kept above the classifier's
// heavy-page limit so oversized documents are still detected.
const maxPageBytes = 1 << 20

// siteFailureThreshold is the number of consecutive transport failures after
// which the rest of a site's contact pages are skipped. Only connection-level
// trouble counts: a 404 contact path is an ordinary miss, not a dead site.
const siteFailureThreshold = 3

// errPageStatus marks a reachable page that yielded nothing usable (error
// status or empty body). It skips the page without tripping the breaker.
var errPageStatus = eris.New("page returned no usable content")

// Result is the website-derived outcome for one candidate.
type Result struct {
	Email      string
	Improvable bool
	Notes      string
}

// SiteEnricher fetches a candidate's website plus a few likely contact pages
// and aggregates extracted emails with the quality verdict.
type SiteEnricher struct {
	client     *http.Client
	classifier *Classifier
}

// NewSiteEnricher creates a SiteEnricher with the given fetch timeout and
// rubric config. A non-positive timeout defaults to 8s.
func NewSiteEnricher(timeout time.Duration, cfg ClassifierConfig) *SiteEnricher {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &SiteEnricher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: timeout,
				}).DialContext,
				TLSHandshakeTimeout: timeout,
			},
		},
		classifier: NewClassifier(cfg),
	}
}

// pageState tracks the short-circuit condition across candidate pages: once
// an email is found and the current verdict is improvable, further fetches
// buy nothing.
type pageState struct {
	emailFound bool
	improvable bool
}

func (s pageState) done() bool { return s.emailFound && s.improvable }

// Enrich probes the candidate's website. An empty website returns an empty
// result without touching the network. Per-page fetch failures are skipped,
// they only reduce available signal.
func (e *SiteEnricher) Enrich(ctx context.Context, website string) (Result, error) {
	if website == "" {
		return Result{}, nil
	}

	pages, err := candidatePages(website)
	if err != nil {
		return Result{}, eris.Wrap(err, "enrich: parse website url")
	}

	// A dead site fails every probe the same way; the breaker stops the
	// remaining fetches once that is clear. Pages that respond with an error
	// status are just skipped.
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: siteFailureThreshold,
		ResetTimeout:     time.Hour,
		ShouldTrip: func(err error) bool {
			return err != nil && !errors.Is(err, errPageStatus)
		},
	})

	var (
		state  pageState
		emails []string
		notes  string
	)
	for _, pageURL := range pages {
		var doc string
		err := breaker.Execute(ctx, func(ctx context.Context) error {
			d, err := e.fetch(ctx, pageURL)
			if err != nil {
				return err
			}
			doc = d
			return nil
		})
		if errors.Is(err, resilience.ErrCircuitOpen) {
			zap.L().Debug("enrich: site unreachable, skipping remaining pages",
				zap.String("website", website),
			)
			break
		}
		if err != nil {
			continue
		}

		if !state.emailFound {
			emails = ExtractEmails(doc)
			if len(emails) > 0 {
				state.emailFound = true
				zap.L().Debug("enrich: email candidates found",
					zap.String("url", pageURL),
					zap.Int("count", len(emails)),
				)
			}
		}

		verdict := e.classifier.Assess(doc, pageURL)
		if verdict.Improvable {
			state.improvable = true
			notes = verdict.Notes
		} else if !state.improvable {
			notes = verdict.Notes
		}

		if state.done() {
			break
		}
	}

	return Result{
		Email:      SelectEmail(emails, website),
		Improvable: state.improvable,
		Notes:      notes,
	}, nil
}

// EnrichCard runs Enrich for a card's website and builds the final record,
// resolving the city from the address with the requested city as fallback.
func (e *SiteEnricher) EnrichCard(ctx context.Context, card model.CandidateCard) (model.BusinessRecord, error) {
	if city := ExtractCity(card.Address); city != "" {
		card.City = city
	}

	res, err := e.Enrich(ctx, card.Website)
	if err != nil {
		return model.BusinessRecord{}, err
	}
	return model.NewBusinessRecord(card, res.Email, res.Improvable, res.Notes), nil
}

// fetch GETs a page following redirects. Transport failures come back as-is;
// a reachable page with an error status or an empty body reports the
// errPageStatus sentinel.
func (e *SiteEnricher) fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", errPageStatus
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", errPageStatus
	}
	return string(body), nil
}

// candidatePages returns the site root plus the contact paths resolved
// against it. A missing scheme defaults to https.
func candidatePages(website string) ([]string, error) {
	if !strings.HasPrefix(website, "http://") && !strings.HasPrefix(website, "https://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return nil, err
	}

	pages := []string{website}
	base := u.Scheme + "://" + u.Host
	for _, path := range contactPaths {
		pages = append(pages, base+path)
	}
	return pages, nil
}
