package enrich

import (
	"strings"

	"golang.org/x/net/html"
)

// ClassifierConfig tunes the quality rubric thresholds. The defaults are the
// permissive variant: three modern signals exonerate a site, a single problem
// flags it.
type ClassifierConfig struct {
	// PositiveThreshold is the number of modern-site signals at or above
	// which a site is never flagged improvable.
	PositiveThreshold int
	// ProblemThreshold is the number of problem signals at or above which a
	// site is flagged improvable (absent enough positive signals).
	ProblemThreshold int
}

// DefaultClassifierConfig returns the primary rubric contract.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{PositiveThreshold: 3, ProblemThreshold: 1}
}

// Verdict is the classifier output for one fetched page.
type Verdict struct {
	Improvable bool
	// Notes is the first few problem descriptions joined with "; ".
	Notes string
}

// maxNoteReasons bounds how many problem descriptions end up in Notes.
const maxNoteReasons = 5

// Classifier scores a fetched HTML document against a quality rubric and
// decides whether the site is a good outreach target.
type Classifier struct {
	cfg ClassifierConfig
}

// NewClassifier creates a Classifier. Zero thresholds fall back to defaults.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	def := DefaultClassifierConfig()
	if cfg.PositiveThreshold <= 0 {
		cfg.PositiveThreshold = def.PositiveThreshold
	}
	if cfg.ProblemThreshold <= 0 {
		cfg.ProblemThreshold = def.ProblemThreshold
	}
	return &Classifier{cfg: cfg}
}

// pageFacts is everything the rubric needs, collected in one tree walk.
type pageFacts struct {
	hasViewport    bool
	hasDescription bool
	hasIcon        bool
	hasTitle       bool
	title          string
	tables         int
	divs           int
	textLen        int
	legacyJQuery   bool
	legacyBoot     bool
	modernScript   bool
	structuredData bool
	ogTags         bool
	canonical      bool
	robotsMeta     bool
}

// Assess scores the document fetched from pageURL. Malformed HTML degrades to
// fewer detected signals; it never fails.
func (c *Classifier) Assess(doc string, pageURL string) Verdict {
	facts := collectFacts(doc)
	lowerDoc := strings.ToLower(doc)

	var problems []string
	add := func(reason string) { problems = append(problems, reason) }

	if !strings.HasPrefix(pageURL, "https://") {
		add("no https")
	}
	if !facts.hasViewport {
		add("not responsive (missing viewport)")
	}
	if !facts.hasDescription {
		add("missing meta description")
	}
	if !facts.hasIcon {
		add("missing favicon")
	}
	if facts.legacyJQuery {
		add("uses jquery 1.x")
	}
	if facts.legacyBoot {
		add("outdated bootstrap")
	}
	if facts.tables > 5 && facts.divs < 30 {
		add("table-based layout")
	}
	if len(doc) > 400_000 {
		add("heavy page >400KB")
	}
	if facts.textLen < 200 {
		add("thin content")
	}
	switch {
	case !facts.hasTitle || facts.title == "":
		add("missing title")
	case len(facts.title) < 10:
		add("title too short")
	}
	for _, host := range []string{"wix.com", "weebly.com", "squarespace.com"} {
		if strings.Contains(lowerDoc, host) {
			add("built on free hosting")
			break
		}
	}

	positives := 0
	for _, ok := range []bool{
		facts.modernScript,
		facts.structuredData,
		facts.ogTags,
		facts.canonical,
		facts.robotsMeta,
	} {
		if ok {
			positives++
		}
	}

	// A site carrying enough modern signals is never flagged, whatever its
	// problem count.
	improvable := false
	if positives < c.cfg.PositiveThreshold {
		improvable = len(problems) >= c.cfg.ProblemThreshold
	}

	notes := problems
	if len(notes) > maxNoteReasons {
		notes = notes[:maxNoteReasons]
	}
	return Verdict{Improvable: improvable, Notes: strings.Join(notes, "; ")}
}

// collectFacts walks the parsed tree once. html.Parse tolerates arbitrary
// malformed input, so missing structure just means fewer facts.
func collectFacts(doc string) pageFacts {
	var facts pageFacts

	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return facts
	}

	var text strings.Builder
	var walk func(n *html.Node, skipText bool)
	walk = func(n *html.Node, skipText bool) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "meta":
				name := strings.ToLower(attr(n, "name"))
				switch name {
				case "viewport":
					facts.hasViewport = true
				case "description":
					facts.hasDescription = true
				case "robots":
					facts.robotsMeta = true
				}
				if strings.HasPrefix(strings.ToLower(attr(n, "property")), "og:") {
					facts.ogTags = true
				}
			case "link":
				rel := strings.ToLower(attr(n, "rel"))
				if strings.Contains(rel, "icon") {
					facts.hasIcon = true
				}
				if rel == "canonical" {
					facts.canonical = true
				}
			case "title":
				facts.hasTitle = true
				facts.title = strings.TrimSpace(textContent(n))
			case "table":
				facts.tables++
			case "div":
				facts.divs++
			case "script":
				inspectScript(n, &facts)
				skipText = true
			case "style":
				skipText = true
			}
			if attr(n, "itemtype") != "" || hasAttr(n, "itemscope") {
				facts.structuredData = true
			}
		case html.TextNode:
			if !skipText {
				trimmed := strings.TrimSpace(n.Data)
				if trimmed != "" {
					if text.Len() > 0 {
						text.WriteByte(' ')
					}
					text.WriteString(trimmed)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child, skipText)
		}
	}
	walk(root, false)

	facts.textLen = text.Len()
	return facts
}

// inspectScript checks a script element for legacy library versions and
// modern framework markers, looking at both the src and any inline body.
func inspectScript(n *html.Node, facts *pageFacts) {
	src := strings.ToLower(attr(n, "src"))
	if src != "" {
		if strings.Contains(src, "jquery-1.") || strings.Contains(src, "jquery1.") {
			facts.legacyJQuery = true
		}
		if strings.Contains(src, "bootstrap") &&
			(strings.Contains(src, "3.") || strings.Contains(src, "2.")) {
			facts.legacyBoot = true
		}
	}

	blob := src + " " + strings.ToLower(textContent(n))
	for _, marker := range []string{"react", "vue", "angular", "next"} {
		if strings.Contains(blob, marker) {
			facts.modernScript = true
			break
		}
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			b.WriteString(child.Data)
		}
	}
	return b.String()
}
