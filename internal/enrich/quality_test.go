package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// modernPage carries every positive signal and none of the defects the
// rubric looks for.
var modernPage = `<!DOCTYPE html>
<html>
<head>
<title>Ristorante Da Mario - Cucina tipica milanese dal 1962</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="description" content="Ristorante tradizionale nel centro di Milano">
<meta name="robots" content="index, follow">
<meta property="og:title" content="Ristorante Da Mario">
<link rel="icon" href="/favicon.ico">
<link rel="canonical" href="https://www.damario.it/">
<script src="/static/react.production.min.js"></script>
</head>
<body itemscope itemtype="https://schema.org/Restaurant">
<div>` + longText + `</div>
</body>
</html>`

var longText = strings.Repeat("Cucina tipica milanese con ingredienti di stagione. ", 10)

func TestAssess_ModernSiteNotImprovable(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())

	v := c.Assess(modernPage, "https://www.damario.it/")

	assert.False(t, v.Improvable)
}

func TestAssess_MinimalPageImprovable(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())

	v := c.Assess("<html><body>benvenuti</body></html>", "http://www.vecchio.it/")

	assert.True(t, v.Improvable)
	assert.Contains(t, v.Notes, "no https")
	assert.Contains(t, v.Notes, "not responsive (missing viewport)")
}

func TestAssess_PositiveSignalsOverrideProblems(t *testing.T) {
	// og tags, canonical, and robots meta reach the positive threshold, so a
	// missing favicon and http scheme do not flag the site.
	page := `<html><head>
<title>Officina Bianchi - Riparazioni auto e moto</title>
<meta name="viewport" content="width=device-width">
<meta name="description" content="Officina meccanica a Torino">
<meta name="robots" content="index">
<meta property="og:title" content="Officina Bianchi">
<link rel="canonical" href="http://www.bianchi.it/">
</head><body><div>` + longText + `</div></body></html>`

	c := NewClassifier(DefaultClassifierConfig())
	v := c.Assess(page, "http://www.bianchi.it/")

	assert.False(t, v.Improvable)
}

func TestAssess_NotesCappedAtFiveReasons(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())

	// A bare page trips far more than five problems.
	v := c.Assess("<html></html>", "http://x.it/")

	assert.True(t, v.Improvable)
	assert.Len(t, strings.Split(v.Notes, "; "), 5)
}

func TestAssess_LegacyJQueryDetected(t *testing.T) {
	page := `<html><head>
<title>Panificio Rossi - Pane fresco ogni giorno</title>
<script src="/js/jquery-1.8.2.min.js"></script>
</head><body><div>` + longText + `</div></body></html>`

	c := NewClassifier(DefaultClassifierConfig())
	v := c.Assess(page, "https://www.panificiorossi.it/")

	assert.True(t, v.Improvable)
	assert.Contains(t, v.Notes, "uses jquery 1.x")
}

func TestAssess_FreeHostingDetected(t *testing.T) {
	page := `<html><head>
<title>Fioreria Petali - Composizioni floreali</title>
</head><body><div>Realizzato con wix.com ` + longText + `</div></body></html>`

	c := NewClassifier(DefaultClassifierConfig())
	v := c.Assess(page, "https://petali.wixsite.com/")

	assert.Contains(t, v.Notes, "built on free hosting")
}

func TestAssess_CustomThresholds(t *testing.T) {
	// With a problem threshold of 3, two problems are not enough.
	c := NewClassifier(ClassifierConfig{PositiveThreshold: 5, ProblemThreshold: 3})

	page := `<html><head>
<title>Gelateria Artigianale Il Cono - Gusti di stagione</title>
<meta name="viewport" content="w">
<meta name="description" content="d">
<link rel="icon" href="/f.ico">
</head><body><div>` + longText + `</div></body></html>`

	// Only problem left is the http scheme.
	v := c.Assess(page, "http://ilcono.it/")

	assert.False(t, v.Improvable)
}
