package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadsweep/internal/config"
	"github.com/sells-group/leadsweep/internal/model"
	"github.com/sells-group/leadsweep/internal/store"
)

// fakeSource returns canned cards per query.
type fakeSource struct {
	cards map[string][]model.CandidateCard
	err   error
}

func (f *fakeSource) Search(_ context.Context, q model.QuerySpec) ([]model.CandidateCard, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.cards[q.Term()], nil
}

func (f *fakeSource) Close() error { return nil }

// fakeStore records appends in memory.
type fakeStore struct {
	existing  map[string]struct{}
	appended  []model.BusinessRecord
	appendErr error
}

func (f *fakeStore) Init(context.Context) error { return nil }

func (f *fakeStore) ExistingWebsites(context.Context) (map[string]struct{}, error) {
	if f.existing == nil {
		return map[string]struct{}{}, nil
	}
	return f.existing, nil
}

func (f *fakeStore) AppendRecords(_ context.Context, records []model.BusinessRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, records...)
	return nil
}

func (f *fakeStore) ListRecipients(context.Context, store.RecipientFilter) ([]model.Recipient, error) {
	return nil, nil
}

func (f *fakeStore) MarkContacted(context.Context, int) error { return nil }
func (f *fakeStore) Close() error                             { return nil }

const improvableWithEmail = `<html><head>
<title>Bar Centrale</title>
</head><body><p>Prenota: info@barcentrale.it</p></body></html>`

const improvableNoEmail = `<html><head>
<title>Trattoria Vecchia</title>
</head><body><p>Siamo in centro, venite a trovarci.</p></body></html>`

const modernWithEmail = `<html><head>
<title>Studio Dentistico Moderno - Prenotazioni online</title>
<meta name="viewport" content="width=device-width">
<meta name="description" content="Studio dentistico con prenotazione online">
<meta name="robots" content="index">
<meta property="og:title" content="Studio Dentistico Moderno">
<link rel="icon" href="/favicon.ico">
<link rel="canonical" href="https://moderno.it/">
<script src="/static/react.min.js"></script>
</head><body itemscope itemtype="https://schema.org/Dentist">
<p>Scrivici a info@moderno.it per prenotare una visita nel nostro studio.
Il nostro team ti segue dalla prima visita al piano di cura completo, con
tecnologie digitali e massima attenzione alla prevenzione dentale.</p>
</body></html>`

func testConfig() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{
			WriteAttempts:  2,
			WriteBackoffMS: 1,
		},
		Enrich: config.EnrichConfig{
			Concurrency:      2,
			FetchTimeoutSecs: 2,
		},
		Filters: config.FilterConfig{Order: config.FilterOrderAcceptThenDedup},
	}
}

func TestPipelineRun_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a":
			_, _ = w.Write([]byte(improvableWithEmail))
		case "/b":
			_, _ = w.Write([]byte(improvableNoEmail))
		case "/c":
			_, _ = w.Write([]byte(modernWithEmail))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	query := model.QuerySpec{Keyword: "bar", City: "Milano", Max: 10}
	source := &fakeSource{cards: map[string][]model.CandidateCard{
		query.Term(): {
			{Name: "Bar Centrale", Keyword: "bar", City: "Milano", Website: srv.URL + "/a"},
			{Name: "Trattoria Vecchia", Keyword: "bar", City: "Milano", Website: srv.URL + "/b"},
			{Name: "Studio Moderno", Keyword: "bar", City: "Milano", Website: srv.URL + "/c"},
		},
	}}
	st := &fakeStore{}
	checkpoint := filepath.Join(t.TempDir(), "checkpoint.json")

	p := New(testConfig(), source, st, checkpoint)
	summary, err := p.Run(context.Background(), []model.QuerySpec{query})

	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalFound)
	// Only the site with both an email and an improvable verdict survives.
	assert.Equal(t, 1, summary.Accepted)
	assert.Equal(t, 1, summary.Written)
	require.Len(t, st.appended, 1)
	assert.Equal(t, "Bar Centrale", st.appended[0].Name)
	assert.Equal(t, "info@barcentrale.it", st.appended[0].Email)

	// The checkpoint holds everything found, not just the accepted set.
	records, err := store.LoadCheckpoint(checkpoint)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestPipelineRun_QueryFailureDoesNotAbort(t *testing.T) {
	source := &fakeSource{err: eris.New("browser crashed")}
	st := &fakeStore{}
	checkpoint := filepath.Join(t.TempDir(), "checkpoint.json")

	p := New(testConfig(), source, st, checkpoint)
	summary, err := p.Run(context.Background(), []model.QuerySpec{
		{Keyword: "bar", City: "Milano"},
	})

	require.NoError(t, err)
	assert.Zero(t, summary.TotalFound)
	assert.Empty(t, st.appended)
}

func TestFinalize_NoStoreStopsAfterCheckpoint(t *testing.T) {
	records := []model.BusinessRecord{
		rec("a", "https://a.it", "a@a.it", true),
		rec("b", "https://b.it", "", true),
	}

	p := New(testConfig(), nil, nil, filepath.Join(t.TempDir(), "cp.json"))
	summary, err := p.Finalize(context.Background(), records)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Accepted)
	assert.Zero(t, summary.Written)
}

func TestFinalize_SkipsWebsitesAlreadyInStore(t *testing.T) {
	records := []model.BusinessRecord{
		rec("a", "https://a.it", "a@a.it", true),
		rec("b", "https://b.it", "b@b.it", true),
	}
	st := &fakeStore{existing: map[string]struct{}{"https://a.it": {}}}

	p := New(testConfig(), nil, st, filepath.Join(t.TempDir(), "cp.json"))
	summary, err := p.Finalize(context.Background(), records)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Written)
	require.Len(t, st.appended, 1)
	assert.Equal(t, "b", st.appended[0].Name)
}

func TestFinalize_WriteFailureReportsCheckpointedCount(t *testing.T) {
	records := []model.BusinessRecord{
		rec("a", "https://a.it", "a@a.it", true),
	}
	st := &fakeStore{appendErr: eris.New("permission denied")}

	p := New(testConfig(), nil, st, filepath.Join(t.TempDir(), "cp.json"))
	summary, err := p.Finalize(context.Background(), records)

	require.Error(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.Checkpointed)
	assert.Zero(t, summary.Written)
}

func TestFinalize_DedupThenAcceptOrder(t *testing.T) {
	cfg := testConfig()
	cfg.Filters.Order = config.FilterOrderDedupThenAccept

	// The duplicate has the email; with dedup first, the earlier email-less
	// record wins the dedup slot and the lead is lost.
	records := []model.BusinessRecord{
		rec("first", "https://a.it", "", true),
		rec("second", "https://a.it", "a@a.it", true),
	}
	st := &fakeStore{}

	p := New(cfg, nil, st, filepath.Join(t.TempDir(), "cp.json"))
	summary, err := p.Finalize(context.Background(), records)

	require.NoError(t, err)
	assert.Zero(t, summary.Written)
}
