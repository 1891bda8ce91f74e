package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/sells-group/leadsweep/internal/config"
	"github.com/sells-group/leadsweep/internal/model"
	"github.com/sells-group/leadsweep/internal/resilience"
)

func newFakeSheetsStore(t *testing.T, handler http.Handler) *SheetsStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	st, err := NewSheetsStore(context.Background(),
		config.StoreConfig{SpreadsheetID: "sheet-123", Worksheet: "Leads"},
		option.WithEndpoint(srv.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return st
}

func valuesResponse(values [][]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"values": values})
	}
}

func TestSheetsStore_ExistingWebsites(t *testing.T) {
	st := newFakeSheetsStore(t, valuesResponse([][]any{
		{"https://barcentrale.it"},
		{" https://vecchia.it "},
		{},
	}))

	websites, err := st.ExistingWebsites(context.Background())

	require.NoError(t, err)
	assert.Len(t, websites, 2)
	assert.Contains(t, websites, "https://vecchia.it")
}

func TestSheetsStore_ListRecipients(t *testing.T) {
	st := newFakeSheetsStore(t, valuesResponse([][]any{
		{"info@barcentrale.it", "+39 02 1234567", "https://barcentrale.it", "bar", "", "Milano", "no"},
		{"", "", "https://senzamail.it", "bar", "", "Milano", "no"},
		{"info@vecchia.it", "", "https://vecchia.it", "trattoria", "Anna", "Torino", "yes"},
	}))

	recipients, err := st.ListRecipients(context.Background(), RecipientFilter{SkipContacted: true})

	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "info@barcentrale.it", recipients[0].Email)
	assert.Equal(t, 2, recipients[0].RowNumber)
}

func TestSheetsStore_AppendRecords(t *testing.T) {
	var gotPath string
	var gotBody struct {
		Values [][]any `json:"values"`
	}
	st := newFakeSheetsStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))

	records := []model.BusinessRecord{{
		Email:   "info@barcentrale.it",
		Website: "https://barcentrale.it",
		Keyword: "bar",
		City:    "Milano",
	}}
	require.NoError(t, st.AppendRecords(context.Background(), records))

	assert.True(t, strings.HasSuffix(gotPath, ":append"), "path %q", gotPath)
	require.Len(t, gotBody.Values, 1)
	assert.Equal(t, "info@barcentrale.it", gotBody.Values[0][0])
	assert.Equal(t, "no", gotBody.Values[0][6])
}

func TestSheetsStore_RequiresSpreadsheetID(t *testing.T) {
	_, err := NewSheetsStore(context.Background(), config.StoreConfig{})

	assert.Error(t, err)
}

func TestClassify_TransientStatusCodes(t *testing.T) {
	cause := &googleapi.Error{Code: 503}
	err := classify(cause, cause)

	assert.True(t, resilience.IsTransient(err))

	cause = &googleapi.Error{Code: 403}
	err = classify(cause, cause)

	assert.False(t, resilience.IsTransient(err))
}

func TestIsContacted(t *testing.T) {
	for _, v := range []string{"yes", "Sì", "si", "Y", "1", "true"} {
		assert.True(t, isContacted(v), v)
	}
	for _, v := range []string{"", "no", "pending"} {
		assert.False(t, isContacted(v), v)
	}
}
