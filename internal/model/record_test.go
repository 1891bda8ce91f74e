package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBusinessRecord(t *testing.T) {
	card := CandidateCard{
		Query:   "parrucchiere Milano",
		Keyword: "parrucchiere",
		City:    "Milano",
		Name:    "Salone Anna",
		Phone:   "+39 02 1234567",
		Website: "https://www.saloneanna.it",
	}

	rec := NewBusinessRecord(card, "info@saloneanna.it", true, "no https; thin content")

	assert.Equal(t, card.Name, rec.Name)
	assert.Equal(t, "info@saloneanna.it", rec.Email)
	assert.True(t, rec.Improvable)
	assert.Equal(t, "no https; thin content", rec.Notes)

	ts, err := time.Parse(time.RFC3339, rec.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}

func TestBusinessRecordRow(t *testing.T) {
	rec := BusinessRecord{
		Email:   "info@saloneanna.it",
		Phone:   "+39 02 1234567",
		Website: "https://www.saloneanna.it",
		Keyword: "parrucchiere",
		City:    "Milano",
	}

	row := rec.Row()

	assert.Equal(t, []any{
		"info@saloneanna.it",
		"+39 02 1234567",
		"https://www.saloneanna.it",
		"parrucchiere",
		"",
		"Milano",
		"no",
	}, row)
}
