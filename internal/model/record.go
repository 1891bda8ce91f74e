package model

import "time"

// CandidateCard holds the raw attributes extracted from a single listing
// result card, before any website enrichment. Immutable once extracted.
type CandidateCard struct {
	Query    string `json:"query"`
	Keyword  string `json:"business_keyword"`
	City     string `json:"city"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`
	Rating   string `json:"rating"`
	Reviews  string `json:"reviews"`
}

// BusinessRecord is the enriched, classified unit: a CandidateCard plus the
// website-derived signals. Created by the enricher and immutable thereafter.
type BusinessRecord struct {
	Query      string `json:"query"`
	Keyword    string `json:"business_keyword"`
	City       string `json:"city"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	Website    string `json:"website"`
	Email      string `json:"email"`
	Rating     string `json:"rating"`
	Reviews    string `json:"reviews"`
	Improvable bool   `json:"improvable"`
	Notes      string `json:"notes"`
	Timestamp  string `json:"timestamp"`
}

// NewBusinessRecord builds a record from a card and its enrichment outcome,
// stamped with the current UTC time.
func NewBusinessRecord(card CandidateCard, email string, improvable bool, notes string) BusinessRecord {
	return BusinessRecord{
		Query:      card.Query,
		Keyword:    card.Keyword,
		City:       card.City,
		Name:       card.Name,
		Category:   card.Category,
		Address:    card.Address,
		Phone:      card.Phone,
		Website:    card.Website,
		Email:      email,
		Rating:     card.Rating,
		Reviews:    card.Reviews,
		Improvable: improvable,
		Notes:      notes,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

// Row returns the record as a store row tuple. The fifth column is the owner
// name, which the listing source cannot provide; the trailing "no" marks the
// lead as not yet contacted for the outreach sender.
func (r BusinessRecord) Row() []any {
	return []any{r.Email, r.Phone, r.Website, r.Keyword, "", r.City, "no"}
}

// Recipient is a row read back from the record store for outreach.
type Recipient struct {
	RowNumber int    `json:"row_number"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Website   string `json:"website"`
	Keyword   string `json:"keyword"`
	OwnerName string `json:"owner_name"`
	Location  string `json:"location"`
	Contacted bool   `json:"contacted"`
}
