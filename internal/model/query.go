package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// QuerySpec is one listing search: a business keyword, a city, and a
// per-query result cap.
type QuerySpec struct {
	Keyword string `json:"keyword" yaml:"keyword"`
	City    string `json:"city" yaml:"city"`
	Max     int    `json:"max,omitempty" yaml:"max,omitempty"`
}

// Term returns the search term submitted to the listing source.
func (q QuerySpec) Term() string {
	return q.Keyword + " " + q.City
}

// DefaultQueries is the built-in query set used when no queries file is given.
var DefaultQueries = []QuerySpec{
	{Keyword: "centro estetico", City: "Milano"},
	{Keyword: "beauty studio", City: "Milano"},
	{Keyword: "beauty saloon", City: "Milano"},
	{Keyword: "estetista", City: "Gallarate"},
	{Keyword: "pasticceria artigianale", City: "Milano"},
	{Keyword: "parrucchiere", City: "Milano"},
	{Keyword: "psicologo", City: "Milano"},
}

// queriesFile is the on-disk shape: either a bare list or a wrapped object.
type queriesFile struct {
	Queries []QuerySpec `json:"queries" yaml:"queries"`
}

// LoadQueries reads query specs from a JSON or YAML file. Entries missing a
// keyword or a city are silently skipped; a missing or non-positive max
// defaults to fallbackMax. An empty path returns DefaultQueries.
func LoadQueries(path string, fallbackMax int) ([]QuerySpec, error) {
	items := DefaultQueries
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrap(err, "queries: read file")
		}
		items, err = decodeQueries(data, filepath.Ext(path))
		if err != nil {
			return nil, err
		}
	}

	out := make([]QuerySpec, 0, len(items))
	for _, q := range items {
		q.Keyword = strings.TrimSpace(q.Keyword)
		q.City = strings.TrimSpace(q.City)
		if q.Keyword == "" || q.City == "" {
			continue
		}
		if q.Max <= 0 {
			q.Max = fallbackMax
		}
		out = append(out, q)
	}
	return out, nil
}

func decodeQueries(data []byte, ext string) ([]QuerySpec, error) {
	if ext == ".yaml" || ext == ".yml" {
		var list []QuerySpec
		if err := yaml.Unmarshal(data, &list); err == nil && len(list) > 0 {
			return list, nil
		}
		var wrapped queriesFile
		if err := yaml.Unmarshal(data, &wrapped); err != nil {
			return nil, eris.Wrap(err, "queries: parse yaml")
		}
		return wrapped.Queries, nil
	}

	var list []QuerySpec
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var wrapped queriesFile
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, eris.Wrap(err, "queries: parse json")
	}
	return wrapped.Queries, nil
}
