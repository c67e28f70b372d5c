package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tartampluch/birthday-keeper/internal/config"
	"github.com/tartampluch/birthday-keeper/internal/engine"
)

// PersonView is the JSON shape of a person in the overview.
type PersonView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	DaysUntil int    `json:"days_until"`
	DaysSince *int   `json:"days_since,omitempty"`
	Turning   *int   `json:"turning,omitempty"`
	DateLabel string `json:"date_label,omitempty"`
	Excluded  bool   `json:"excluded,omitempty"`

	// Bucket is only set on search results, where a person stands alone
	// instead of under a bucket heading.
	Bucket string `json:"bucket,omitempty"`
}

// SearchResult is the JSON shape of the overview search endpoint.
type SearchResult struct {
	Query   string       `json:"query"`
	Results []PersonView `json:"results"`
}

// Overview is the categorized person list served at the overview endpoint.
type Overview struct {
	MissedYesterday []PersonView `json:"missed_yesterday"`
	Today           []PersonView `json:"today"`
	Upcoming        []PersonView `json:"upcoming"`
	Past            []PersonView `json:"past"`
}

func buildOverview(now time.Time, persons []engine.Person) Overview {
	buckets := engine.Categorize(now, persons)
	return Overview{
		MissedYesterday: viewList(now, buckets.MissedYesterday),
		Today:           viewList(now, buckets.Today),
		Upcoming:        viewList(now, buckets.Upcoming),
		Past:            viewList(now, buckets.Past),
	}
}

func viewList(now time.Time, persons []engine.Person) []PersonView {
	views := make([]PersonView, 0, len(persons))
	for _, p := range persons {
		views = append(views, viewOf(now, p))
	}
	return views
}

func viewOf(now time.Time, p engine.Person) PersonView {
	v := PersonView{
		ID:       p.ID,
		Name:     p.DisplayName(),
		State:    engine.StateOf(now, p).String(),
		Excluded: p.Excluded,
	}
	if !p.HasBirthday() {
		return v
	}

	v.DaysUntil = engine.DaysUntil(now, p)
	v.DateLabel = engine.NextOccurrence(now, p).Format(config.DateLabelFormat)

	if days, ok := engine.DaysSince(now, p); ok && days > 0 {
		v.DaysSince = &days
	}
	if turning, ok := engine.TurningAge(now, p); ok {
		v.Turning = &turning
	}
	return v
}

// Search renders the persons whose name matches the query, each resolved to
// its display bucket, ordered by next occurrence.
func (a *App) Search(ctx context.Context, query string) ([]byte, error) {
	persons, err := a.Store.ListPersons(ctx)
	if err != nil {
		return nil, err
	}

	now := a.Clock.Now()
	matches := engine.FilterByQuery(now, query, persons)
	results := make([]PersonView, 0, len(matches))
	for _, p := range matches {
		v := viewOf(now, p)
		v.Bucket = engine.DisplayState(now, p).String()
		results = append(results, v)
	}

	data, err := json.Marshal(SearchResult{Query: query, Results: results})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrOverviewEncode, err)
	}
	return data, nil
}
