package widget_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tartampluch/birthday-keeper/internal/config"
	"github.com/tartampluch/birthday-keeper/internal/engine"
	"github.com/tartampluch/birthday-keeper/internal/widget"
)

func TestProject_OffsetScenarios(t *testing.T) {
	stored := []widget.Entry{{ID: "a", Name: "A", DaysUntil: 5, DateLabel: "Jun 20"}}

	tests := []struct {
		name      string
		offset    int
		wantKept  bool
		wantDays  int
		wantToday bool
	}{
		{"Offset 3 shifts distance", 3, true, 2, false},
		{"Offset 5 lands on the day", 5, true, 0, true},
		{"Offset 6 drops the entry (negative)", 6, false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := widget.Project(stored, tt.offset)
			if !tt.wantKept {
				assert.Empty(t, out)
				return
			}
			assert.Len(t, out, 1)
			assert.Equal(t, tt.wantDays, out[0].DaysUntil)
			assert.Equal(t, tt.wantToday, out[0].IsBirthdayToday)
			// Identity fields pass through untouched.
			assert.Equal(t, "a", out[0].ID)
			assert.Equal(t, "Jun 20", out[0].DateLabel)
		})
	}
}

func TestProject_ZeroOffsetIsIdentity(t *testing.T) {
	stored := []widget.Entry{
		{ID: "a", DaysUntil: 0, IsBirthdayToday: true},
		{ID: "b", DaysUntil: 7},
		{ID: "c", DaysUntil: 8},  // outside the horizon
		{ID: "d", DaysUntil: 12}, // outside the horizon
	}

	out := widget.Project(stored, 0)
	assert.Len(t, out, 2)
	for i, e := range out {
		assert.Equal(t, stored[i].DaysUntil, e.DaysUntil)
		assert.Equal(t, stored[i].IsBirthdayToday, e.IsBirthdayToday)
	}
}

func TestProject_HorizonBounds(t *testing.T) {
	stored := []widget.Entry{
		{ID: "a", DaysUntil: 3},
		{ID: "b", DaysUntil: 10},
		{ID: "c", DaysUntil: 11},
	}

	// Offset 3: a lands on today, b lands on day 7, c is beyond the horizon.
	out := widget.Project(stored, 3)
	assert.Len(t, out, 2)
	assert.True(t, out[0].IsBirthdayToday)
	assert.Equal(t, 7, out[1].DaysUntil)
}

func TestNearest_SectionLabel(t *testing.T) {
	t.Run("Empty projection", func(t *testing.T) {
		assert.Empty(t, widget.Nearest(nil))
		assert.Equal(t, config.WidgetLabelNone, widget.SectionLabel(nil))
	})

	t.Run("Birthday today", func(t *testing.T) {
		entries := []widget.Entry{
			{ID: "a", DaysUntil: 0, IsBirthdayToday: true},
			{ID: "b", DaysUntil: 0, IsBirthdayToday: true},
			{ID: "c", DaysUntil: 4},
		}
		nearest := widget.Nearest(entries)
		assert.Len(t, nearest, 2)
		assert.Equal(t, config.WidgetLabelBirthday, widget.SectionLabel(nearest))
	})

	t.Run("Upcoming only", func(t *testing.T) {
		entries := []widget.Entry{
			{ID: "a", DaysUntil: 2},
			{ID: "b", DaysUntil: 5},
		}
		nearest := widget.Nearest(entries)
		assert.Len(t, nearest, 1)
		assert.Equal(t, "a", nearest[0].ID)
		assert.Equal(t, config.WidgetLabelUpcoming, widget.SectionLabel(nearest))
	})
}

func TestSnapshot_BuildsFromLiveState(t *testing.T) {
	// Reference "Now": June 15th, 2025.
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	persons := []engine.Person{
		{ID: "today", GivenName: "Ada", BirthMonth: time.June, BirthDay: 15},
		{ID: "soon", GivenName: "Bob", BirthMonth: time.June, BirthDay: 18},
		{ID: "excluded", GivenName: "Eve", BirthMonth: time.June, BirthDay: 16, Excluded: true},
		{ID: "nobday", GivenName: "Nn"},
	}

	entries := widget.Snapshot(now, persons)

	assert.Len(t, entries, 2, "excluded and birthdayless persons are skipped")
	assert.Equal(t, "today", entries[0].ID)
	assert.True(t, entries[0].IsBirthdayToday)
	assert.Equal(t, 0, entries[0].DaysUntil)
	assert.Equal(t, "Jun 15", entries[0].DateLabel)

	assert.Equal(t, "soon", entries[1].ID)
	assert.Equal(t, 3, entries[1].DaysUntil)
	assert.False(t, entries[1].IsBirthdayToday)
}

// fakeKV is an in-memory projection store backend.
type fakeKV struct {
	values map[string][]byte
}

func (f *fakeKV) PutValue(_ context.Context, ns, key string, value []byte) error {
	if f.values == nil {
		f.values = map[string][]byte{}
	}
	f.values[ns+"/"+key] = value
	return nil
}

func (f *fakeKV) GetValue(_ context.Context, ns, key string) ([]byte, bool, error) {
	v, ok := f.values[ns+"/"+key]
	return v, ok, nil
}

func TestStore_RoundTrip(t *testing.T) {
	store := widget.NewStore(&fakeKV{})
	ctx := context.Background()

	entries := []widget.Entry{
		{ID: "a", Name: "Ada Lovelace", DaysUntil: 2, DateLabel: "Jun 17"},
	}

	assert.NoError(t, store.Save(ctx, entries))

	loaded, err := store.Load(ctx)
	assert.NoError(t, err)
	assert.Equal(t, entries, loaded)
}

func TestStore_LoadMissingIsEmpty(t *testing.T) {
	store := widget.NewStore(&fakeKV{})

	loaded, err := store.Load(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, loaded)
}
