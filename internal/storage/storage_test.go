package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "cotpanel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAuditLog_NewestFirst(t *testing.T) {
	s := newTestStorage(t)
	base := time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC)

	for i, action := range []string{"unit.start", "unit.stop", "config.save"} {
		require.NoError(t, s.AddAuditEntry(AuditEntry{
			ID:        uuid.NewString(),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Action:    action,
			Resource:  "adsbcot.service",
		}))
	}

	entries, err := s.LatestAuditEntries(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "config.save", entries[0].Action)
	assert.Equal(t, "unit.stop", entries[1].Action)
}

func TestRevisions(t *testing.T) {
	s := newTestStorage(t)
	base := time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC)

	first := Revision{ID: uuid.NewString(), Timestamp: base, Text: "COT_STALE=100\n"}
	second := Revision{ID: uuid.NewString(), Timestamp: base.Add(time.Minute), Text: "COT_STALE=200\n"}
	require.NoError(t, s.AddRevision(first))
	require.NoError(t, s.AddRevision(second))

	revs, err := s.LatestRevisions(10)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, second.ID, revs[0].ID)

	got, err := s.GetRevision(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "COT_STALE=100\n", got.Text)

	_, err = s.GetRevision("missing")
	require.Error(t, err)
}

func TestRetainRevisions(t *testing.T) {
	s := newTestStorage(t)
	base := time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddRevision(Revision{
			ID:        uuid.NewString(),
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Text:      "rev",
		}))
	}

	require.NoError(t, s.RetainRevisions(2))
	revs, err := s.LatestRevisions(0)
	require.NoError(t, err)
	assert.Len(t, revs, 2)
	assert.Equal(t, base.Add(4*time.Second), revs[0].Timestamp, "newest survive")
}

func TestStatusEvents(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.AddStatusEvent(StatusEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		From:      "running",
		To:        "failed",
	}))

	events, err := s.LatestStatusEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "failed", events[0].To)
}

func TestDeleteOlderThan(t *testing.T) {
	s := newTestStorage(t)

	old := AuditEntry{ID: uuid.NewString(), Timestamp: time.Now().Add(-48 * time.Hour), Action: "old"}
	fresh := AuditEntry{ID: uuid.NewString(), Timestamp: time.Now(), Action: "fresh"}
	require.NoError(t, s.AddAuditEntry(old))
	require.NoError(t, s.AddAuditEntry(fresh))

	require.NoError(t, s.DeleteOlderThan(BucketAuditLog, 24*time.Hour))

	entries, err := s.LatestAuditEntries(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].Action)
}

func TestPreferences(t *testing.T) {
	s := newTestStorage(t)

	p, err := s.GetPreferences()
	require.NoError(t, err)
	assert.Zero(t, p)

	want := Preferences{Theme: "dark", RefreshRate: 5, LogLines: 200}
	require.NoError(t, s.SetPreferences(want))

	p, err = s.GetPreferences()
	require.NoError(t, err)
	assert.Equal(t, want, p)
}

func TestGetSetRaw(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Set(BucketPreferences, "k", []byte("v")))
	v, err := s.Get(BucketPreferences, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, s.Delete(BucketPreferences, "k"))
	v, err = s.Get(BucketPreferences, "k")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = s.Get("nope", "k")
	require.Error(t, err)

	n, err := s.Count(BucketPreferences)
	require.NoError(t, err)
	assert.Zero(t, n)
}
