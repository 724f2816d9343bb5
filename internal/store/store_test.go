package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/switchtube/internal/domain"
)

func sampleSession() domain.UploadSession {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return domain.UploadSession{
		ID:        "abc123",
		URL:       "https://tube.switch.ch/files/abc123",
		Offset:    4096,
		Length:    10000,
		Filename:  "lecture.mp4",
		CreatedAt: created,
		UpdatedAt: created.Add(time.Minute),
	}
}

func TestSessionsPersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")

	s, err := NewUploadStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveSession("key1", sampleSession()))
	require.NoError(t, s.Close())

	s, err = NewUploadStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, ok := s.GetSession("key1")
	require.True(t, ok)
	assert.Equal(t, "abc123", got.ID)
	assert.Equal(t, int64(4096), got.Offset)
	assert.True(t, sampleSession().UpdatedAt.Equal(got.UpdatedAt))

	_, ok = s.GetSession("other")
	assert.False(t, ok)
}

func TestDeleteSession(t *testing.T) {
	s, err := NewUploadStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveSession("key1", sampleSession()))
	_, ok := s.GetSession("key1")
	require.True(t, ok)

	require.NoError(t, s.DeleteSession("key1"))
	_, ok = s.GetSession("key1")
	assert.False(t, ok)

	require.NoError(t, s.DeleteSession("never-saved"))
}

func TestListSessions(t *testing.T) {
	for name, path := range map[string]string{
		"bolt":   filepath.Join(t.TempDir(), "sessions.db"),
		"memory": "",
	} {
		t.Run(name, func(t *testing.T) {
			s, err := NewUploadStore(path)
			require.NoError(t, err)
			defer s.Close()

			a := sampleSession()
			b := sampleSession()
			b.ID = "def456"
			require.NoError(t, s.SaveSession("a", a))
			require.NoError(t, s.SaveSession("b", b))

			sessions, err := s.ListSessions()
			require.NoError(t, err)
			require.Len(t, sessions, 2)
			assert.Equal(t, "abc123", sessions["a"].ID)
			assert.Equal(t, "def456", sessions["b"].ID)
		})
	}
}

func TestMemoryOnlyStore(t *testing.T) {
	s, err := NewUploadStore("")
	require.NoError(t, err)

	require.NoError(t, s.SaveSession("k", sampleSession()))
	got, ok := s.GetSession("k")
	require.True(t, ok)
	assert.Equal(t, "lecture.mp4", got.Filename)
	assert.NoError(t, s.Close())
}

func TestFingerprint(t *testing.T) {
	mod := time.Unix(1700000000, 0)
	base := Fingerprint("https://tube.switch.ch", "file:///tmp/a.mp4", 100, mod)

	assert.Equal(t, base, Fingerprint("https://TUBE.switch.ch/", "file:///tmp/a.mp4", 100, mod))
	assert.NotEqual(t, base, Fingerprint("https://tube.switch.ch", "file:///tmp/b.mp4", 100, mod))
	assert.NotEqual(t, base, Fingerprint("https://tube.switch.ch", "file:///tmp/a.mp4", 101, mod))
	assert.NotEqual(t, base, Fingerprint("https://tube.switch.ch", "file:///tmp/a.mp4", 100, mod.Add(time.Second)))
	assert.NotEqual(t, base, Fingerprint("https://other.example", "file:///tmp/a.mp4", 100, mod))
	assert.Len(t, base, 24)
}
