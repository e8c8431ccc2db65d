package artists

import (
	"context"
	"testing"

	"spotliner/internal/auth"
	"spotliner/internal/store"
)

type stubStore struct {
	artist  store.Artist
	gotName string
	updated bool
}

func (s *stubStore) ListArtists(context.Context, int, int) ([]store.Artist, error) { return nil, nil }

func (s *stubStore) ArtistByID(context.Context, int64) (store.Artist, error) {
	return s.artist, nil
}

func (s *stubStore) TracksByArtist(context.Context, int64) ([]store.Track, error) { return nil, nil }

func (s *stubStore) CreateArtist(context.Context, string, int64, *string) (store.Artist, error) {
	return store.Artist{}, nil
}

func (s *stubStore) UpdateArtist(_ context.Context, id int64, name string, _ bool, _ *string) (store.Artist, error) {
	s.updated = true
	s.gotName = name
	return store.Artist{ID: id, Name: name}, nil
}

func (s *stubStore) TrackFilePathsByArtist(context.Context, int64) ([]string, error) {
	return nil, nil
}

func (s *stubStore) DeleteArtist(context.Context, int64) error { return nil }

type stubFiles struct{}

func (stubFiles) RemoveAudio(string) {}

func TestUpdateImageOnlyKeepsName(t *testing.T) {
	st := &stubStore{artist: store.Artist{ID: 5, Name: "Prince", CreatedBy: 2}}
	svc := New(st, stubFiles{})

	image := "images/prince.jpg"
	owner := auth.Identity{UserID: 2, Role: auth.RoleUploader}
	if _, err := svc.Update(context.Background(), owner, 5, "", true, &image); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !st.updated {
		t.Fatal("UpdateArtist was not called")
	}
	if st.gotName != "Prince" {
		t.Fatalf("name = %q, want retained %q", st.gotName, "Prince")
	}
}
