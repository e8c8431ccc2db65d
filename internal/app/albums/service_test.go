package albums

import (
	"context"
	"testing"

	"spotliner/internal/auth"
	"spotliner/internal/store"
)

type stubStore struct {
	album       store.Album
	gotName     string
	gotArtistID int64
	updated     bool
}

func (s *stubStore) ListAlbums(context.Context, int, int) ([]store.Album, error) { return nil, nil }

func (s *stubStore) AlbumByID(context.Context, int64) (store.Album, error) {
	return s.album, nil
}

func (s *stubStore) TracksByAlbum(context.Context, int64) ([]store.Track, error) { return nil, nil }

func (s *stubStore) CreateAlbum(context.Context, string, int64, int64, *string) (store.Album, error) {
	return store.Album{}, nil
}

func (s *stubStore) UpdateAlbum(_ context.Context, id int64, name string, artistID int64, _ bool, _ *string) (store.Album, error) {
	s.updated = true
	s.gotName = name
	s.gotArtistID = artistID
	return store.Album{ID: id, Name: name, ArtistID: artistID}, nil
}

func (s *stubStore) TrackFilePathsByAlbum(context.Context, int64) ([]string, error) {
	return nil, nil
}

func (s *stubStore) DeleteAlbum(context.Context, int64) error { return nil }

type stubFiles struct{}

func (stubFiles) RemoveAudio(string) {}

func TestUpdateKeepsOmittedArtist(t *testing.T) {
	st := &stubStore{album: store.Album{ID: 3, Name: "Purple Rain", ArtistID: 5, CreatedBy: 2}}
	svc := New(st, stubFiles{})

	owner := auth.Identity{UserID: 2, Role: auth.RoleUploader}
	if _, err := svc.Update(context.Background(), owner, 3, "Renamed", 0, false, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !st.updated {
		t.Fatal("UpdateAlbum was not called")
	}
	if st.gotArtistID != 5 {
		t.Fatalf("artist id = %d, want retained 5", st.gotArtistID)
	}
	if st.gotName != "Renamed" {
		t.Fatalf("name = %q, want %q", st.gotName, "Renamed")
	}
}

func TestUpdateKeepsOmittedName(t *testing.T) {
	st := &stubStore{album: store.Album{ID: 3, Name: "Purple Rain", ArtistID: 5, CreatedBy: 2}}
	svc := New(st, stubFiles{})

	owner := auth.Identity{UserID: 2, Role: auth.RoleUploader}
	if _, err := svc.Update(context.Background(), owner, 3, "", 8, false, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if st.gotName != "Purple Rain" {
		t.Fatalf("name = %q, want retained %q", st.gotName, "Purple Rain")
	}
	if st.gotArtistID != 8 {
		t.Fatalf("artist id = %d, want 8", st.gotArtistID)
	}
}
