package store

import (
	"context"
	"fmt"
	"strings"
)

// SearchResults groups the per-entity hits of one search query.
type SearchResults struct {
	Tracks  []Track  `json:"tracks"`
	Artists []Artist `json:"artists"`
	Albums  []Album  `json:"albums"`
}

// Artist and album hits are capped low; the track list carries the
// caller's limit.
const searchEntityLimit = 10

// SearchAll runs a case-insensitive substring search across tracks,
// artists and albums. An empty query returns empty result sets.
func (s *Store) SearchAll(ctx context.Context, q string, limit int) (SearchResults, error) {
	results := SearchResults{
		Tracks:  []Track{},
		Artists: []Artist{},
		Albums:  []Album{},
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return results, nil
	}
	pattern := "%" + q + "%"

	tracks, err := s.ListTracks(ctx, q, limit, 0)
	if err != nil {
		return SearchResults{}, err
	}
	results.Tracks = tracks

	artistRows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.name, a.created_by, a.image_path, a.created_at, COUNT(t.id) AS track_count
		FROM artists a
		LEFT JOIN tracks t ON t.artist_id = a.id
		WHERE a.name ILIKE $1
		GROUP BY a.id, a.name, a.created_by, a.image_path, a.created_at
		ORDER BY a.name
		LIMIT $2
	`, pattern, searchEntityLimit)
	if err != nil {
		return SearchResults{}, fmt.Errorf("search artists: %w", err)
	}
	defer artistRows.Close()

	for artistRows.Next() {
		var a Artist
		if err := artistRows.Scan(&a.ID, &a.Name, &a.CreatedBy, &a.ImagePath, &a.CreatedAt, &a.TrackCount); err != nil {
			return SearchResults{}, fmt.Errorf("scan artist: %w", err)
		}
		results.Artists = append(results.Artists, a)
	}
	if err := artistRows.Err(); err != nil {
		return SearchResults{}, fmt.Errorf("iterate artists: %w", err)
	}

	albumRows, err := s.db.QueryContext(ctx, `
		SELECT al.id, al.name, al.artist_id, al.created_by, al.image_path, al.created_at,
			a.name AS artist_name, COUNT(t.id) AS track_count
		FROM albums al
		JOIN artists a ON a.id = al.artist_id
		LEFT JOIN tracks t ON t.album_id = al.id
		WHERE al.name ILIKE $1 OR a.name ILIKE $1
		GROUP BY al.id, al.name, al.artist_id, al.created_by, al.image_path, al.created_at, a.name
		ORDER BY al.name
		LIMIT $2
	`, pattern, searchEntityLimit)
	if err != nil {
		return SearchResults{}, fmt.Errorf("search albums: %w", err)
	}
	defer albumRows.Close()

	for albumRows.Next() {
		var al Album
		if err := albumRows.Scan(&al.ID, &al.Name, &al.ArtistID, &al.CreatedBy, &al.ImagePath,
			&al.CreatedAt, &al.ArtistName, &al.TrackCount); err != nil {
			return SearchResults{}, fmt.Errorf("scan album: %w", err)
		}
		results.Albums = append(results.Albums, al)
	}
	if err := albumRows.Err(); err != nil {
		return SearchResults{}, fmt.Errorf("iterate albums: %w", err)
	}

	return results, nil
}
