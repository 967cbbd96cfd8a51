package database

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
)

type SQLClipRepository struct {
	db *DB
}

var _ ClipRepository = (*SQLClipRepository)(nil)

func NewClipRepository(db *DB) *SQLClipRepository {
	return &SQLClipRepository{db: db}
}

// UpsertClip inserts a clip, or refreshes an existing one keyed by canonical
// URL. Re-clipping the same post updates the archived fields rather than
// growing the archive.
func (r *SQLClipRepository) UpsertClip(clip Clip) error {
	if clip.CanonicalURL == "" {
		return fmt.Errorf("clip canonical URL is required")
	}

	if clip.ContentHash == "" {
		clip.ContentHash = HashClip(clip)
	}

	_, err := r.db.Exec(`
		INSERT INTO clips (source, canonical_url, body, author_name, author_handle, media_url, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (canonical_url) DO UPDATE SET
			source = excluded.source,
			body = excluded.body,
			author_name = excluded.author_name,
			author_handle = excluded.author_handle,
			media_url = excluded.media_url,
			content_hash = excluded.content_hash,
			updated_at = CURRENT_TIMESTAMP
	`, clip.Source, clip.CanonicalURL, clip.Body, clip.AuthorName, clip.AuthorHandle,
		clip.MediaURL, clip.ContentHash)
	if err != nil {
		return fmt.Errorf("failed to upsert clip: %w", err)
	}

	return nil
}

func (r *SQLClipRepository) GetRecentClips(limit int) ([]Clip, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT id, source, canonical_url, body, author_name, author_handle,
		       media_url, content_hash, created_at, updated_at
		FROM clips
		ORDER BY updated_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query clips: %w", err)
	}
	defer rows.Close()

	var clips []Clip
	for rows.Next() {
		var clip Clip
		err := rows.Scan(&clip.ID, &clip.Source, &clip.CanonicalURL, &clip.Body,
			&clip.AuthorName, &clip.AuthorHandle, &clip.MediaURL, &clip.ContentHash,
			&clip.CreatedAt, &clip.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan clip: %w", err)
		}
		clips = append(clips, clip)
	}

	return clips, rows.Err()
}

func (r *SQLClipRepository) GetClipCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM clips").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count clips: %w", err)
	}
	return count, nil
}

// CheckDuplicate reports whether a clip with the same content hash already
// exists, returning the existing clip's canonical URL when it does.
func (r *SQLClipRepository) CheckDuplicate(contentHash string) (bool, *string, error) {
	var canonicalURL string
	err := r.db.QueryRow(
		"SELECT canonical_url FROM clips WHERE content_hash = ? LIMIT 1",
		contentHash).Scan(&canonicalURL)

	if err == sql.ErrNoRows {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("failed to check duplicate: %w", err)
	}

	return true, &canonicalURL, nil
}

// HashClip derives the dedup hash from the fields that identify a post.
func HashClip(clip Clip) string {
	content := fmt.Sprintf("%s|%s|%s", clip.Source, clip.CanonicalURL, clip.Body)
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
