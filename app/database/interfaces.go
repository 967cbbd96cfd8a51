package database

// ClipRepository handles archive operations for extracted records.
type ClipRepository interface {
	UpsertClip(clip Clip) error
	GetRecentClips(limit int) ([]Clip, error)
	GetClipCount() (int, error)
	CheckDuplicate(contentHash string) (bool, *string, error)
}
