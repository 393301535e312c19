package artifact

import (
	"strings"
	"time"
)

// Category is the storage class of an uploaded artifact. It is also the
// filename prefix under the storage root.
type Category string

const (
	CategoryDocument Category = "document"
	CategoryAudio    Category = "audio"
	CategoryVideo    Category = "video"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryDocument, CategoryAudio, CategoryVideo:
		return true
	}
	return false
}

func (c Category) IsMedia() bool {
	return c == CategoryAudio || c == CategoryVideo
}

// MediaType is the modality a client declares for a media upload.
// The zero value means no modality was declared.
type MediaType string

const (
	MediaNone  MediaType = ""
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
)

// ParseMediaType normalizes a client-supplied modality. Unknown values are
// returned as-is so the validator can reject them.
func ParseMediaType(s string) MediaType {
	return MediaType(strings.ToLower(strings.TrimSpace(s)))
}

type State string

const (
	StateReceived  State = "RECEIVED"
	StateValidated State = "VALIDATED"
	StatePersisted State = "PERSISTED"
	StateHandedOff State = "HANDED_OFF"
)

// Artifact is the persisted result of a successful ingestion. Values are
// never mutated after the pipeline returns them.
type Artifact struct {
	ID           string    `json:"ingestion_id"`
	Category     Category  `json:"category"`
	Path         string    `json:"storage_path"`
	Extension    string    `json:"original_extension"`
	OriginalName string    `json:"original_name"`
	MIMEType     string    `json:"mime_type"`
	Size         int64     `json:"size_bytes"`
	SHA256       string    `json:"sha256"`
	CreatedAt    time.Time `json:"created_at"`
	State        State     `json:"state"`
}
