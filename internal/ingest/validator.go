package ingest

import (
	"mime"
	"path/filepath"
	"strings"

	"modelgate/internal/artifact"
)

var (
	documentExtensions = extSet(".pdf", ".txt", ".docx", ".md")
	audioExtensions    = extSet(".mp3", ".wav", ".ogg", ".m4a")
	videoExtensions    = extSet(".mp4", ".avi", ".mov", ".mkv")
)

// knownMIME pins content types for the allowlisted extensions so they do not
// depend on the host's mime.types.
var knownMIME = map[string]string{
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".mp4":  "video/mp4",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
}

func extSet(exts ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		m[e] = struct{}{}
	}
	return m
}

// Extension returns the lowercased suffix of the final path element of
// filename. Dotfiles such as ".pdf" have no extension.
func Extension(filename string) string {
	if i := strings.LastIndexAny(filename, `/\`); i >= 0 {
		filename = filename[i+1:]
	}
	ext := filepath.Ext(filename)
	if ext == filename || ext == "." {
		return ""
	}
	return strings.ToLower(ext)
}

// Validate classifies an upload by its declared filename and modality.
// With no declared modality the upload is treated as a document.
func Validate(filename string, declared artifact.MediaType) (artifact.Category, string, error) {
	fail := func(err error) (artifact.Category, string, error) {
		return "", "", &ValidationError{Filename: filename, MediaType: string(declared), Err: err}
	}

	ext := Extension(filename)

	if declared == artifact.MediaNone {
		if _, ok := documentExtensions[ext]; !ok {
			return fail(ErrUnsupportedExtension)
		}
		return artifact.CategoryDocument, ext, nil
	}

	var want, other map[string]struct{}
	var category artifact.Category
	switch declared {
	case artifact.MediaAudio:
		want, other, category = audioExtensions, videoExtensions, artifact.CategoryAudio
	case artifact.MediaVideo:
		want, other, category = videoExtensions, audioExtensions, artifact.CategoryVideo
	default:
		return fail(ErrInvalidModality)
	}

	if _, ok := want[ext]; ok {
		return category, ext, nil
	}
	if _, ok := other[ext]; ok {
		return fail(ErrModalityExtensionMismatch)
	}
	return fail(ErrUnsupportedExtension)
}

// ValidateMedia is Validate for the media route, where a modality is required.
func ValidateMedia(filename string, declared artifact.MediaType) (artifact.Category, string, error) {
	if declared == artifact.MediaNone {
		return "", "", &ValidationError{Filename: filename, Err: ErrInvalidModality}
	}
	return Validate(filename, declared)
}

// MIMEType maps a validated extension to a content type for backends that
// need one.
func MIMEType(ext string) string {
	if t, ok := knownMIME[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
