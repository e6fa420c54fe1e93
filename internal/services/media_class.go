package services

import (
	"path/filepath"
	"strings"
)

type MediaClass string

const (
	MediaClassDocument MediaClass = "document"
	MediaClassImage    MediaClass = "image"
	MediaClassAudio    MediaClass = "audio"
	MediaClassVideo    MediaClass = "video"
	MediaClassUnknown  MediaClass = "unknown"
)

// ClassifyMedia buckets an upload into a pipeline class. MIME type wins;
// the object key extension is the fallback for uploads with a missing or
// generic content type.
func ClassifyMedia(mimeType, objectKey string) MediaClass {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch {
	case strings.HasPrefix(mt, "image/"):
		return MediaClassImage
	case strings.HasPrefix(mt, "audio/"):
		return MediaClassAudio
	case strings.HasPrefix(mt, "video/"):
		return MediaClassVideo
	}

	switch mt {
	case "application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"text/plain", "text/html", "text/markdown", "text/csv",
		"application/rtf":
		return MediaClassDocument
	}

	if mt != "" && mt != "application/octet-stream" && mt != "binary/octet-stream" {
		// A concrete but unrecognized MIME type stays unknown; the extension
		// fallback is only for absent or generic types.
		return MediaClassUnknown
	}
	return classifyByExtension(objectKey)
}

func classifyByExtension(objectKey string) MediaClass {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(objectKey), "."))
	switch ext {
	case "pdf", "doc", "docx", "ppt", "pptx", "txt", "md", "html", "htm", "csv", "rtf":
		return MediaClassDocument
	case "png", "jpg", "jpeg", "gif", "webp", "bmp", "tif", "tiff":
		return MediaClassImage
	case "mp3", "wav", "flac", "ogg", "m4a", "aac", "opus":
		return MediaClassAudio
	case "mp4", "mov", "webm", "mkv", "avi", "m4v":
		return MediaClassVideo
	default:
		return MediaClassUnknown
	}
}

// MimeForClass maps an extension to a concrete MIME type when the upload
// arrived with a generic one. Pipelines need a real type for the AI calls.
func MimeForClass(mimeType, objectKey string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt != "" && mt != "application/octet-stream" && mt != "binary/octet-stream" {
		return mt
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(objectKey), "."))
	switch ext {
	case "pdf":
		return "application/pdf"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case "txt", "md":
		return "text/plain"
	case "html", "htm":
		return "text/html"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "flac":
		return "audio/flac"
	case "ogg":
		return "audio/ogg"
	case "m4a":
		return "audio/mp4"
	case "mp4", "m4v":
		return "video/mp4"
	case "mov":
		return "video/quicktime"
	case "webm":
		return "video/webm"
	case "mkv":
		return "video/x-matroska"
	default:
		return mt
	}
}
