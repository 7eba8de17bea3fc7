package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/tmeadon/chunkvault/internal/models"
)

// ContentCategory maps a MIME content type to the category segment used in
// storage keys.
func ContentCategory(contentType string) string {
	mediaType := contentType
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return "image"
	case strings.HasPrefix(mediaType, "video/"):
		return "video"
	case strings.HasPrefix(mediaType, "audio/"):
		return "audio"
	case mediaType == "application/pdf",
		strings.HasPrefix(mediaType, "text/"),
		strings.HasPrefix(mediaType, "application/vnd.openxmlformats-officedocument."),
		strings.HasPrefix(mediaType, "application/vnd.ms-"),
		mediaType == "application/msword":
		return "document"
	default:
		return "other"
	}
}

// DeriveStorageKey builds the object key for an upload:
//
//	{role}/{owner_id}/{YYYY-MM-DD}/{category}/{sanitized_file_name}
//
// The date segment uses UTC.
func DeriveStorageKey(role models.OwnerRole, ownerID, fileName, contentType string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s",
		role,
		ownerID,
		now.UTC().Format("2006-01-02"),
		ContentCategory(contentType),
		SanitizeFileName(fileName),
	)
}
