package model

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// UploadInput is a media payload headed for the blob store.
type UploadInput struct {
	Data        []byte
	ContentType string
	Folder      string // "posts", "reels", "stories", "avatars"
}

// UploadResult records where an uploaded object lives.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Media folders and constraints.
const (
	AvatarFolder = "avatars"
	PostFolder   = "posts"
	ReelFolder   = "reels"
	StoryFolder  = "stories"

	AvatarWidth  = 200
	AvatarHeight = 200

	MaxMediaSizeBytes = 10 * 1024 * 1024

	ContentTypeJPEG = "image/jpeg"
)

// IsInlineData reports whether a media reference is a freshly captured inline
// payload (a data: URL) rather than a durable reference. Inline payloads must
// be uploaded before they can be stored remotely.
func IsInlineData(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}

// DecodeInlineData splits a data: URL into its payload and content type.
// Profile updates use it to upload freshly captured avatars.
func DecodeInlineData(ref string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return nil, "", fmt.Errorf("not an inline data reference")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data reference")
	}
	contentType, _, _ := strings.Cut(meta, ";")
	if !strings.Contains(meta, "base64") {
		return []byte(payload), contentType, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode inline data: %w", err)
	}
	return data, contentType, nil
}

// IsAllowedImageType restricts uploads to the formats the clients produce.
func IsAllowedImageType(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/webp":
		return true
	}
	return false
}

var (
	ErrFileTooLarge     = errors.New("file exceeds maximum size")
	ErrInvalidImageType = errors.New("unsupported image type")
)
