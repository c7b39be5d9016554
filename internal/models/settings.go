package models

import (
	"encoding/json"
	"fmt"
)

// GenerationMode selects what the vision provider is asked to produce.
type GenerationMode string

const (
	ModeMetadata      GenerationMode = "Metadata"
	ModeImageToPrompt GenerationMode = "ImageToPrompt"
)

// Platform is the target stock platform; it drives prompt hints and the
// CSV export layout.
type Platform string

const (
	PlatformGeneral       Platform = "General"
	PlatformAdobeStock    Platform = "AdobeStock"
	PlatformFreepik       Platform = "Freepik"
	PlatformShutterstock  Platform = "Shutterstock"
	PlatformVecteezy      Platform = "Vecteezy"
	PlatformDepositphotos Platform = "Depositphotos"
	Platform123RF         Platform = "123RF"
	PlatformDreamstime    Platform = "Dreamstime"
)

// Platforms lists every supported platform in display order.
var Platforms = []Platform{
	PlatformGeneral,
	PlatformAdobeStock,
	PlatformFreepik,
	PlatformShutterstock,
	PlatformVecteezy,
	PlatformDepositphotos,
	Platform123RF,
	PlatformDreamstime,
}

// FileType describes the kind of asset the batch contains. It is a prompt
// hint only; the service never inspects file contents.
type FileType string

const (
	FileTypeImage  FileType = "Image"
	FileTypeVector FileType = "Vector"
	FileTypeVideo  FileType = "Video"
)

// AppSettings are the per-batch generation settings. A snapshot is stored
// on the batch at submission time so mid-run settings edits never affect
// records already queued.
type AppSettings struct {
	Mode                  GenerationMode `json:"mode"`
	Platform              Platform       `json:"platform"`
	FileType              FileType       `json:"file_type"`
	MinTitleWords         int            `json:"min_title_words"`
	MaxTitleWords         int            `json:"max_title_words"`
	MinKeywords           int            `json:"min_keywords"`
	MaxKeywords           int            `json:"max_keywords"`
	MinDescriptionWords   int            `json:"min_description_words"`
	MaxDescriptionWords   int            `json:"max_description_words"`
	SingleWordKeywords    bool           `json:"single_word_keywords"`
	Silhouette            bool           `json:"silhouette"`
	TransparentBackground bool           `json:"transparent_background"`
	ProhibitedWords       bool           `json:"prohibited_words"`
	CustomContext         string         `json:"custom_context,omitempty"`
}

// DefaultSettings returns the settings applied when a batch is submitted
// without an explicit settings payload.
func DefaultSettings() AppSettings {
	return AppSettings{
		Mode:                  ModeMetadata,
		Platform:              PlatformAdobeStock,
		FileType:              FileTypeImage,
		MinTitleWords:         8,
		MaxTitleWords:         22,
		MinKeywords:           43,
		MaxKeywords:           48,
		MinDescriptionWords:   12,
		MaxDescriptionWords:   30,
		SingleWordKeywords:    true,
		Silhouette:            true,
		TransparentBackground: true,
		ProhibitedWords:       true,
	}
}

// Validate checks bounds ordering and enum membership.
func (s AppSettings) Validate() error {
	switch s.Mode {
	case ModeMetadata, ModeImageToPrompt:
	default:
		return fmt.Errorf("invalid mode %q", s.Mode)
	}
	valid := false
	for _, p := range Platforms {
		if s.Platform == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid platform %q", s.Platform)
	}
	switch s.FileType {
	case FileTypeImage, FileTypeVector, FileTypeVideo:
	default:
		return fmt.Errorf("invalid file type %q", s.FileType)
	}
	if s.MinTitleWords < 1 || s.MaxTitleWords < s.MinTitleWords {
		return fmt.Errorf("invalid title word bounds %d..%d", s.MinTitleWords, s.MaxTitleWords)
	}
	if s.MinKeywords < 1 || s.MaxKeywords < s.MinKeywords {
		return fmt.Errorf("invalid keyword bounds %d..%d", s.MinKeywords, s.MaxKeywords)
	}
	if s.MinDescriptionWords < 1 || s.MaxDescriptionWords < s.MinDescriptionWords {
		return fmt.Errorf("invalid description word bounds %d..%d", s.MinDescriptionWords, s.MaxDescriptionWords)
	}
	return nil
}

// MarshalSettings serializes settings for storage on a batch row.
func MarshalSettings(s AppSettings) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal settings: %w", err)
	}
	return string(b), nil
}

// UnmarshalSettings restores the settings snapshot stored on a batch row.
// Unknown or missing fields fall back to defaults so old snapshots keep
// loading after settings gain new fields.
func UnmarshalSettings(raw string) (AppSettings, error) {
	s := DefaultSettings()
	if raw == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return AppSettings{}, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return s, nil
}
