package addon

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Type is the add-on type as published by the listing service.
type Type string

const (
	TypeExtension   Type = "extension"
	TypeStaticTheme Type = "statictheme"
	TypeDictionary  Type = "dictionary"
	TypeLanguage    Type = "language"
)

// Platform is the OS a file targets. PlatformAll matches every client.
type Platform string

const (
	PlatformAll     Platform = "all"
	PlatformAndroid Platform = "android"
	PlatformLinux   Platform = "linux"
	PlatformMac     Platform = "mac"
	PlatformWindows Platform = "windows"
)

// File is one downloadable package of a version.
type File struct {
	URL      string   `json:"url" validate:"required,url"`
	Hash     string   `json:"hash,omitempty"`
	Platform Platform `json:"platform" validate:"omitempty,oneof=all android linux mac windows"`
	Size     int64    `json:"size,omitempty" validate:"gte=0"`
}

// Version describes the version the listing currently offers.
type Version struct {
	Version string `json:"version" validate:"required"`
	Files   []File `json:"files" validate:"dive"`
}

// Addon is the descriptor of the add-on a controller drives.
type Addon struct {
	GUID    string   `json:"guid" validate:"required"`
	Name    string   `json:"name"`
	Type    Type     `json:"type" validate:"required,oneof=extension statictheme dictionary language"`
	Current *Version `json:"currentVersion,omitempty"`
}

var validate = validator.New()

// Validate checks the descriptor's required fields.
func (a Addon) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("invalid add-on %q: %w", a.GUID, err)
	}
	return nil
}

// IsStaticTheme reports whether the add-on needs an explicit enable after install.
func (a Addon) IsStaticTheme() bool {
	return a.Type == TypeStaticTheme
}

// TrackingName returns the action name used for analytics events.
func (t Type) TrackingName() string {
	switch t {
	case TypeExtension:
		return "addon"
	case TypeStaticTheme:
		return "statictheme"
	case TypeDictionary:
		return "dictionary"
	case TypeLanguage:
		return "language"
	default:
		return "invalid"
	}
}
