package types

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultTheme is always offered by the theme selector, even when the
// backend does not list it.
const DefaultTheme = "terracotta"

// Fixed page geometry sent with every generation request.
const (
	PageWidth  = 12
	PageHeight = 16
	MapScale   = 12000
)

var (
	ErrMissingCity     = errors.New("city is required")
	ErrMissingCountry  = errors.New("country is required")
	ErrInvalidQuality  = errors.New("invalid quality tier")
	ErrGenerateFailure = errors.New("poster generation failed")
)

// User-facing messages. Every failure of an action collapses into one of these.
const (
	GenerateFailedMessage = "Failed to generate poster. Please try again."
	DownloadFailedMessage = "Failed to download. Please try again."
)

// Quality selects the rendering tier.
type Quality string

const (
	QualityPreview Quality = "preview"
	QualityPrint   Quality = "print"
)

// ParseQuality maps an empty value to preview and rejects unknown tiers.
func ParseQuality(s string) (Quality, error) {
	switch Quality(strings.ToLower(strings.TrimSpace(s))) {
	case "", QualityPreview:
		return QualityPreview, nil
	case QualityPrint:
		return QualityPrint, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidQuality, s)
	}
}

// PosterRequest is the body of POST {base}/generate.
type PosterRequest struct {
	City    string  `json:"city"`
	Country string  `json:"country"`
	Theme   string  `json:"theme"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Scale   int     `json:"scale"`
	Quality Quality `json:"quality"`
}

// NewPosterRequest fills in the fixed page geometry.
func NewPosterRequest(city, country, theme string, quality Quality) PosterRequest {
	if theme == "" {
		theme = DefaultTheme
	}
	if quality == "" {
		quality = QualityPreview
	}
	return PosterRequest{
		City:    city,
		Country: country,
		Theme:   theme,
		Width:   PageWidth,
		Height:  PageHeight,
		Scale:   MapScale,
		Quality: quality,
	}
}

// Validate enforces the required form fields.
func (r PosterRequest) Validate() error {
	if strings.TrimSpace(r.City) == "" {
		return ErrMissingCity
	}
	if strings.TrimSpace(r.Country) == "" {
		return ErrMissingCountry
	}
	return nil
}

// ThemesResponse is the body of GET {base}/themes.
type ThemesResponse struct {
	Themes []string `json:"themes"`
}

// GenerateResponse is the body returned by POST {base}/generate. The URL may
// be absolute or relative to the backend base.
type GenerateResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
}

// Image is a resolved, directly loadable poster reference together with the
// request that produced it.
type Image struct {
	URL     string        `json:"url"`
	Request PosterRequest `json:"request"`
}

// GenerateParams is the JSON body accepted by the frontend's own API.
type GenerateParams struct {
	City    string `json:"city"`
	Country string `json:"country"`
	Theme   string `json:"theme,omitempty"`
	Quality string `json:"quality,omitempty"`
}
