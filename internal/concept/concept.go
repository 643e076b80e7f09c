package concept

import (
	"encoding/json"
	"strings"
)

type AspectRatio string

const (
	AspectPortrait       AspectRatio = "9:16"
	AspectLandscape      AspectRatio = "16:9"
	AspectPrintPortrait  AspectRatio = "3:4"
	AspectPrintLandscape AspectRatio = "4:3"
	AspectSquare         AspectRatio = "1:1"

	DefaultAspectRatio = AspectSquare
)

var aspectLabels = map[AspectRatio]string{
	AspectPortrait:       "Portrait (9:16)",
	AspectLandscape:      "Landscape (16:9)",
	AspectPrintPortrait:  "Print Portrait (3:4)",
	AspectPrintLandscape: "Print Landscape (4:3)",
	AspectSquare:         "Square (1:1)",
}

func AspectRatios() []AspectRatio {
	return []AspectRatio{AspectSquare, AspectPortrait, AspectLandscape, AspectPrintPortrait, AspectPrintLandscape}
}

func (a AspectRatio) Valid() bool {
	_, ok := aspectLabels[a]
	return ok
}

func (a AspectRatio) Label() string {
	return aspectLabels[a]
}

func (a AspectRatio) ShortLabel() string {
	label := a.Label()
	if i := strings.Index(label, "("); i >= 0 {
		label = label[:i]
	}
	return strings.TrimSpace(label)
}

func (a AspectRatio) OrDefault() AspectRatio {
	if a == "" {
		return DefaultAspectRatio
	}
	return a
}

func (a AspectRatio) String() string {
	return string(a)
}

type ModelChoice string

const (
	ModelFlash ModelChoice = "flash"
	ModelPro   ModelChoice = "pro"
)

var ModelMapping = map[ModelChoice]string{
	ModelFlash: "gemini-2.5-flash-image",
	ModelPro:   "gemini-3-pro-image-preview",
}

var modelLabels = map[ModelChoice]string{
	ModelFlash: "Gemini 2.5 Flash Image",
	ModelPro:   "Gemini 3 Pro Image",
}

func ModelChoices() []ModelChoice {
	return []ModelChoice{ModelFlash, ModelPro}
}

// BackendModel returns the mapped identifier, or "" for an unmapped choice.
func (m ModelChoice) BackendModel() string {
	return ModelMapping[m]
}

func (m ModelChoice) Valid() bool {
	_, ok := ModelMapping[m]
	return ok
}

func (m ModelChoice) Label() string {
	return modelLabels[m]
}

func (m ModelChoice) ShortLabel() string {
	return strings.Replace(m.Label(), "Gemini ", "", 1)
}

func (m ModelChoice) String() string {
	return string(m)
}

// GenerateRequest is one generation call. Images are base64 payloads or data URLs.
type GenerateRequest struct {
	Images      []string    `json:"images"`
	Prompt      string      `json:"prompt"`
	AspectRatio AspectRatio `json:"aspectRatio"`
	ModelChoice ModelChoice `json:"modelChoice"`
}

type GenerateResponse struct {
	ResultBase64 string          `json:"resultBase64"`
	MimeType     string          `json:"mimeType"`
	Timing       json.RawMessage `json:"timing,omitempty"`
}

func (r GenerateResponse) DataURL() string {
	return DataURL(r.MimeType, r.ResultBase64)
}

func DataURL(mimeType, b64 string) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + b64
}

// ParseDataURL splits a base64 data URL. A bare base64 string is returned as-is with an
// empty mime type.
func ParseDataURL(raw string) (mimeType, b64 string) {
	if !strings.HasPrefix(raw, "data:") {
		return "", raw
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return "", raw
	}
	mimeType = strings.TrimSuffix(header, ";base64")
	return mimeType, payload
}
