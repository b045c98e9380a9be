// Package script defines the generated video-script document and its
// validation pipeline. A script is an ordered sequence of narrated beats with
// speaker assignments, voice selection, and per-beat image directions. The
// package validates raw completion output in two phases: a cheap structural
// pass that collects every shape violation, then a strict schema pass that
// coerces defaults and produces the canonical typed Script.
package script

// FormatTag is the required literal format/version marker every script
// document must carry.
const FormatTag = "scriptforge/1"

// Speech provider identifiers accepted by the schema.
const (
	ProviderOpenAI     = "openai"
	ProviderNijivoice  = "nijivoice"
	ProviderElevenLabs = "elevenlabs"
	ProviderGoogle     = "google"
)

// Schema defaults coerced during strict validation.
const (
	DefaultProvider    = ProviderOpenAI
	DefaultSpeaker     = "Presenter"
	DefaultCaptionLang = "ja"
)

// Providers lists the enumerated speech providers in schema order.
var Providers = []string{ProviderOpenAI, ProviderNijivoice, ProviderElevenLabs, ProviderGoogle}

// Script is the target artifact consumed by the downstream rendering, TTS
// and image pipelines.
type Script struct {
	// Format is the literal format/version tag (see FormatTag).
	Format string `json:"format"`

	// Title is the display title of the video.
	Title string `json:"title"`

	// Lang is the BCP-47 language tag of the spoken text.
	Lang string `json:"lang"`

	// SpeechParams declares the provider and the speaker roster.
	SpeechParams SpeechParams `json:"speechParams"`

	// ImageParams optionally directs the image generation pipeline.
	ImageParams *ImageParams `json:"imageParams,omitempty"`

	// AudioParams optionally configures mixing of narration and BGM.
	AudioParams *AudioParams `json:"audioParams,omitempty"`

	// CaptionParams optionally enables burned-in captions.
	CaptionParams *CaptionParams `json:"captionParams,omitempty"`

	// Beats is the ordered, non-empty narrative sequence. Order is
	// significant and never changed by the engine.
	Beats []Beat `json:"beats"`
}

// SpeechParams declares the TTS provider and the speaker roster. Every
// beat's speaker id must be a key of Speakers.
type SpeechParams struct {
	Provider string             `json:"provider"`
	Speakers map[string]Speaker `json:"speakers"`
}

// Speaker holds per-speaker voice selection and localized display names.
type Speaker struct {
	VoiceID     string            `json:"voiceId"`
	DisplayName map[string]string `json:"displayName,omitempty"`
}

// Beat is one unit of the script: a single spoken line attributed to one
// speaker, plus an optional visual direction.
type Beat struct {
	Speaker     string  `json:"speaker"`
	Text        string  `json:"text"`
	ImagePrompt string  `json:"imagePrompt,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
}

// ImageParams directs the downstream image generation pipeline.
type ImageParams struct {
	Style      string      `json:"style,omitempty"`
	Model      string      `json:"model,omitempty"`
	CanvasSize *CanvasSize `json:"canvasSize,omitempty"`
}

// CanvasSize is the output canvas in pixels.
type CanvasSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AudioParams configures narration/BGM mixing. Volumes are in [0, 1].
type AudioParams struct {
	BGMVolume   float64 `json:"bgmVolume,omitempty"`
	AudioVolume float64 `json:"audioVolume,omitempty"`
	PaddingSec  float64 `json:"padding,omitempty"`
}

// CaptionParams enables captions in the given language with CSS-like style
// declarations.
type CaptionParams struct {
	Lang   string   `json:"lang,omitempty"`
	Styles []string `json:"styles,omitempty"`
}

func validProvider(p string) bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}
