package engine

import (
	"fmt"

	"github.com/seika-studio/scriptforge/internal/script"
	"github.com/seika-studio/scriptforge/internal/template"
)

// Fallback speaker roles. The first and last beats are always narration;
// interior beats rotate through the three roles by index.
const (
	speakerNarrator = "Narrator"
	speakerHero     = "Hero"
	speakerSage     = "Sage"
)

var interiorRotation = [3]string{speakerHero, speakerNarrator, speakerSage}

// fallbackVoices is the fixed ordered voice pool; speakers are assigned a
// voice by their roster index modulo the pool size.
var fallbackVoices = [6]string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

var displayNames = map[string]map[string]string{
	speakerNarrator: {"en": "Narrator", "ja": "ナレーター"},
	speakerHero:     {"en": "Hero", "ja": "主人公"},
	speakerSage:     {"en": "Sage", "ja": "賢者"},
}

// heroExcerptRunes bounds the story excerpt spoken by the hero.
const heroExcerptRunes = 150

type stylePhrases struct {
	opening    string
	middle     string
	reflection string
	closing    string
	imageStyle string
}

var fallbackPhrases = map[string]stylePhrases{
	"dramatic": {
		opening:    "The story of %q begins on an ordinary day that would never be ordinary again.",
		middle:     "Every choice now carried a weight no one could see.",
		reflection: "Some doors, once opened, can never be closed.",
		closing:    "And so %q ends — not with an answer, but with a promise.",
		imageStyle: "cinematic lighting, high contrast, film still",
	},
	"comedic": {
		opening:    "Welcome to %q, where absolutely nothing goes according to plan.",
		middle:     "Naturally, this was the moment everything got sillier.",
		reflection: "There is a lesson here somewhere, probably.",
		closing:    "That was %q. No refunds.",
		imageStyle: "bright colors, exaggerated expressions, playful cartoon style",
	},
	"adventure": {
		opening:    "Beyond the edge of the map, %q was waiting.",
		middle:     "The road ahead grew wilder with every step.",
		reflection: "Courage is just fear that kept walking.",
		closing:    "The journey of %q ends here, but the horizon never does.",
		imageStyle: "sweeping landscapes, golden hour, epic scale",
	},
	"romantic": {
		opening:    "Some stories begin with a glance. %q is one of them.",
		middle:     "Two paths kept crossing, as if the city itself insisted.",
		reflection: "The heart keeps its own calendar.",
		closing:    "%q closes the way all true stories do: with two names and one ending.",
		imageStyle: "soft focus, warm pastel palette, gentle light",
	},
	"mystery": {
		opening:    "There was one detail about %q nobody could explain.",
		middle:     "Each answer only uncovered two more questions.",
		reflection: "The truth was there all along, wearing a different face.",
		closing:    "%q is solved — unless, of course, it isn't.",
		imageStyle: "film noir shadows, fog, muted tones",
	},
}

// Fallback synthesizes a structurally and schema-valid script from the story
// without any network call. It is pure: identical inputs produce identical
// output. The engine uses it as the safety net once retries are exhausted,
// and it must never depend on the completion client.
func Fallback(story Story, opts Options) *script.Script {
	count := clampBeatCount(opts.BeatCount)
	if len(opts.FixedScenes) > 0 {
		count = len(opts.FixedScenes)
		if count > MaxBeatCount {
			count = MaxBeatCount
		}
	}
	style := template.NormalizeStyle(opts.Style)
	phrases := fallbackPhrases[style]

	lang := opts.Language
	if lang == "" {
		lang = template.DefaultLanguage
	}
	duration := opts.TargetDurationSec
	if duration <= 0 {
		duration = template.DefaultDurationSec
	}
	beatDuration := float64(duration) / float64(count)

	beats := make([]script.Beat, 0, count)
	for i := 0; i < count; i++ {
		var speaker, text, image string
		switch {
		case i == 0:
			speaker = speakerNarrator
			text = fmt.Sprintf(phrases.opening, story.Title)
			image = fmt.Sprintf("opening scene for %q, establishing shot", story.Title)
		case i == count-1:
			speaker = speakerNarrator
			text = fmt.Sprintf(phrases.closing, story.Title)
			image = fmt.Sprintf("closing scene for %q, wide farewell shot", story.Title)
		default:
			speaker = interiorRotation[(i-1)%len(interiorRotation)]
			switch speaker {
			case speakerHero:
				text = truncateRunes(story.Text, heroExcerptRunes)
				image = "the protagonist in the middle of the action, medium shot"
			case speakerNarrator:
				text = phrases.middle
				image = "the unfolding situation, dynamic composition"
			case speakerSage:
				text = phrases.reflection
				image = "a quiet moment of reflection, soft close-up"
			}
		}

		if opts.FixedScenes != nil && i < len(opts.FixedScenes) {
			image = fmt.Sprintf("%s — %s", opts.FixedScenes[i].Title, image)
		}

		beats = append(beats, script.Beat{
			Speaker:     speaker,
			Text:        text,
			ImagePrompt: image,
			Duration:    beatDuration,
		})
	}

	// The roster is derived from the speakers actually used, in order of
	// first appearance, so the beat->roster invariant holds by construction.
	speakers := make(map[string]script.Speaker)
	seen := 0
	for _, b := range beats {
		if _, ok := speakers[b.Speaker]; ok {
			continue
		}
		speakers[b.Speaker] = script.Speaker{
			VoiceID:     fallbackVoices[seen%len(fallbackVoices)],
			DisplayName: displayNames[b.Speaker],
		}
		seen++
	}

	s := &script.Script{
		Format: script.FormatTag,
		Title:  story.Title,
		Lang:   lang,
		SpeechParams: script.SpeechParams{
			Provider: script.DefaultProvider,
			Speakers: speakers,
		},
		ImageParams: &script.ImageParams{
			Style:      phrases.imageStyle,
			CanvasSize: &script.CanvasSize{Width: 1280, Height: 720},
		},
		Beats: beats,
	}

	if opts.EnableCaptions {
		styles := opts.CaptionStyles
		if len(styles) == 0 {
			styles = template.DefaultCaptionStyles
		}
		s.CaptionParams = &script.CaptionParams{Lang: lang, Styles: styles}
	}

	return s
}

func truncateRunes(text string, limit int) string {
	if text == "" {
		return "..."
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
