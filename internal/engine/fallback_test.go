package engine

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/seika-studio/scriptforge/internal/script"
	"github.com/seika-studio/scriptforge/internal/template"
)

func TestFallback_Deterministic(t *testing.T) {
	story := testStory()
	opts := DefaultOptions()
	opts.BeatCount = 5

	a, err := json.Marshal(Fallback(story, opts))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	b, err := json.Marshal(Fallback(story, opts))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	if string(a) != string(b) {
		t.Error("identical inputs produced different output")
	}
}

func TestFallback_BeatCount(t *testing.T) {
	tests := []struct {
		name  string
		count int
		want  int
	}{
		{"single beat", 1, 1},
		{"two beats", 2, 2},
		{"five beats", 5, 5},
		{"twenty beats", 20, 20},
		{"zero defaults", 0, template.DefaultBeatCount},
		{"over the cap", 50, MaxBeatCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.BeatCount = tt.count

			s := Fallback(testStory(), opts)
			if len(s.Beats) != tt.want {
				t.Errorf("expected %d beats, got %d", tt.want, len(s.Beats))
			}
		})
	}
}

func TestFallback_SingleBeatIsOpeningOnly(t *testing.T) {
	opts := DefaultOptions()
	opts.BeatCount = 1
	opts.Style = "dramatic"

	s := Fallback(testStory(), opts)
	if len(s.Beats) != 1 {
		t.Fatalf("expected 1 beat, got %d", len(s.Beats))
	}
	if s.Beats[0].Speaker != speakerNarrator {
		t.Errorf("opening beat speaker = %q, want narrator", s.Beats[0].Speaker)
	}
	if !strings.Contains(s.Beats[0].Text, "Cafe Dream") {
		t.Errorf("opening text does not mention the title: %q", s.Beats[0].Text)
	}
	// No closing beat, so the roster holds only the narrator.
	if len(s.SpeechParams.Speakers) != 1 {
		t.Errorf("expected 1 roster speaker, got %d", len(s.SpeechParams.Speakers))
	}
}

func TestFallback_InteriorRotation(t *testing.T) {
	opts := DefaultOptions()
	opts.BeatCount = 8

	s := Fallback(testStory(), opts)

	// Interior beats (indexes 1..6) cycle Hero/Narrator/Sage.
	want := []string{speakerHero, speakerNarrator, speakerSage, speakerHero, speakerNarrator, speakerSage}
	for i, wantSpeaker := range want {
		got := s.Beats[i+1].Speaker
		if got != wantSpeaker {
			t.Errorf("beats[%d].Speaker = %q, want %q", i+1, got, wantSpeaker)
		}
	}
	if s.Beats[0].Speaker != speakerNarrator || s.Beats[7].Speaker != speakerNarrator {
		t.Error("first and last beats must be narration")
	}
}

func TestFallback_HeroSpeaksStoryExcerpt(t *testing.T) {
	story := testStory()
	story.Text = strings.Repeat("あ", 300)

	opts := DefaultOptions()
	opts.BeatCount = 3 // beats: opening, hero, closing

	s := Fallback(story, opts)
	hero := s.Beats[1]
	if hero.Speaker != speakerHero {
		t.Fatalf("expected hero interior beat, got %q", hero.Speaker)
	}
	if got := len([]rune(hero.Text)); got != heroExcerptRunes {
		t.Errorf("expected %d-rune excerpt, got %d", heroExcerptRunes, got)
	}
}

func TestFallback_RosterFromUsedSpeakers(t *testing.T) {
	opts := DefaultOptions()
	opts.BeatCount = 5 // narrator, hero, narrator, sage... indexes 1-3 rotate

	s := Fallback(testStory(), opts)

	for i, b := range s.Beats {
		if _, ok := s.SpeechParams.Speakers[b.Speaker]; !ok {
			t.Errorf("beat %d speaker %q missing from roster", i, b.Speaker)
		}
	}
	for id := range s.SpeechParams.Speakers {
		used := false
		for _, b := range s.Beats {
			if b.Speaker == id {
				used = true
				break
			}
		}
		if !used {
			t.Errorf("roster speaker %q never used", id)
		}
	}

	// Voices come from the fixed pool, assigned by first-use order.
	for id, sp := range s.SpeechParams.Speakers {
		found := false
		for _, v := range fallbackVoices {
			if sp.VoiceID == v {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("speaker %q has voice %q outside the pool", id, sp.VoiceID)
		}
	}
}

func TestFallback_AlwaysValidates(t *testing.T) {
	stories := []Story{
		testStory(),
		{ID: "s2", Title: "Empty Text", Text: ""},
		{ID: "s3", Title: "日本語の物語", Text: "昔々、あるところに。"},
	}
	styles := append([]string{}, template.Styles...)
	styles = append(styles, "unknown-style")

	for _, story := range stories {
		for _, style := range styles {
			for _, count := range []int{1, 2, 5, 20} {
				opts := DefaultOptions()
				opts.BeatCount = count
				opts.Style = style
				opts.EnableCaptions = count%2 == 0

				s := Fallback(story, opts)

				raw, err := json.Marshal(s)
				if err != nil {
					t.Fatalf("marshal failed: %v", err)
				}
				if _, err := script.Validate(string(raw)); err != nil {
					t.Errorf("fallback output failed validation (style=%s count=%d): %v", style, count, err)
				}
			}
		}
	}
}

func TestFallback_Captions(t *testing.T) {
	opts := DefaultOptions()
	opts.BeatCount = 3

	s := Fallback(testStory(), opts)
	if s.CaptionParams != nil {
		t.Error("captions emitted without request")
	}

	opts.EnableCaptions = true
	s = Fallback(testStory(), opts)
	if s.CaptionParams == nil {
		t.Fatal("captions requested but missing")
	}
	if s.CaptionParams.Lang != "ja" {
		t.Errorf("unexpected caption lang %q", s.CaptionParams.Lang)
	}
	if len(s.CaptionParams.Styles) != len(template.DefaultCaptionStyles) {
		t.Errorf("expected default caption styles, got %v", s.CaptionParams.Styles)
	}

	opts.CaptionStyles = []string{"font-family: serif"}
	s = Fallback(testStory(), opts)
	if len(s.CaptionParams.Styles) != 1 || s.CaptionParams.Styles[0] != "font-family: serif" {
		t.Errorf("caller caption styles ignored: %v", s.CaptionParams.Styles)
	}
}

func TestFallback_StylePhrasing(t *testing.T) {
	for _, style := range template.Styles {
		opts := DefaultOptions()
		opts.BeatCount = 2
		opts.Style = style

		s := Fallback(testStory(), opts)
		if s.ImageParams == nil || s.ImageParams.Style != fallbackPhrases[style].imageStyle {
			t.Errorf("style %s: image directive not applied", style)
		}
	}

	// Distinct styles phrase the opening differently.
	dramatic := Fallback(testStory(), Options{BeatCount: 1, Style: "dramatic"})
	comedic := Fallback(testStory(), Options{BeatCount: 1, Style: "comedic"})
	if dramatic.Beats[0].Text == comedic.Beats[0].Text {
		t.Error("dramatic and comedic openings are identical")
	}
}

func TestFallback_FixedScenes(t *testing.T) {
	opts := DefaultOptions()
	opts.BeatCount = 5
	opts.FixedScenes = []template.Scene{
		{Number: 1, Title: "The machine hums"},
		{Number: 2, Title: "First memory"},
		{Number: 3, Title: "Last orders"},
	}

	s := Fallback(testStory(), opts)
	if len(s.Beats) != 3 {
		t.Fatalf("fixed scenes must pin beat count, got %d beats", len(s.Beats))
	}
	if !strings.HasPrefix(s.Beats[0].ImagePrompt, "The machine hums") {
		t.Errorf("scene title not reflected in image prompt: %q", s.Beats[0].ImagePrompt)
	}
}

func TestFallback_DurationsSumToTarget(t *testing.T) {
	opts := DefaultOptions()
	opts.BeatCount = 4
	opts.TargetDurationSec = 20

	s := Fallback(testStory(), opts)
	var total float64
	for _, b := range s.Beats {
		total += b.Duration
	}
	if total != 20 {
		t.Errorf("expected durations to sum to 20, got %f", total)
	}
}
