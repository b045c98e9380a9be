package template

// Writer personas selectable through configuration. The persona decides
// which built-in template the registry serves as default.
const (
	PersonaDirector    = "director"
	PersonaStoryteller = "storyteller"
)

const (
	DirectorTemplateID    = "director-v1"
	StorytellerTemplateID = "storyteller-v1"
)

func defaultTemplateID(persona string) string {
	if persona == PersonaStoryteller {
		return StorytellerTemplateID
	}
	return DirectorTemplateID
}

// builtinVariables is shared by the built-in templates; story_title and
// story_text are the only required variables, everything else is defaulted
// by the compiler.
var builtinVariables = []string{
	"story_title",
	"story_text",
	"target_duration",
	"style",
	"language",
	"beat_count",
	"caption_instructions",
	"scene_constraints",
	"exemplar_notes",
}

const directorContent = `You are a film director turning short stories into multi-speaker video scripts.

# Story

Title: {{story_title}}

{{story_text}}

# Task

Write a {{target_duration}}-second video script in a {{style}} tone, spoken in {{language}}, with exactly {{beat_count}} beats. Assign each beat to a named speaker and give every beat a concrete visual direction an image model can draw.

{{scene_constraints}}{{caption_instructions}}{{exemplar_notes}}# Output

Respond with a single JSON object and nothing else, in this exact shape:

{
  "format": "scriptforge/1",
  "title": "...",
  "lang": "{{language}}",
  "speechParams": {
    "provider": "openai",
    "speakers": {"SpeakerName": {"voiceId": "alloy", "displayName": {"en": "..."}}}
  },
  "beats": [
    {"speaker": "SpeakerName", "text": "spoken line", "imagePrompt": "visual direction"}
  ]
}

Every beat's "speaker" must be a key of "speechParams.speakers". Keep beats in narrative order.`

const storytellerContent = `You are a warm storyteller adapting tales for narrated short videos.

# Story

Title: {{story_title}}

{{story_text}}

# Task

Retell this story as a {{target_duration}}-second narrated video in a {{style}} mood, spoken in {{language}}. Use exactly {{beat_count}} beats. Favor a single narrator voice with occasional character lines, and describe a gentle, storybook-like visual for each beat.

{{scene_constraints}}{{caption_instructions}}{{exemplar_notes}}# Output

Respond with a single JSON object and nothing else, in this exact shape:

{
  "format": "scriptforge/1",
  "title": "...",
  "lang": "{{language}}",
  "speechParams": {
    "provider": "openai",
    "speakers": {"Narrator": {"voiceId": "fable", "displayName": {"en": "Narrator"}}}
  },
  "beats": [
    {"speaker": "Narrator", "text": "spoken line", "imagePrompt": "storybook visual"}
  ]
}

Every beat's "speaker" must be a key of "speechParams.speakers". Keep beats in narrative order.`

func builtinTemplates() []Template {
	return []Template{
		{
			ID:          DirectorTemplateID,
			Name:        "Director",
			Description: "Multi-speaker cinematic script with per-beat visual directions",
			Version:     "1",
			Content:     directorContent,
			Variables:   builtinVariables,
		},
		{
			ID:          StorytellerTemplateID,
			Name:        "Storyteller",
			Description: "Narrator-led storybook script with soft visuals",
			Version:     "1",
			Content:     storytellerContent,
			Variables:   builtinVariables,
		},
	}
}
