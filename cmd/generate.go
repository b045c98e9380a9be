package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seika-studio/scriptforge/internal/config"
	"github.com/seika-studio/scriptforge/internal/engine"
	"github.com/seika-studio/scriptforge/internal/llm"
	"github.com/seika-studio/scriptforge/internal/script"
	"github.com/seika-studio/scriptforge/internal/telemetry"
	"github.com/seika-studio/scriptforge/internal/template"
)

var (
	storyTitle     string
	storyText      string
	storyFile      string
	beatCount      int
	styleName      string
	language       string
	durationSec    int
	enableCaptions bool
	templateID     string
	exportFile     string
	offlineOnly    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a video script from a short story",
	Long: `Generate a structured multi-speaker video script from a short story.

The story is supplied inline with --title and --text, or read from a file
with --file (first line is the title, the rest is the story).

Requires OPENAI_API_KEY unless --offline is set, in which case the
deterministic fallback generator runs without any network access.

Examples:
  scriptforge generate --title "Cafe Dream" --text "A barista discovers magic."
  scriptforge generate --file story.txt --beats 8 --style comedic
  scriptforge generate --file story.txt --export script.json
  scriptforge generate --title "Test" --text "..." --offline`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&storyTitle, "title", "", "Story title")
	generateCmd.Flags().StringVar(&storyText, "text", "", "Story text")
	generateCmd.Flags().StringVar(&storyFile, "file", "", "Read story from file (first line is the title)")
	generateCmd.Flags().IntVar(&beatCount, "beats", 0, "Number of beats (default 5, max 20)")
	generateCmd.Flags().StringVar(&styleName, "style", "", "Style: dramatic, comedic, adventure, romantic, mystery")
	generateCmd.Flags().StringVar(&language, "lang", "", "Output language code (default ja)")
	generateCmd.Flags().IntVar(&durationSec, "duration", 0, "Target duration in seconds (default 20)")
	generateCmd.Flags().BoolVar(&enableCaptions, "captions", false, "Include caption parameters")
	generateCmd.Flags().StringVar(&templateID, "template", "", "Prompt template id (default per persona)")
	generateCmd.Flags().StringVar(&exportFile, "export", "", "Export script to JSON file: --export <filename>")
	generateCmd.Flags().BoolVar(&offlineOnly, "offline", false, "Skip the completion service and use the offline generator")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	story, err := resolveStory()
	if err != nil {
		return err
	}

	cfg := config.Load()
	opts := engine.DefaultOptions()
	opts.TemplateID = templateID
	opts.EnableCaptions = enableCaptions
	if beatCount > 0 {
		opts.BeatCount = beatCount
	}
	if styleName != "" {
		opts.Style = styleName
	}
	if language != "" {
		opts.Language = language
	}
	if durationSec > 0 {
		opts.TargetDurationSec = durationSec
	}

	var (
		s         *script.Script
		byService bool
	)

	if offlineOnly {
		s = engine.Fallback(story, opts)
	} else {
		client, err := llm.NewOpenAIClient(llm.Config{
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
		if err != nil {
			return fmt.Errorf("completion client: %w", err)
		}

		registry := template.NewRegistry(cfg.WriterPersona)
		store := telemetry.NewStore(cfg.StoreCapacity)
		eng := engine.New(registry, store, client, zap.NewNop())
		eng.SetMaxRetries(cfg.MaxRetries)

		s, byService = eng.GenerateWithFallback(context.Background(), story, opts)
	}

	if exportFile != "" {
		return handleExport(s, exportFile)
	}
	return outputTable(s, byService && !offlineOnly)
}

// resolveStory builds the story from flags, reading --file when given.
func resolveStory() (engine.Story, error) {
	if storyFile != "" {
		raw, err := os.ReadFile(storyFile)
		if err != nil {
			return engine.Story{}, fmt.Errorf("failed to read story file: %w", err)
		}
		title, text, ok := strings.Cut(strings.TrimSpace(string(raw)), "\n")
		if !ok || strings.TrimSpace(text) == "" {
			return engine.Story{}, fmt.Errorf("story file must hold a title line followed by the story text")
		}
		return engine.Story{ID: storyFile, Title: strings.TrimSpace(title), Text: strings.TrimSpace(text)}, nil
	}

	if storyTitle == "" || storyText == "" {
		return engine.Story{}, fmt.Errorf("provide --title and --text, or --file")
	}
	return engine.Story{Title: storyTitle, Text: storyText}, nil
}

func handleExport(s *script.Script, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("✓ Exported %d beats to %s\n", len(s.Beats), filename)
	return nil
}

func outputTable(s *script.Script, byService bool) error {
	// LipGloss signature purple/pink palette
	var (
		headerColor  = lipgloss.Color("#F780FF") // Bright pink/magenta
		speakerColor = lipgloss.Color("#BD93F9") // Purple
		numberColor  = lipgloss.Color("#FF79C6") // Pink
		textColor    = lipgloss.Color("#E9E9F4") // Light purple/white
		borderColor  = lipgloss.Color("#6272A4") // Muted purple
		summaryColor = lipgloss.Color("#8BE9FD") // Cyan accent
	)

	// Column widths
	const (
		idxWidth     = 5
		speakerWidth = 14
		textWidth    = 52
		durWidth     = 10
	)

	titleStyle := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true)
	fmt.Println(titleStyle.Render(s.Title))

	headerStyle := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true).
		Padding(0, 1)

	borderStyle := lipgloss.NewStyle().Foreground(borderColor)

	headers := []string{
		headerStyle.Width(idxWidth).Render("#"),
		headerStyle.Width(speakerWidth).Render("SPEAKER"),
		headerStyle.Width(textWidth).Render("TEXT"),
		headerStyle.Width(durWidth).Render("SECONDS"),
	}
	fmt.Println(strings.Join(headers, borderStyle.Render("│")))

	separatorParts := []string{
		strings.Repeat("─", idxWidth),
		strings.Repeat("─", speakerWidth),
		strings.Repeat("─", textWidth),
		strings.Repeat("─", durWidth),
	}
	fmt.Println(borderStyle.Render(strings.Join(separatorParts, "┼")))

	idxStyle := lipgloss.NewStyle().
		Foreground(numberColor).
		Padding(0, 1).
		Width(idxWidth).
		Align(lipgloss.Right)

	spkStyle := lipgloss.NewStyle().
		Foreground(speakerColor).
		Padding(0, 1).
		Width(speakerWidth)

	txtStyle := lipgloss.NewStyle().
		Foreground(textColor).
		Padding(0, 1).
		Width(textWidth)

	durStyle := lipgloss.NewStyle().
		Foreground(numberColor).
		Padding(0, 1).
		Width(durWidth).
		Align(lipgloss.Right)

	var total float64
	for i, b := range s.Beats {
		total += b.Duration

		dur := "-"
		if b.Duration > 0 {
			dur = fmt.Sprintf("%.1f", b.Duration)
		}

		cells := []string{
			idxStyle.Render(fmt.Sprintf("%d", i+1)),
			spkStyle.Render(b.Speaker),
			txtStyle.Render(clip(b.Text, textWidth-2)),
			durStyle.Render(dur),
		}
		fmt.Println(strings.Join(cells, borderStyle.Render("│")))
	}

	fmt.Println()
	summaryStyle := lipgloss.NewStyle().
		Foreground(summaryColor).
		Italic(true)

	source := "offline generator"
	if byService {
		source = "completion service"
	}
	summary := fmt.Sprintf("Total: %d beats, %d speakers, %.1fs (%s)",
		len(s.Beats), len(s.SpeechParams.Speakers), total, source)
	fmt.Println(summaryStyle.Render(summary))

	return nil
}

// clip shortens a beat line to fit its table column.
func clip(text string, width int) string {
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	return string(runes[:width-1]) + "…"
}
