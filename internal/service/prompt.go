package service

import (
	"fmt"
	"strings"

	"github.com/csvtree/csvtree-api/internal/models"
)

// BuildPrompt returns the provider instruction text for a batch's settings.
// Both providers get the same prompt; structural constraints (JSON shape)
// are additionally enforced through each provider's response format options.
func BuildPrompt(settings models.AppSettings) string {
	if settings.Mode == models.ModeImageToPrompt {
		return buildImageToPromptPrompt(settings)
	}
	return buildMetadataPrompt(settings)
}

func buildMetadataPrompt(s models.AppSettings) string {
	var sb strings.Builder

	sb.WriteString("You are a stock photography metadata specialist. Analyze the image and produce metadata for the ")
	sb.WriteString(platformName(s.Platform))
	sb.WriteString(" platform.\n\n")

	fmt.Fprintf(&sb, "The asset is a %s file.\n\n", strings.ToLower(string(s.FileType)))

	sb.WriteString("Requirements:\n")
	fmt.Fprintf(&sb, "- title: a descriptive commercial title of %d to %d words. No quotes, no colons, no brand names.\n",
		s.MinTitleWords, s.MaxTitleWords)
	fmt.Fprintf(&sb, "- keywords: %d to %d relevant keywords ordered from most to least important.", s.MinKeywords, s.MaxKeywords)
	if s.SingleWordKeywords {
		sb.WriteString(" Every keyword must be a single word.")
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "- description: a factual description of %d to %d words.\n", s.MinDescriptionWords, s.MaxDescriptionWords)
	sb.WriteString("- categories: one or two category names that fit the platform's taxonomy.\n")
	if s.ProhibitedWords {
		sb.WriteString("- Never use trademarked terms, brand names, celebrity names, or profanity anywhere in the title, keywords, or description.\n")
	}
	if s.Silhouette {
		sb.WriteString("- If the image shows a silhouette, say so in the title and include \"silhouette\" as a keyword.\n")
	}
	if s.TransparentBackground {
		sb.WriteString("- If the subject is isolated on a transparent or plain background, mention that in the title and keywords.\n")
	}

	if s.CustomContext != "" {
		sb.WriteString("\nAdditional context from the photographer: ")
		sb.WriteString(s.CustomContext)
		sb.WriteString("\n")
	}

	sb.WriteString("\nRespond with a single JSON object with keys \"title\", \"keywords\", \"categories\", \"description\". No other text.")
	return sb.String()
}

func buildImageToPromptPrompt(s models.AppSettings) string {
	var sb strings.Builder

	sb.WriteString("You are an expert at reverse-engineering generation prompts from images. ")
	sb.WriteString("Analyze the image and write a detailed text-to-image prompt that would reproduce it: ")
	sb.WriteString("subject, composition, lighting, color palette, style, and medium.\n")

	if s.CustomContext != "" {
		sb.WriteString("\nAdditional context: ")
		sb.WriteString(s.CustomContext)
		sb.WriteString("\n")
	}

	sb.WriteString("\nRespond with a single JSON object with one key \"prompt\". No other text.")
	return sb.String()
}

// platformName spells out platforms whose identifier is not display-friendly.
func platformName(p models.Platform) string {
	switch p {
	case models.PlatformAdobeStock:
		return "Adobe Stock"
	case models.Platform123RF:
		return "123RF"
	case models.PlatformGeneral:
		return "general stock photography"
	default:
		return string(p)
	}
}
