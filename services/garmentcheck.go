package services

import (
	"net/url"
	"strings"

	"vestryapi/models"
)

// Heuristic gate before the expensive try-on call. It filters obviously
// malformed garment images, it does not certify visual correctness.

const (
	minInlineImageBytes = 100 * 1024
	maxInlineImageBytes = 5 * 1024 * 1024

	validScoreThreshold = 70
	maxIssuesForValid   = 2
)

var completeGarmentTerms = []string{"complete garment", "full garment", "entire garment"}

// ScoreGarmentAsset scores a generated asset for try-on suitability, starting
// at 100 and penalizing per finding.
func ScoreGarmentAsset(asset models.GarmentAsset) models.ValidationResult {
	result := models.ValidationResult{Score: 100, Issues: []string{}, Recommendations: []string{}}
	urlValid := true

	if !isUsableImageRef(asset.ImageURL) {
		result.Score -= 50
		result.Issues = append(result.Issues, "missing or invalid image URL")
		result.Recommendations = append(result.Recommendations, "regenerate the garment image")
		urlValid = false
	}

	prompt := strings.ToLower(asset.Prompt.MainPrompt)
	if !containsAny(prompt, garmentVocabulary) {
		result.Score -= 15
		result.Issues = append(result.Issues, "prompt has no recognized garment type")
		result.Recommendations = append(result.Recommendations, "describe a specific clothing piece")
	}
	if !containsAny(prompt, completeGarmentTerms) {
		result.Score -= 10
		result.Issues = append(result.Issues, "prompt lacks complete-garment emphasis")
	}

	if size, inline := inlineImageSize(asset.ImageURL); inline {
		if size < minInlineImageBytes {
			result.Score -= 25
			result.Issues = append(result.Issues, "inline image too small to trust detail")
			result.Recommendations = append(result.Recommendations, "request a larger image size")
		} else if size > maxInlineImageBytes {
			result.Score -= 5
			result.Recommendations = append(result.Recommendations, "inline image is large, prefer a hosted URL")
		}
	}

	if result.Score < 0 {
		result.Score = 0
	}
	result.IsValid = urlValid && result.Score >= validScoreThreshold && len(result.Issues) <= maxIssuesForValid
	return result
}

func isUsableImageRef(ref string) bool {
	if ref == "" {
		return false
	}
	if strings.HasPrefix(ref, "data:image/") {
		return strings.Contains(ref, ";base64,")
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// inlineImageSize estimates the decoded byte size of a base64 data URL.
func inlineImageSize(ref string) (int, bool) {
	if !strings.HasPrefix(ref, "data:image/") {
		return 0, false
	}
	_, payload, found := strings.Cut(ref, ";base64,")
	if !found {
		return 0, false
	}
	return len(payload) * 3 / 4, true
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
