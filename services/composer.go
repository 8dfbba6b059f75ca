package services

import (
	"fmt"
	"hash/fnv"
	"slices"
	"strings"

	"vestryapi/models"
)

// PromptComposer turns an OutfitRequest into one or more garment prompts for
// the image generation provider. Identical outfit attributes always produce
// the same seed, so a regeneration reproduces the same garment.
type PromptComposer struct{}

var garmentVocabulary = []string{
	// one-piece garments first so "wrap dress" wins over fabric words
	"dress", "jumpsuit", "gown", "romper", "swimsuit", "overalls", "bodysuit",
	"blouse", "shirt", "t-shirt", "tank top", "sweater", "hoodie", "cardigan",
	"jacket", "blazer", "coat", "vest", "top",
	"pants", "trousers", "jeans", "chinos", "skirt", "shorts", "leggings", "joggers",
}

var colorVocabulary = []string{
	"black", "white", "red", "blue", "navy", "green", "yellow", "pink",
	"purple", "orange", "brown", "beige", "cream", "grey", "gray", "burgundy",
	"olive", "teal", "lavender", "coral",
}

var fabricVocabulary = []string{
	"silk", "cotton", "denim", "leather", "wool", "linen", "satin", "velvet",
	"cashmere", "chiffon", "tweed", "corduroy", "knit",
}

var styleDescriptors = map[models.StyleTag][]string{
	models.StyleCasual:     {"relaxed fit", "everyday wear", "comfortable"},
	models.StyleFormal:     {"tailored", "elegant", "refined silhouette"},
	models.StyleTrendy:     {"contemporary cut", "fashion forward", "statement piece"},
	models.StyleVintage:    {"retro inspired", "classic cut", "timeless"},
	models.StyleMinimalist: {"clean lines", "understated", "simple silhouette"},
	models.StyleEdgy:       {"bold", "asymmetric details", "street style"},
}

// The try-on provider only accepts garment-only reference images, so the
// quality block pins the generation to an isolated product shot.
const qualityDescriptors = "photorealistic, studio lighting, isolated garment on plain white background, " +
	"complete garment fully visible, professional product photography, high resolution"

const negativeDescriptors = "person, model, mannequin, human, face, hands, body parts, " +
	"watermark, text, logo, blurry, low quality, cropped garment, partial garment, duplicate"

// fallback when nothing in the request matched the vocabularies; the pipeline
// never receives an empty prompt
const placeholderGarment = "versatile clothing piece"

var variationTerms = map[models.VariationLabel][]models.WeightedTerm{
	models.VariationEnhanced: {
		{Term: "intricate details", Weight: 1.3},
		{Term: "premium fabric texture", Weight: 1.2},
	},
	models.VariationMinimalist: {
		{Term: "clean minimal design", Weight: 1.2},
		{Term: "solid color", Weight: 1.1},
	},
	models.VariationArtistic: {
		{Term: "editorial fashion photography", Weight: 1.3},
		{Term: "dramatic lighting", Weight: 1.2},
	},
	models.VariationCommercial: {
		{Term: "e-commerce catalog shot", Weight: 1.2},
		{Term: "neutral backdrop", Weight: 1.1},
	},
}

const unseenTermWeight = 1.1

type outfitAttributes struct {
	Pieces  []string
	Colors  []string
	Fabrics []string
}

func extractAttributes(description string) outfitAttributes {
	lowered := strings.ToLower(description)
	var attrs outfitAttributes
	for _, piece := range garmentVocabulary {
		if strings.Contains(lowered, piece) && !slices.Contains(attrs.Pieces, piece) {
			attrs.Pieces = append(attrs.Pieces, piece)
		}
	}
	for _, color := range colorVocabulary {
		if strings.Contains(lowered, color) && !slices.Contains(attrs.Colors, color) {
			attrs.Colors = append(attrs.Colors, color)
		}
	}
	for _, fabric := range fabricVocabulary {
		if strings.Contains(lowered, fabric) && !slices.Contains(attrs.Fabrics, fabric) {
			attrs.Fabrics = append(attrs.Fabrics, fabric)
		}
	}
	return attrs
}

// DeriveSeed hashes style+pieces+colors into a stable 32-bit seed. Attribute
// order does not matter, the sets are canonicalized before hashing.
func DeriveSeed(style models.StyleTag, pieces []string, colors []string) uint32 {
	sortedPieces := slices.Clone(pieces)
	sortedColors := slices.Clone(colors)
	slices.Sort(sortedPieces)
	slices.Sort(sortedColors)

	h := fnv.New32a()
	h.Write([]byte(style))
	h.Write([]byte{'|'})
	h.Write([]byte(strings.Join(sortedPieces, ",")))
	h.Write([]byte{'|'})
	h.Write([]byte(strings.Join(sortedColors, ",")))
	return h.Sum32()
}

func variationSeed(base uint32, label models.VariationLabel) uint32 {
	h := fnv.New32a()
	h.Write([]byte(label))
	return base ^ h.Sum32()
}

func weatherTerms(weather *models.WeatherSnapshot) []string {
	if weather == nil {
		return nil
	}
	var terms []string
	switch {
	case weather.TemperatureC <= 5:
		terms = append(terms, "warm layered winter garment")
	case weather.TemperatureC <= 15:
		terms = append(terms, "mid-weight transitional garment")
	case weather.TemperatureC >= 28:
		terms = append(terms, "lightweight breathable fabric")
	}
	switch strings.ToLower(weather.Condition) {
	case "rain", "drizzle":
		terms = append(terms, "water resistant finish")
	case "snow":
		terms = append(terms, "insulated fabric")
	}
	return terms
}

// Compose builds the base (unlabeled) prompt for the request.
func (c *PromptComposer) Compose(req models.OutfitRequest) models.GarmentPrompt {
	attrs := extractAttributes(req.Description)

	var subject []string
	subject = append(subject, attrs.Colors...)
	subject = append(subject, attrs.Fabrics...)
	if len(attrs.Pieces) > 0 {
		subject = append(subject, attrs.Pieces...)
	} else {
		subject = append(subject, placeholderGarment)
	}

	sections := []string{strings.Join(subject, " ")}
	sections = append(sections, styleDescriptors[req.Style]...)
	sections = append(sections, weatherTerms(req.Weather)...)
	if req.Season != "" {
		sections = append(sections, req.Season+" season")
	}
	if req.TimeOfDay != "" {
		sections = append(sections, req.TimeOfDay+" wear")
	}
	sections = append(sections, qualityDescriptors)

	return models.GarmentPrompt{
		MainPrompt:     strings.Join(sections, ", "),
		NegativePrompt: negativeDescriptors,
		Seed:           DeriveSeed(req.Style, attrs.Pieces, attrs.Colors),
	}
}

// ComposeVariation renders one labeled variation on top of the base prompt.
// The preference variation biases term weights by the learned profile,
// defaulting to 1.1 for unseen terms.
func (c *PromptComposer) ComposeVariation(req models.OutfitRequest, label models.VariationLabel, profile *models.PreferenceProfile) models.GarmentPrompt {
	base := c.Compose(req)
	base.Variation = label
	base.Seed = variationSeed(base.Seed, label)

	var terms []models.WeightedTerm
	if label == models.VariationPreference {
		terms = preferenceTerms(req, profile)
	} else {
		terms = variationTerms[label]
	}
	base.WeightedTerms = terms

	if len(terms) > 0 {
		rendered := make([]string, 0, len(terms))
		for _, term := range terms {
			rendered = append(rendered, term.String())
		}
		base.MainPrompt = base.MainPrompt + ", " + strings.Join(rendered, ", ")
	}
	return base
}

// ComposeVariations renders every requested label; seeds stay deterministic
// per label yet distinct from each other.
func (c *PromptComposer) ComposeVariations(req models.OutfitRequest, labels []models.VariationLabel, profile *models.PreferenceProfile) []models.GarmentPrompt {
	prompts := make([]models.GarmentPrompt, 0, len(labels))
	for _, label := range labels {
		prompts = append(prompts, c.ComposeVariation(req, label, profile))
	}
	return prompts
}

func preferenceTerms(req models.OutfitRequest, profile *models.PreferenceProfile) []models.WeightedTerm {
	descriptors := styleDescriptors[req.Style]
	terms := make([]models.WeightedTerm, 0, len(descriptors))
	for _, descriptor := range descriptors {
		weight := unseenTermWeight
		if profile != nil {
			if learned, ok := profile.PreferredTermWeights[descriptor]; ok {
				weight = learned
			}
		}
		terms = append(terms, models.WeightedTerm{Term: descriptor, Weight: clampWeight(weight)})
	}
	return terms
}

func clampWeight(weight float64) float64 {
	if weight < 1.0 {
		return 1.0
	}
	if weight > 1.4 {
		return 1.4
	}
	return weight
}

// SuggestOutfits produces a deterministic suggestion set for the given
// weather and style archetypes; used as the loader behind the suggestion
// cache.
func (c *PromptComposer) SuggestOutfits(weather models.WeatherSnapshot, styles []models.StyleTag) []models.OutfitSuggestion {
	suggestions := make([]models.OutfitSuggestion, 0, len(styles))
	for _, style := range styles {
		descriptors := styleDescriptors[style]
		if len(descriptors) == 0 {
			continue
		}
		var piece string
		switch {
		case weather.TemperatureC <= 5:
			piece = "wool coat"
		case weather.TemperatureC <= 15:
			piece = "layered jacket"
		case weather.TemperatureC >= 28:
			piece = "linen shirt"
		default:
			piece = "cotton top"
		}
		suggestions = append(suggestions, models.OutfitSuggestion{
			Title:       fmt.Sprintf("%s %s", style, piece),
			Description: fmt.Sprintf("%s %s, %s", descriptors[0], piece, descriptors[1]),
			Style:       style,
		})
	}
	return suggestions
}
