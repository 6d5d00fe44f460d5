package comparison

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/paperlens/core/internal/models"
	"github.com/paperlens/core/internal/modules/section"
)

const maxCaptionLength = 120

var tokenPattern = regexp.MustCompile(`[a-z0-9]{3,}`)

// assignImages places each image into exactly one section of the grouped
// document. Placement priority: caption keyword match, exact page match,
// nearest page, caption/section token overlap, then the first section.
// Images without payload data are dropped.
func assignImages(groups *sectionGroups, images []models.Chunk) map[string][]Image {
	assignments := make(map[string][]Image, len(groups.names))
	for _, name := range groups.names {
		assignments[name] = nil
	}
	if len(groups.names) == 0 || len(images) == 0 {
		return assignments
	}

	tokens := make(map[string]map[string]struct{}, len(groups.names))
	pages := make(map[string][]int, len(groups.names))
	pageToSections := make(map[int][]string)
	for _, name := range groups.names {
		var b strings.Builder
		pageSet := make(map[int]struct{})
		for _, chunk := range groups.bySection[name] {
			b.WriteString(chunk.Text)
			b.WriteByte(' ')
			if chunk.Meta.Page != nil {
				pageSet[*chunk.Meta.Page] = struct{}{}
			}
		}
		tokens[name] = tokenize(b.String())
		sectionPages := make([]int, 0, len(pageSet))
		for p := range pageSet {
			sectionPages = append(sectionPages, p)
		}
		sort.Ints(sectionPages)
		pages[name] = sectionPages
		for _, p := range sectionPages {
			pageToSections[p] = append(pageToSections[p], name)
		}
	}

	for _, image := range images {
		if image.Meta.ImageData == "" {
			continue
		}
		target := sectionForImage(image, groups.names, tokens, pages, pageToSections)
		if target == "" {
			continue
		}
		assignments[target] = append(assignments[target], Image{
			ChunkID:       image.ID,
			Page:          image.Meta.Page,
			Caption:       truncateCaption(image.Meta.Caption),
			PictureNumber: image.Meta.PictureNumber,
			ImageData:     image.Meta.ImageData,
		})
	}
	return assignments
}

func sectionForImage(
	image models.Chunk,
	names []string,
	tokens map[string]map[string]struct{},
	pages map[string][]int,
	pageToSections map[int][]string,
) string {
	caption := strings.ToLower(image.Meta.Caption)

	if caption != "" {
		if canonical, ok := section.KeywordMatch(caption); ok {
			if matched := matchSectionName(canonical, names); matched != "" {
				return matched
			}
		}
	}

	if image.Meta.Page != nil {
		page := *image.Meta.Page
		if exact := pageToSections[page]; len(exact) > 0 {
			return exact[0]
		}
		if nearest := nearestSectionByPage(page, names, pages); nearest != "" {
			return nearest
		}
	}

	captionTokens := tokenize(caption)
	best := ""
	bestOverlap := 0
	for _, name := range names {
		overlap := 0
		for tok := range captionTokens {
			if _, ok := tokens[name][tok]; ok {
				overlap++
			}
		}
		if overlap > bestOverlap {
			bestOverlap = overlap
			best = name
		}
	}
	if best != "" {
		return best
	}
	return names[0]
}

// matchSectionName finds the first grouped section whose name contains the
// canonical name (case-insensitive). Canonical keyword hits only count when
// the document actually has that section.
func matchSectionName(canonical string, names []string) string {
	target := strings.ToLower(canonical)
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), target) {
			return name
		}
	}
	return ""
}

func nearestSectionByPage(page int, names []string, pages map[string][]int) string {
	best := ""
	bestDistance := math.MaxInt
	for _, name := range names {
		for _, p := range pages[name] {
			if d := abs(page - p); d < bestDistance {
				bestDistance = d
				best = name
			}
		}
	}
	return best
}

func tokenize(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		out[tok] = struct{}{}
	}
	return out
}

func truncateCaption(caption string) string {
	trimmed := strings.TrimSpace(caption)
	runes := []rune(trimmed)
	if len(runes) <= maxCaptionLength {
		return trimmed
	}
	return strings.TrimRight(string(runes[:maxCaptionLength-1]), " ") + "…"
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
