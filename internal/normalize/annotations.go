package normalize

import (
	"strings"

	"github.com/northpages/contentsync/internal/models"
	"github.com/northpages/contentsync/internal/source"
)

// defaultColor is the provider's value for an unstyled run.
const defaultColor = "default"

// backgroundSuffix marks a color value that selects the background slot.
const backgroundSuffix = "_background"

// ExtractAnnotations derives style/position records from an ordered run
// list. The character offset advances by every run's length whether or not
// the run produces an annotation, so spans always partition the full
// concatenated text.
func ExtractAnnotations(runs []source.RichText) []models.Annotation {
	var annotations []models.Annotation
	offset := 0

	for _, run := range runs {
		length := len([]rune(run.PlainText))
		ann := models.Annotation{
			Start:         offset,
			End:           offset + length,
			Bold:          run.Annotations.Bold,
			Italic:        run.Annotations.Italic,
			Strikethrough: run.Annotations.Strikethrough,
			Underline:     run.Annotations.Underline,
			Code:          run.Annotations.Code,
			Link:          run.Href,
		}
		applyColor(&ann, run.Annotations.Color)

		if ann.HasStyle() {
			annotations = append(annotations, ann)
		}
		offset += length
	}

	return annotations
}

// applyColor assigns the run's color to exactly one of the color slots.
// A "<name>_background" value is stripped and stored as BackgroundColor;
// any other non-default value is stored as Color.
func applyColor(ann *models.Annotation, color string) {
	if color == "" || color == defaultColor {
		return
	}
	if stripped, ok := strings.CutSuffix(color, backgroundSuffix); ok {
		ann.BackgroundColor = stripped
		return
	}
	ann.Color = color
}
