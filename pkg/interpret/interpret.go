// Package interpret maps hello and shapes outcome strings to presentation:
// a category, a status line and an icon name.
package interpret

import (
	"fmt"
	"strings"
)

// Category is the presentation bucket for an outcome.
type Category string

const (
	Circle       Category = "circle"
	Square       Category = "square"
	Rectangle    Category = "rectangle"
	Triangle     Category = "triangle"
	Unrecognized Category = "unrecognized"

	// Hello categories.
	Hello    Category = "hello"
	Confused Category = "confused"
)

// Icon names match the image assets of the demo UI.
const (
	IconHello     = "hello"
	IconConfused  = "confused"
	IconCircle    = "circle"
	IconSquare    = "square"
	IconRectangle = "rectangle"
	IconTriangle  = "triangle"
)

const helloSuccess = "success"

var shapeCategories = []Category{Circle, Square, Rectangle, Triangle}

// Status is what a UI shows for one outcome.
type Status struct {
	Category Category
	Text     string
	Icon     string
	OK       bool
}

// ClassifyShape matches s case-insensitively against the known shapes.
func ClassifyShape(s string) Category {
	for _, c := range shapeCategories {
		if strings.EqualFold(s, string(c)) {
			return c
		}
	}
	return Unrecognized
}

// ClassifyHello reports whether s is exactly "success". Matching is case-sensitive.
func ClassifyHello(s string) bool {
	return s == helloSuccess
}

// ShapeStatus builds the status for a shapes outcome.
func ShapeStatus(s string) Status {
	c := ClassifyShape(s)
	if c == Unrecognized {
		return Status{
			Category: Unrecognized,
			Text:     "Shapes call failed " + s,
			Icon:     IconConfused,
		}
	}
	return Status{
		Category: c,
		Text:     fmt.Sprintf("Shapes call successful (%s)", c),
		Icon:     string(c),
		OK:       true,
	}
}

// HelloStatus builds the status for a hello outcome.
func HelloStatus(s string) Status {
	if ClassifyHello(s) {
		return Status{Category: Hello, Text: "Hello call successful", Icon: IconHello, OK: true}
	}
	return Status{Category: Confused, Text: "Hello call failed", Icon: IconConfused}
}
