package interpret

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/fogleman/gg"
)

const minIconSize = 16

type drawFunc func(dc *gg.Context, s float64)

var icons = map[string]drawFunc{
	IconCircle:    drawCircle,
	IconSquare:    drawSquare,
	IconRectangle: drawRectangle,
	IconTriangle:  drawTriangle,
	IconHello:     drawHello,
	IconConfused:  drawConfused,
}

// Icons lists the icon names RenderIcon understands.
func Icons() []string {
	names := make([]string, 0, len(icons))
	for name := range icons {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RenderIcon draws the named icon as a size x size PNG.
func RenderIcon(icon string, size int) ([]byte, error) {
	draw, ok := icons[icon]
	if !ok {
		return nil, fmt.Errorf("unknown icon %q", icon)
	}
	if size < minIconSize {
		return nil, fmt.Errorf("icon size %d below minimum %d", size, minIconSize)
	}

	dc := gg.NewContext(size, size)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	draw(dc, float64(size))

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode icon png: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteIcon renders icon into dir/<icon>.png and returns the file path.
func WriteIcon(dir, icon string, size int) (string, error) {
	data, err := RenderIcon(icon, size)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create icon directory: %w", err)
	}
	path := filepath.Join(dir, icon+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write icon: %w", err)
	}
	return path, nil
}

func drawCircle(dc *gg.Context, s float64) {
	dc.SetHexColor("#1E88E5")
	dc.DrawCircle(s/2, s/2, s*0.4)
	dc.Fill()
}

func drawSquare(dc *gg.Context, s float64) {
	dc.SetHexColor("#43A047")
	dc.DrawRectangle(s*0.15, s*0.15, s*0.7, s*0.7)
	dc.Fill()
}

func drawRectangle(dc *gg.Context, s float64) {
	dc.SetHexColor("#FB8C00")
	dc.DrawRectangle(s*0.1, s*0.28, s*0.8, s*0.44)
	dc.Fill()
}

func drawTriangle(dc *gg.Context, s float64) {
	dc.SetHexColor("#8E24AA")
	// Rotation -90° puts a vertex at the top.
	dc.DrawRegularPolygon(3, s/2, s*0.56, s*0.42, -math.Pi/2)
	dc.Fill()
}

func drawHello(dc *gg.Context, s float64) {
	dc.SetHexColor("#2E7D32")
	dc.SetLineWidth(s * 0.1)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	dc.MoveTo(s*0.2, s*0.52)
	dc.LineTo(s*0.42, s*0.74)
	dc.LineTo(s*0.8, s*0.28)
	dc.Stroke()
}

func drawConfused(dc *gg.Context, s float64) {
	dc.SetHexColor("#C62828")
	dc.SetLineWidth(s * 0.09)
	dc.SetLineCapRound()
	dc.DrawArc(s/2, s*0.34, s*0.18, math.Pi, 2.25*math.Pi)
	dc.LineTo(s/2, s*0.64)
	dc.Stroke()
	dc.DrawCircle(s/2, s*0.82, s*0.055)
	dc.Fill()
}
