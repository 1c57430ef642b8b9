// Package paper describes physical page formats shared by the renderer,
// rasterizer and page composer. All sizes are millimetres, already oriented.
package paper

import "strings"

type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

type Format struct {
	Name        string
	WidthMM     float64
	HeightMM    float64
	Orientation Orientation
}

var (
	CreditCard = Format{Name: "CR80", WidthMM: 85.6, HeightMM: 54, Orientation: Landscape}
	A4         = Format{Name: "A4", WidthMM: 210, HeightMM: 297, Orientation: Portrait}
	A4Land     = Format{Name: "A4", WidthMM: 297, HeightMM: 210, Orientation: Landscape}
	A5         = Format{Name: "A5", WidthMM: 148, HeightMM: 210, Orientation: Portrait}
	A5Land     = Format{Name: "A5", WidthMM: 210, HeightMM: 148, Orientation: Landscape}
)

// Spread: две страницы бок о бок (лицевая слева, оборот справа).
func (f Format) Spread() Format {
	return Format{
		Name:        f.Name + "-spread",
		WidthMM:     f.WidthMM * 2,
		HeightMM:    f.HeightMM,
		Orientation: f.Orientation,
	}
}

func (f Format) IsSpread() bool { return strings.HasSuffix(f.Name, "-spread") }

// PixelSize: размер в пикселях при заданной плотности.
func (f Format) PixelSize(dpi float64) (int, int) {
	const mmPerInch = 25.4
	return int(f.WidthMM/mmPerInch*dpi + 0.5), int(f.HeightMM/mmPerInch*dpi + 0.5)
}
