package detection

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// labelOffset keeps the text clear of the crosshair arms.
const labelOffset = 4

// drawLabel writes "x,y" in the lower-right quadrant of the crosshair. Glyphs
// falling outside dst are clipped by the drawer.
func drawLabel(dst *image.Gray, center image.Point, c uint8) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Gray{Y: c}),
		Face: face,
		Dot:  fixed.P(center.X+labelOffset, center.Y+labelOffset+face.Ascent),
	}
	d.DrawString(fmt.Sprintf("%d,%d", center.X, center.Y))
}
