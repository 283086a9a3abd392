// Package render draws board snapshots to raster images and stitches a
// played game into an animated GIF, adapted from renderer.go's
// renderBoardToImage/renderGameToGIF: the same cell-grid drawing (here
// 6x6-pixel cells), FloydSteinberg-dithered palette conversion, and a
// per-frame delay derived from a total duration.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/brensch/tetrisbot/internal/rules"
)

const (
	cellSize    = 6
	sidebarCols = 6 // room for hold + next-queue previews, in board-cell units
	canvasWidth = (rules.Width + sidebarCols) * cellSize
	// two rows of header space above the visible field for combo/b2b text
	headerRows   = 2
	canvasHeight = (rules.VisibleHeight + headerRows) * cellSize
)

var pieceColors = map[rules.Piece]color.RGBA{
	rules.I: {0, 240, 240, 255},
	rules.O: {240, 240, 0, 255},
	rules.T: {160, 0, 240, 255},
	rules.L: {240, 160, 0, 255},
	rules.J: {0, 0, 240, 255},
	rules.S: {0, 240, 0, 255},
	rules.Z: {240, 0, 0, 255},
}

var (
	colorBackground = color.RGBA{0, 0, 0, 255}
	colorStack      = color.RGBA{120, 120, 120, 255}
	colorText       = color.RGBA{255, 255, 255, 255}
)

// Snapshot is everything a single rendered frame needs: the board (its
// settled stack, held piece and queue), the falling piece (nil between
// lock and the next spawn), and the combo/back-to-back indicators. Frame
// draws the first three queued pieces top to bottom in the sidebar.
type Snapshot struct {
	Board   *rules.Board
	Falling *rules.FallingPiece
	Combo   int
	B2B     bool
}

// Frame renders one snapshot to an RGBA image plus the palette it used,
// the shape image/gif needs for paletted conversion.
func Frame(s Snapshot) (*image.RGBA, []color.Color) {
	img := image.NewRGBA(image.Rect(0, 0, canvasWidth, canvasHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{colorBackground}, image.Point{}, draw.Src)

	palette := []color.Color{colorBackground, colorStack, colorText}
	for _, c := range pieceColors {
		palette = append(palette, c)
	}

	fieldTop := headerRows * cellSize
	for y := 0; y < rules.VisibleHeight; y++ {
		for x := 0; x < rules.Width; x++ {
			if s.Board.Occupied(x, y) {
				drawCell(img, x*cellSize, fieldTop+flipY(y)*cellSize, colorStack)
			}
		}
	}

	if s.Falling != nil {
		c := pieceColors[s.Falling.Kind]
		for _, cell := range s.Falling.Cells() {
			if cell.Y < 0 || cell.Y >= rules.VisibleHeight {
				continue
			}
			drawCell(img, cell.X*cellSize, fieldTop+flipY(cell.Y)*cellSize, c)
		}
	}

	sidebarX := rules.Width*cellSize + cellSize
	label(img, sidebarX, cellSize, "HOLD", colorText)
	if s.Board.Hold != nil {
		drawPiecePreview(img, sidebarX, 2*cellSize, *s.Board.Hold)
	}
	label(img, sidebarX, 6*cellSize, "NEXT", colorText)
	for i, p := range s.Board.Queue {
		if i >= 3 {
			break
		}
		drawPiecePreview(img, sidebarX, (7+2*i)*cellSize, p)
	}

	if s.Combo > 0 {
		label(img, cellSize, cellSize, fmt.Sprintf("x%d", s.Combo), colorText)
	}
	if s.B2B {
		label(img, cellSize*4, cellSize, "B2B", colorText)
	}

	return img, palette
}

func flipY(y int) int {
	return rules.VisibleHeight - 1 - y
}

func drawCell(img *image.RGBA, x, y int, c color.RGBA) {
	for i := 0; i < cellSize-1; i++ {
		for j := 0; j < cellSize-1; j++ {
			if x+i < canvasWidth && y+j < canvasHeight && x+i >= 0 && y+j >= 0 {
				img.Set(x+i, y+j, c)
			}
		}
	}
}

func drawPiecePreview(img *image.RGBA, x, y int, p rules.Piece) {
	drawCell(img, x, y, pieceColors[p])
}

func label(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// Recorder accumulates rendered frames for one played game and encodes
// them into a single animated GIF.
type Recorder struct {
	snapshots []Snapshot
}

// Add appends one tick's snapshot.
func (r *Recorder) Add(s Snapshot) {
	r.snapshots = append(r.snapshots, s)
}

// EncodeGIF stitches every recorded snapshot into an animated GIF. Every
// frame but the last gets totalMillis spread evenly over the frame count,
// capped at maxDelayMillis and at least 10ms; the last frame is always
// held for 2 seconds, so playback can run past totalMillis.
func (r *Recorder) EncodeGIF(totalMillis, maxDelayMillis int) ([]byte, error) {
	if len(r.snapshots) == 0 {
		return nil, fmt.Errorf("render: no frames recorded")
	}

	delay := totalMillis / len(r.snapshots) / 10
	maxDelay := maxDelayMillis / 10
	if delay > maxDelay {
		delay = maxDelay
	}
	if delay < 1 {
		delay = 1
	}

	var images []*image.Paletted
	var delays []int
	for i, snap := range r.snapshots {
		img, palette := Frame(snap)
		paletted := image.NewPaletted(img.Bounds(), palette)
		draw.FloydSteinberg.Draw(paletted, img.Bounds(), img, image.Point{})
		images = append(images, paletted)
		if i == len(r.snapshots)-1 {
			delays = append(delays, 200)
		} else {
			delays = append(delays, delay)
		}
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, &gif.GIF{Image: images, Delay: delays}); err != nil {
		return nil, fmt.Errorf("render: encode gif: %w", err)
	}
	return buf.Bytes(), nil
}
