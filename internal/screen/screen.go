// Package screen implements a read-only WxH character grid projection
// of video memory.
package screen

import "github.com/KTStephano/gvm16/internal/memory"

// View is a read-only projection of a Memory's video range as a
// width x height character grid.
type View struct {
	mem    *memory.Memory
	width  int
	height int
}

// NewView constructs a View over mem with the given grid dimensions.
// width*height need not equal the video range length; cells beyond the
// video range render as a space.
func NewView(mem *memory.Memory, width, height int) *View {
	return &View{mem: mem, width: width, height: height}
}

// Width returns the configured grid width.
func (v *View) Width() int { return v.width }

// Height returns the configured grid height.
func (v *View) Height() int { return v.height }

// Rune returns the character at (row, col), or a space if that cell
// falls outside the video range or is unwritten (holds 0).
func (v *View) Rune(row, col int) rune {
	if row < 0 || row >= v.height || col < 0 || col >= v.width {
		return ' '
	}
	return cellRune(v.mem.ReadVideoMemory(), v.width, row, col)
}

// String renders the full grid row-major, left-to-right then
// top-to-bottom, one line per row.
func (v *View) String() string {
	cells := v.mem.ReadVideoMemory()
	out := make([]byte, 0, (v.width+1)*v.height)
	for row := 0; row < v.height; row++ {
		for col := 0; col < v.width; col++ {
			out = append(out, byte(cellRune(cells, v.width, row, col)))
		}
		out = append(out, '\n')
	}
	return string(out)
}

func cellRune(cells []int16, width, row, col int) rune {
	i := row*width + col
	if i < 0 || i >= len(cells) {
		return ' '
	}
	c := cells[i]
	if c <= 0 || c > 255 {
		return ' '
	}
	return rune(c)
}
