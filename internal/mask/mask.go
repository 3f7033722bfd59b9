package mask

// Mask is an immutable binary classification of an image, one bit per pixel.
// Cells are stored row-major in a single backing slice.
type Mask struct {
	width  int
	height int
	bits   []uint8
}

// Predicate decides whether a pixel belongs to the mask foreground.
type Predicate func(r uint8, g uint8, b uint8, a uint8) bool

// ZeroRed selects pixels whose red channel is exactly zero. Green, blue and
// alpha are ignored.
func ZeroRed(r uint8, _ uint8, _ uint8, _ uint8) bool {
	return r == 0
}

func newMask(width int, height int) Mask {
	return Mask{
		width:  width,
		height: height,
		bits:   make([]uint8, width*height),
	}
}

func (m Mask) Width() int {
	return m.width
}

func (m Mask) Height() int {
	return m.height
}

func (m Mask) Empty() bool {
	return m.width == 0 || m.height == 0
}

// At returns the cell at (x, y). It panics when the coordinate is out of range.
func (m Mask) At(x int, y int) uint8 {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		panic("mask: coordinate out of range")
	}
	return m.bits[y*m.width+x]
}

// Build classifies every pixel of buffer with ZeroRed.
func Build(buffer PixelBuffer) Mask {
	return BuildWith(buffer, ZeroRed)
}

func BuildWith(buffer PixelBuffer, predicate Predicate) Mask {
	m := newMask(buffer.Width, buffer.Height)
	for y := 0; y < buffer.Height; y++ {
		for x := 0; x < buffer.Width; x++ {
			offset := buffer.offset(x, y)
			if predicate(buffer.Pix[offset], buffer.Pix[offset+1], buffer.Pix[offset+2], buffer.Pix[offset+3]) {
				m.bits[y*m.width+x] = 1
			}
		}
	}
	return m
}
