package mask

// FromBits builds a mask from rows of cells, rows[y][x]. Any non-zero cell is
// stored as 1. Rows shorter than the first one are padded with 0.
func FromBits(rows [][]uint8) Mask {
	if len(rows) == 0 {
		return Mask{}
	}
	m := newMask(len(rows[0]), len(rows))
	for y, row := range rows {
		for x := 0; x < m.width && x < len(row); x++ {
			if row[x] != 0 {
				m.bits[y*m.width+x] = 1
			}
		}
	}
	return m
}

func (m Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		n += int(b)
	}
	return n
}

func (m Mask) Equal(o Mask) bool {
	if m.width != o.width || m.height != o.height {
		return false
	}
	for i := range m.bits {
		if m.bits[i] != o.bits[i] {
			return false
		}
	}
	return true
}
