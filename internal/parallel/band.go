package parallel

// DefaultBandHeight is the number of rows per band when none is configured.
const DefaultBandHeight = 16

// Band is the half-open row range [Y0, Y1) of a frame.
type Band struct {
	Y0, Y1 int
}

// Rows returns the number of rows in the band.
func (b Band) Rows() int {
	return b.Y1 - b.Y0
}

// Bands splits rows into consecutive bands of at most height rows.
// The last band takes the remainder. A non-positive height uses
// DefaultBandHeight; a non-positive row count yields no bands.
func Bands(rows, height int) []Band {
	if rows <= 0 {
		return nil
	}
	if height <= 0 {
		height = DefaultBandHeight
	}
	out := make([]Band, 0, (rows+height-1)/height)
	for y := 0; y < rows; y += height {
		out = append(out, Band{Y0: y, Y1: min(y+height, rows)})
	}
	return out
}
