package mandelbrot

// escapeRadiusSq is the squared magnitude beyond which an orbit has escaped.
const escapeRadiusSq = 4.0

// Iterate runs the escape-time iteration z ← z² + c for c = re0 + im0·i,
// starting from z = 0.
//
// It returns maxIterations when the orbit stays bounded for the whole budget,
// and otherwise the number of updates performed when |z|² first exceeded 4.
// Iterate is pure, so pixels may be evaluated in any order or in parallel.
func Iterate(re0, im0 float64, maxIterations int) int {
	var x, y float64
	n := 0
	for x*x+y*y <= escapeRadiusSq && n < maxIterations {
		x, y = x*x-y*y+re0, 2*x*y+im0
		n++
	}
	return n
}
