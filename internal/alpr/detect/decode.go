package detect

import "github.com/banshee-data/plate.report/internal/alpr"

// outputLayout describes a YOLOv8 head output of shape [1, 4+classes, N]
// or its transpose [1, N, 4+classes]. Each candidate holds cx, cy, w, h in
// network input pixels followed by one score per class.
type outputLayout struct {
	attrs      int // 4 + number of classes
	candidates int
	transposed bool // candidate-major
}

func newOutputLayout(d1, d2 int) outputLayout {
	// Class count is always far smaller than the anchor count.
	if d1 <= d2 {
		return outputLayout{attrs: d1, candidates: d2}
	}
	return outputLayout{attrs: d2, candidates: d1, transposed: true}
}

func (l outputLayout) at(data []float32, attr, cand int) float64 {
	if l.transposed {
		return float64(data[cand*l.attrs+attr])
	}
	return float64(data[attr*l.candidates+cand])
}

// decode extracts every candidate whose best class score reaches threshold.
func decode(data []float32, l outputLayout, threshold float64) []alpr.Detection {
	if l.attrs < 5 || len(data) < l.attrs*l.candidates {
		return nil
	}
	var out []alpr.Detection
	for c := 0; c < l.candidates; c++ {
		bestClass, bestScore := -1, 0.0
		for k := 4; k < l.attrs; k++ {
			if s := l.at(data, k, c); s > bestScore {
				bestClass, bestScore = k-4, s
			}
		}
		if bestClass < 0 || bestScore < threshold {
			continue
		}
		cx, cy := l.at(data, 0, c), l.at(data, 1, c)
		w, h := l.at(data, 2, c), l.at(data, 3, c)
		out = append(out, alpr.Detection{
			Box:     alpr.NewBox(cx-w/2, cy-h/2, cx+w/2, cy+h/2),
			Score:   bestScore,
			ClassID: bestClass,
		})
	}
	return out
}
