package alpr

import "sort"

// SuppressOverlaps performs greedy non-maximum suppression: detections are
// visited in descending score order and any detection whose IoU with an
// already kept one exceeds threshold is dropped. Suppression is applied per
// class. The survivors are returned in descending score order.
func SuppressOverlaps(dets []Detection, threshold float64) []Detection {
	if len(dets) == 0 {
		return nil
	}
	order := make([]int, len(dets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dets[order[a]].Score > dets[order[b]].Score
	})

	kept := make([]Detection, 0, len(dets))
	for _, idx := range order {
		d := dets[idx]
		suppressed := false
		for _, k := range kept {
			if k.ClassID == d.ClassID && k.Box.IoU(d.Box) > threshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, d)
		}
	}
	return kept
}

// FilterClasses keeps detections whose class id is in classes, preserving
// input order. A nil or empty class set keeps nothing.
func FilterClasses(dets []Detection, classes map[int]struct{}) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if _, ok := classes[d.ClassID]; ok {
			out = append(out, d)
		}
	}
	return out
}

// ClassSet builds a lookup set from class ids.
func ClassSet(ids []int) map[int]struct{} {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
