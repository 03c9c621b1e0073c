package dental

import "sort"

// PartitionChart splits a chart into the upper row (ids 1-16) and the lower
// row (ids 17-32), each ascending by id. The split follows the rendering rows,
// not the quadrants.
func PartitionChart(teeth []Tooth) (upper, lower []Tooth) {
	for _, t := range teeth {
		switch {
		case t.ID >= 1 && t.ID <= 16:
			upper = append(upper, t)
		case t.ID >= 17 && t.ID <= 32:
			lower = append(lower, t)
		}
	}
	sort.Slice(upper, func(i, j int) bool { return upper[i].ID < upper[j].ID })
	sort.Slice(lower, func(i, j int) bool { return lower[i].ID < lower[j].ID })
	return upper, lower
}

// StatusCounts tallies the chart by status.
func StatusCounts(teeth []Tooth) map[ToothStatus]int {
	counts := make(map[ToothStatus]int, len(AllStatuses))
	for _, t := range teeth {
		counts[t.Status]++
	}
	return counts
}

// TreatmentsForTooth returns the treatments that name toothID, in input order.
func TreatmentsForTooth(treatments []Treatment, toothID int) []Treatment {
	var out []Treatment
	for _, t := range treatments {
		for _, id := range t.ToothIDs {
			if id == toothID {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
