package constraint

import (
	"campustt/pkg/model"
)

// softCost is the weighted sum of the configured penalty terms, clamped at
// zero. Gap and clustering share one weight: an idle period between classes
// is charged for students and faculty alike, so contiguous faculty blocks
// are rewarded by escaping the charge.
func (e *evaluator) softCost(s *model.Schedule) float64 {
	if len(s.Assignments) == 0 {
		return 0
	}

	studentBusy := e.occupancy(s, func(a model.Assignment) []int { return e.m.SectionStudents[a.Section] }, len(e.m.Students))
	facultyBusy := e.occupancy(s, func(a model.Assignment) []int { return []int{a.Faculty} }, len(e.m.Faculty))

	cost := 0.0

	if e.weights.GapPenalty > 0 {
		cost += e.weights.GapPenalty * float64(totalGaps(studentBusy)+totalGaps(facultyBusy))
	}

	if e.weights.ImbalancePenalty > 0 {
		cost += e.weights.ImbalancePenalty * e.loadVariance(s)
	}

	if e.weights.LunchPenalty > 0 && e.weights.LunchEnd > e.weights.LunchStart {
		cost += e.weights.LunchPenalty * float64(blockedLunches(studentBusy, e.weights.LunchStart, e.weights.LunchEnd))
	}

	if e.weights.SelfStudyBonus > 0 {
		cost -= e.weights.SelfStudyBonus * float64(selfStudyDays(studentBusy))
	}

	if e.weights.BreakBonus > 0 {
		cost -= e.weights.BreakBonus * float64(postBlockBreaks(studentBusy))
	}

	if cost < 0 {
		return 0
	}
	return cost
}

// occupancy builds per-entity day/period busy matrices from the schedule.
func (e *evaluator) occupancy(s *model.Schedule, owners func(model.Assignment) []int, count int) [][][]bool {
	busy := make([][][]bool, count)
	for i := range busy {
		busy[i] = make([][]bool, e.m.Grid.Days)
		for d := range busy[i] {
			busy[i][d] = make([]bool, e.m.Grid.PeriodsPerDay)
		}
	}
	for _, a := range s.Assignments {
		// Out-of-grid ranges are the availability check's to report.
		if !a.Slot.Fits(e.m.Grid) {
			continue
		}
		for _, owner := range owners(a) {
			for p := a.Slot.Start; p < a.Slot.End(); p++ {
				busy[owner][a.Slot.Day][p] = true
			}
		}
	}
	return busy
}

// totalGaps counts idle periods strictly between the first and last busy
// period of each entity's day.
func totalGaps(busy [][][]bool) int {
	gaps := 0
	for _, days := range busy {
		for _, periods := range days {
			first, last := -1, -1
			for p, b := range periods {
				if b {
					if first < 0 {
						first = p
					}
					last = p
				}
			}
			for p := first + 1; p > 0 && p < last; p++ {
				if !periods[p] {
					gaps++
				}
			}
		}
	}
	return gaps
}

// blockedLunches counts (student, day) pairs with at least one class and no
// free period left inside the lunch window.
func blockedLunches(busy [][][]bool, start, end int) int {
	count := 0
	for _, days := range busy {
		for _, periods := range days {
			hasClass := false
			for _, b := range periods {
				if b {
					hasClass = true
					break
				}
			}
			freeLunch := false
			for p := start; p < end && p < len(periods); p++ {
				if p >= 0 && !periods[p] {
					freeLunch = true
					break
				}
			}
			if hasClass && !freeLunch {
				count++
			}
		}
	}
	return count
}

// loadVariance is the variance of per-faculty assigned period counts.
func (e *evaluator) loadVariance(s *model.Schedule) float64 {
	if len(e.m.Faculty) == 0 {
		return 0
	}
	loads := make([]float64, len(e.m.Faculty))
	mean := 0.0
	for _, a := range s.Assignments {
		loads[a.Faculty] += float64(a.Slot.Length)
	}
	for _, load := range loads {
		mean += load
	}
	mean /= float64(len(loads))

	variance := 0.0
	for _, load := range loads {
		variance += (load - mean) * (load - mean)
	}
	return variance / float64(len(loads))
}

// selfStudyDays counts (student, day) pairs with at least one class and at
// least one free period left for self-study.
func selfStudyDays(busy [][][]bool) int {
	count := 0
	for _, days := range busy {
		for _, periods := range days {
			hasClass, hasFree := false, false
			for _, b := range periods {
				if b {
					hasClass = true
				} else {
					hasFree = true
				}
			}
			if hasClass && hasFree {
				count++
			}
		}
	}
	return count
}

// postBlockBreaks counts maximal teaching blocks followed immediately by a
// free period within the same day.
func postBlockBreaks(busy [][][]bool) int {
	count := 0
	for _, days := range busy {
		for _, periods := range days {
			for p := 0; p < len(periods)-1; p++ {
				if periods[p] && !periods[p+1] {
					count++
				}
			}
		}
	}
	return count
}
