package tracking

import "math"

// Forbidden marks a cost matrix entry that must never be chosen, such as a
// path/detection pair beyond the gating distance.
const Forbidden = 1e18

// HungarianAssign solves the rectangular minimum-cost assignment for a
// rows×cols cost matrix using Kuhn–Munkres with dual potentials, in
// O(n³) for n = max(rows, cols). It returns assign[i] = the column chosen for
// row i, or -1 when row i is left unassigned. Entries >= Forbidden are
// never chosen. The solver maximises the number of allowed pairs first and
// minimises their total cost second.
func HungarianAssign(cost [][]float64) []int {
	rows := len(cost)
	if rows == 0 {
		return nil
	}
	cols := len(cost[0])
	assign := make([]int, rows)
	for i := range assign {
		assign[i] = -1
	}
	if cols == 0 {
		return assign
	}

	// Forbidden and padding cells cost more than every allowed cell combined,
	// so trading one of them for an allowed pair always lowers the total.
	// Using Forbidden itself here would swamp the potentials' precision.
	big := 1.0
	for _, row := range cost {
		for _, c := range row {
			if allowed(c) {
				big += math.Abs(c)
			}
		}
	}

	n := max(rows, cols)
	at := func(i, j int) float64 {
		if i < rows && j < cols && allowed(cost[i][j]) {
			return cost[i][j]
		}
		return big
	}

	// 1-indexed; column 0 is the virtual start of each augmenting path.
	const inf = math.MaxFloat64 / 2
	rowPot := make([]float64, n+1)
	colPot := make([]float64, n+1)
	owner := make([]int, n+1) // owner[j] = row matched to column j
	prevCol := make([]int, n+1)
	slack := make([]float64, n+1)
	visited := make([]bool, n+1)

	for r := 1; r <= n; r++ {
		owner[0] = r
		col := 0
		for j := range slack {
			slack[j] = inf
			visited[j] = false
		}

		for {
			visited[col] = true
			row := owner[col]
			delta, next := inf, -1
			for j := 1; j <= n; j++ {
				if visited[j] {
					continue
				}
				if reduced := at(row-1, j-1) - rowPot[row] - colPot[j]; reduced < slack[j] {
					slack[j] = reduced
					prevCol[j] = col
				}
				if slack[j] < delta {
					delta, next = slack[j], j
				}
			}
			if next < 0 {
				break
			}
			for j := 0; j <= n; j++ {
				if visited[j] {
					rowPot[owner[j]] += delta
					colPot[j] -= delta
				} else {
					slack[j] -= delta
				}
			}
			col = next
			if owner[col] == 0 {
				break
			}
		}

		for col != 0 {
			owner[col] = owner[prevCol[col]]
			col = prevCol[col]
		}
	}

	for j := 1; j <= cols; j++ {
		i := owner[j] - 1
		if i >= 0 && i < rows && allowed(cost[i][j-1]) {
			assign[i] = j - 1
		}
	}
	return assign
}

func allowed(c float64) bool {
	return c < Forbidden && !math.IsNaN(c)
}
