package algo

import "errors"

// RoundRobin distributes series indices across workers: series j goes to
// worker j mod workers. Each worker's list is ascending.
//
// Parameters:
//   - numSeries: number of series to distribute
//   - workers: size of the worker group
//
// Returns:
//   - [][]int: owned series per worker rank
//   - error: when there are no workers
func RoundRobin(numSeries, workers int) ([][]int, error) {
	if workers <= 0 {
		return nil, errors.New("no workers available for assignment")
	}
	owned := make([][]int, workers)
	for j := range numSeries {
		owned[j%workers] = append(owned[j%workers], j)
	}
	return owned, nil
}

// Owner returns the rank owning series j.
func Owner(j, workers int) int {
	return j % workers
}
