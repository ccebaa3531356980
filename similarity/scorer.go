package similarity

import "github.com/poiesic/obsim/core"

// Scores holds the two component scores of one comparison, each in [0,100].
type Scores struct {
	Operation float64
	Machine   float64
}

// Total returns the mean of the operation and machine scores.
func (s Scores) Total() float64 {
	return (s.Operation + s.Machine) / 2
}

// ScoreFunc scores a normalized query against a normalized reference.
type ScoreFunc func(query, reference core.NormalizedSequence) Scores

var _ ScoreFunc = Score

// Score compares query against reference using best-match search.
// An empty query or reference scores zero on both components.
func Score(query, reference core.NormalizedSequence) Scores {
	if len(query) == 0 || len(reference) == 0 {
		return Scores{}
	}

	refOps := make([]string, len(reference))
	refMachines := make([]string, len(reference))
	for i, pair := range reference {
		refOps[i] = NormalizeText(pair.OperationName)
		refMachines[i] = NormalizeText(pair.MachineName)
	}

	var opSum, machineSum float64
	for _, pair := range query {
		op := NormalizeText(pair.OperationName)
		machine := NormalizeText(pair.MachineName)

		bestOp, bestMachine := 0.0, 0.0
		for i := range reference {
			if bestOp < 100 {
				if v := TextSimilarity(op, refOps[i]); v > bestOp {
					bestOp = v
				}
			}
			if bestMachine == 0 && machine == refMachines[i] {
				bestMachine = 100
			}
			if bestOp == 100 && bestMachine == 100 {
				break
			}
		}
		opSum += bestOp
		machineSum += bestMachine
	}

	n := float64(len(query))
	return Scores{
		Operation: opSum / n,
		Machine:   machineSum / n,
	}
}
