// Document evaluation grouping by position within a retriever's document list
// Grouping keeps every position; range checks happen when views are built
package spanattr

// GroupDocumentEvaluations groups evaluations by document position.
// Every evaluation is kept and each group preserves input order.
// Positions are not range-checked here.
func GroupDocumentEvaluations(evals []DocumentEvaluation) map[int][]DocumentEvaluation {
	groups := make(map[int][]DocumentEvaluation)
	for _, e := range evals {
		groups[e.DocumentPosition] = append(groups[e.DocumentPosition], e)
	}
	return groups
}

// splitByPosition groups evaluations for positions in [0, numDocuments) and
// returns the rest, in input order, as unmatched.
func splitByPosition(evals []DocumentEvaluation, numDocuments int) (map[int][]DocumentEvaluation, []DocumentEvaluation) {
	groups := GroupDocumentEvaluations(evals)
	var unmatched []DocumentEvaluation
	for _, e := range evals {
		if e.DocumentPosition < 0 || e.DocumentPosition >= numDocuments {
			unmatched = append(unmatched, e)
			delete(groups, e.DocumentPosition)
		}
	}
	return groups, unmatched
}

// dangerLabels are evaluation labels highlighted as a negative judgement.
var dangerLabels = map[string]bool{
	"irrelevant":   true,
	"unrelated":    true,
	"hallucinated": true,
	"incorrect":    true,
	"toxic":        true,
	"unsafe":       true,
}

// IsDangerLabel reports whether an evaluation label marks a negative judgement.
func IsDangerLabel(label string) bool {
	return dangerLabels[label]
}
