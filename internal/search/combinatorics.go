package search

import "github.com/catsched/cats/internal/model"

// permutations returns every ordering of ids. Used for permuting a
// level's ready set (spec §4.3 step 2): "for each permutation of the
// ready set".
func permutations(ids []model.StepID) [][]model.StepID {
	if len(ids) == 0 {
		return [][]model.StepID{{}}
	}
	if len(ids) == 1 {
		return [][]model.StepID{{ids[0]}}
	}
	var out [][]model.StepID
	for i := range ids {
		rest := make([]model.StepID, 0, len(ids)-1)
		rest = append(rest, ids[:i]...)
		rest = append(rest, ids[i+1:]...)
		for _, p := range permutations(rest) {
			perm := append([]model.StepID{ids[i]}, p...)
			out = append(out, perm)
		}
	}
	return out
}

// cartesian returns the Cartesian product of options, one choice per
// position, i.e. the "assignment of eligible resources" of spec §4.3
// step 2 ("Cartesian product of size |eligible|^|ready|, allowing the
// same resource for multiple steps").
func cartesian(options [][]model.ResourceID) [][]model.ResourceID {
	if len(options) == 0 {
		return [][]model.ResourceID{{}}
	}
	rest := cartesian(options[1:])
	var out [][]model.ResourceID
	for _, r := range options[0] {
		for _, tail := range rest {
			combo := make([]model.ResourceID, 0, len(tail)+1)
			combo = append(combo, r)
			combo = append(combo, tail...)
			out = append(out, combo)
		}
	}
	return out
}

// cartesianRepeat returns every length-k sequence drawn from options
// with repetition, used to pick a resource for each of a scaled step's K
// replicas (spec §4.3 step 4: "pick K-1 additional resources, Cartesian
// extension").
func cartesianRepeat(options []model.ResourceID, k int) [][]model.ResourceID {
	repeated := make([][]model.ResourceID, k)
	for i := range repeated {
		repeated[i] = options
	}
	return cartesian(repeated)
}
