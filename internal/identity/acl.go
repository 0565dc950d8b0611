package identity

import "slices"

// ACL operation names. Subjects listed under an operation may perform it.
const (
	OpReaders = "readers"
	OpWriters = "writers"
	OpOwners  = "owners"
)

// allOps is the evaluation order, kept fixed so OperationsForUser is
// deterministic regardless of how the ACL document was built.
var allOps = []string{OpReaders, OpWriters, OpOwners}

// ACL maps an operation name to the subjects allowed to perform it. A
// subject is either a user id or a group name.
type ACL map[string][]string

// OperationsForUser returns every operation the given user id, or any of the
// given groups, is listed under.
func (a ACL) OperationsForUser(userID string, groups []string) []string {
	var ops []string
	for _, op := range allOps {
		subjects := a[op]
		if len(subjects) == 0 {
			continue
		}
		if slices.Contains(subjects, userID) {
			ops = append(ops, op)
			continue
		}
		for _, g := range groups {
			if slices.Contains(subjects, g) {
				ops = append(ops, op)
				break
			}
		}
	}
	return ops
}

// Grants reports whether OperationsForUser includes any of the given
// operations.
func (a ACL) Grants(userID string, groups []string, ops ...string) bool {
	have := a.OperationsForUser(userID, groups)
	for _, op := range ops {
		if slices.Contains(have, op) {
			return true
		}
	}
	return false
}
