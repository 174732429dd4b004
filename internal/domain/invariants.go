package domain

// DepositCopyConsistent enforces spec.md §3 invariant (ii): a Deposit whose
// RepositoryCopy is "complete" must itself be "accepted".
func DepositCopyConsistent(d Deposit, copy *RepositoryCopy) bool {
	if copy == nil {
		return true
	}

	if copy.CopyStatus == CopyComplete {
		return d.Status == DepositAccepted
	}

	return true
}

// DepositSubmittedRequiresProbeOrCopy enforces spec.md §3 invariant (iii):
// a Deposit with no status-probe URI and no RepositoryCopy cannot be
// "submitted".
func DepositSubmittedRequiresProbeOrCopy(d Deposit) bool {
	if d.Status != DepositSubmitted {
		return true
	}

	return d.HasStatusProbe() || d.RepositoryCopyID != ""
}

// SubmissionAggregateComplete enforces spec.md §3 invariant (iv): a
// Submission marked aggregated-status "complete" implies every one of its
// Deposits is terminal.
func SubmissionAggregateComplete(s Submission, deposits []Deposit) bool {
	if s.AggregatedStatus != "complete" {
		return true
	}

	for _, d := range deposits {
		if !d.Status.IsTerminal() {
			return false
		}
	}

	return true
}

// AtMostOneActiveDeposit enforces spec.md §3 invariant (i, implicit) and
// §8's testable property: for a given (Submission, Repository) pair, the
// number of Deposits with status != failed is at most one.
func AtMostOneActiveDeposit(deposits []Deposit) bool {
	seen := make(map[string]bool)

	for _, d := range deposits {
		if d.Status == DepositFailed {
			continue
		}

		key := d.SubmissionID + "|" + d.RepositoryID

		if seen[key] {
			return false
		}

		seen[key] = true
	}

	return true
}
