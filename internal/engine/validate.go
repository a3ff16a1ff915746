package engine

// Validate applies the bounds and ascending rules to a proposed weight.
// A nil return is acceptance; rejections are *ValidationError with a reason code.
func Validate(a Athlete, lift LiftType, proposed int, ledger *Ledger) error {
	if err := checkBounds(proposed); err != nil {
		return err
	}
	if best := ledger.BestGood(a.ID, lift); best > 0 && proposed <= best {
		return rejected(CodeNotAscending, "%d kg must exceed best good %s of %d kg", proposed, lift, best)
	}
	return nil
}

// ValidateDeclaration checks a declaration for slot number: the weight rules
// plus the cap of three live attempts per lift.
func ValidateDeclaration(a Athlete, lift LiftType, number, proposed int, ledger *Ledger) error {
	if err := checkSlot(lift, number); err != nil {
		return err
	}
	if err := Validate(a, lift, proposed, ledger); err != nil {
		return err
	}
	if err := checkPendingOrder(a.ID, lift, number, proposed, ledger); err != nil {
		return err
	}
	if _, exists := ledger.Lookup(a.ID, lift, number); !exists && ledger.UsedAttempts(a.ID, lift) >= MaxAttempts {
		return rejected(CodeQuotaExceeded, "%s already has %d %s attempts", a.ID, MaxAttempts, lift)
	}
	return nil
}

// ValidateWeightChange checks a formal change request against the slot's
// current weight. The slot must be pending, or undeclared with an implied
// weight. The new weight must be at least 1 kg heavier and the athlete may
// make at most MaxWeightChanges requests per lift.
func ValidateWeightChange(a Athlete, lift LiftType, number, proposed int, ledger *Ledger) error {
	if err := checkSlot(lift, number); err != nil {
		return err
	}
	current := 0
	if att, ok := ledger.Lookup(a.ID, lift, number); ok {
		if att.Result != ResultPending {
			return invalidState("attempt %s is %s, weight can no longer change", att.ID, att.Result)
		}
		current = att.Weight
	} else {
		next, weight, ok := impliedAttempt(a, lift, ledger)
		if !ok || next != number {
			return invalidState("no declaration for %s attempt %d", lift, number)
		}
		current = weight
	}
	if proposed < current+1 {
		return rejected(CodeBelowMinimum, "change to %d kg must be at least %d kg", proposed, current+1)
	}
	if used := ledger.ChangeCount(a.ID, lift); used >= MaxWeightChanges {
		return rejected(CodeQuotaExceeded, "%s already used %d %s weight changes", a.ID, used, lift)
	}
	if err := checkPendingOrder(a.ID, lift, number, proposed, ledger); err != nil {
		return err
	}
	return Validate(a, lift, proposed, ledger)
}

// checkPendingOrder keeps pending slots of one lift strictly ascending by
// attempt number, so judging an earlier slot good never leaves a lighter
// later slot to be called.
func checkPendingOrder(athleteID string, lift LiftType, number, proposed int, ledger *Ledger) error {
	for n := 1; n <= MaxAttempts; n++ {
		if n == number {
			continue
		}
		att, ok := ledger.Lookup(athleteID, lift, n)
		if !ok || att.Result != ResultPending {
			continue
		}
		if n < number && proposed <= att.Weight {
			return rejected(CodeNotAscending, "%d kg must exceed pending %s attempt %d of %d kg", proposed, lift, n, att.Weight)
		}
		if n > number && proposed >= att.Weight {
			return rejected(CodeNotAscending, "%d kg must be below pending %s attempt %d of %d kg", proposed, lift, n, att.Weight)
		}
	}
	return nil
}
