package relation

// validate runs every new candidate's own rules. Errors on columns copied
// from the owner are dropped; the first attribute with a remaining error
// stops validation and is reported on the owner.
func validate(sets []*WorkingSet, owner Entity) *ValidationFailure {
	for _, ws := range sets {
		suppressed := make(map[string]struct{})
		for _, col := range ws.LinkColumns() {
			suppressed[col] = struct{}{}
		}

		for _, e := range ws.NewEntities {
			if !e.IsNewRecord() {
				continue
			}
			errs := e.Validate()
			if len(errs) == 0 {
				continue
			}

			remaining := make(FieldErrors)
			for field, msgs := range errs {
				if _, skip := suppressed[field]; skip || len(msgs) == 0 {
					continue
				}
				remaining[field] = msgs
			}
			if len(remaining) == 0 {
				continue
			}

			failure := &ValidationFailure{Attribute: ws.Attribute, Errors: remaining}
			report(owner, failure)
			return failure
		}
	}
	return nil
}

// report attaches a failure to the owner's error list when it keeps one.
func report(owner Entity, failure *ValidationFailure) {
	collector, ok := owner.(ErrorCollector)
	if !ok {
		return
	}
	attribute := failure.Attribute
	if attribute == "" {
		for field, msgs := range failure.Errors {
			collector.AddError(field, msgs...)
		}
		return
	}
	collector.AddError(attribute, failure.Messages()...)
}
