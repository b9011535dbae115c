package relation

import "relsync/core/utils"

// ActionType represents the type of a planned child mutation.
type ActionType string

const (
	// ActionInsert persists a new child entity.
	ActionInsert ActionType = "insert"
	// ActionDelete deletes an obsolete child entity.
	ActionDelete ActionType = "delete"
	// ActionInsertRow inserts a join table row.
	ActionInsertRow ActionType = "insert_row"
	// ActionDeleteRow deletes a join table row.
	ActionDeleteRow ActionType = "delete_row"
	// ActionRelink updates the owner's link fields for a single relation.
	ActionRelink ActionType = "relink"
)

// Plan is the reconciliation plan of one relational attribute.
type Plan struct {
	// Attribute is the relational attribute the plan belongs to.
	Attribute string `json:"attribute"`

	// Kind is the relation topology.
	Kind Kind `json:"-"`

	// Inserts are desired entities with no structural match among existing ones.
	Inserts []Entity `json:"-"`

	// Deletes are existing entities with no structural match among desired ones.
	Deletes []Entity `json:"-"`

	// Unchanged are desired entities that already exist.
	Unchanged []Entity `json:"-"`

	// InsertRows are desired join rows not found among existing rows.
	InsertRows []Row `json:"insert_rows,omitempty"`

	// DeleteRows are existing join rows no longer desired.
	DeleteRows []Row `json:"delete_rows,omitempty"`

	// Relink is set for single relations, whose owner link fields follow the child.
	Relink bool `json:"relink"`

	// Summary provides aggregate counts.
	Summary PlanSummary `json:"summary"`
}

// PlanSummary provides aggregate counts for a plan.
type PlanSummary struct {
	Inserts   int `json:"inserts"`
	Deletes   int `json:"deletes"`
	Unchanged int `json:"unchanged"`
}

// Empty reports whether the plan writes nothing to child storage.
func (p *Plan) Empty() bool {
	return p.Summary.Inserts == 0 && p.Summary.Deletes == 0
}

// BuildPlan diffs a loaded working set.
func BuildPlan(ws *WorkingSet) *Plan {
	plan := &Plan{
		Attribute: ws.Attribute,
		Kind:      ws.Descriptor.Kind(),
		Relink:    ws.Descriptor.Kind() == KindSingle,
	}

	if ws.Descriptor.Kind() == KindViaTable {
		for _, row := range ws.NewRows {
			if ExistingRow(row, ws.OldRows, ws.JunctionColumn) {
				plan.Summary.Unchanged++
				continue
			}
			plan.InsertRows = append(plan.InsertRows, row)
		}
		for _, row := range ws.OldRows {
			if ObsoleteRow(row, ws.NewRows, ws.JunctionColumn) {
				plan.DeleteRows = append(plan.DeleteRows, row)
			}
		}
		plan.Summary.Inserts = len(plan.InsertRows)
		plan.Summary.Deletes = len(plan.DeleteRows)
		return plan
	}

	for _, e := range ws.NewEntities {
		if ExistsAlready(e, ws.OldEntities) || !e.IsNewRecord() {
			plan.Unchanged = append(plan.Unchanged, e)
			continue
		}
		plan.Inserts = append(plan.Inserts, e)
	}
	for _, e := range ws.OldEntities {
		if IsObsolete(e, ws.NewEntities) {
			plan.Deletes = append(plan.Deletes, e)
		}
	}
	plan.Summary.Inserts = len(plan.Inserts)
	plan.Summary.Deletes = len(plan.Deletes)
	plan.Summary.Unchanged = len(plan.Unchanged)
	return plan
}

// ExistsAlready reports whether old holds an entity structurally equal to e,
// primary keys excluded.
func ExistsAlready(e Entity, old []Entity) bool {
	return findEqual(e, old) != nil
}

// IsObsolete reports whether no entity of desired is structurally equal to e,
// primary keys excluded.
func IsObsolete(e Entity, desired []Entity) bool {
	return findEqual(e, desired) == nil
}

// ExistingRow reports whether old holds a row equal to row, junction column
// excluded.
func ExistingRow(row Row, old []Row, junctionColumn string) bool {
	for _, o := range old {
		if sameAttributes(row, o, junctionColumn) {
			return true
		}
	}
	return false
}

// ObsoleteRow reports whether no row of desired equals row, junction column
// excluded.
func ObsoleteRow(row Row, desired []Row, junctionColumn string) bool {
	return !ExistingRow(row, desired, junctionColumn)
}

// findEqual returns the first member of set structurally equal to e.
func findEqual(e Entity, set []Entity) Entity {
	attrs := e.Attributes()
	for _, candidate := range set {
		if sameAttributes(attrs, candidate.Attributes(), e.PrimaryKeyField(), candidate.PrimaryKeyField()) {
			return candidate
		}
	}
	return nil
}

// sameAttributes compares two attribute maps, skipping the excluded columns on
// both sides. The remaining keys must match and their values be loosely equal.
func sameAttributes(a, b map[string]any, exclude ...string) bool {
	skip := func(k string) bool {
		for _, x := range exclude {
			if k == x {
				return true
			}
		}
		return false
	}

	n := 0
	for k, av := range a {
		if skip(k) {
			continue
		}
		bv, ok := b[k]
		if !ok || !utils.LooseEqual(av, bv) {
			return false
		}
		n++
	}
	for k := range b {
		if !skip(k) {
			n--
		}
	}
	return n == 0
}
