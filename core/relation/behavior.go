package relation

import (
	"context"

	"go.uber.org/zap"
)

// Behavior manages the relational attributes of one owner entity across its
// save and delete flow. A Behavior is not safe for concurrent use; create one
// per owner per request.
type Behavior struct {
	descriptors []*Descriptor
	byName      map[string]*Descriptor
	hooks       map[string]Preprocessor
	logger      *zap.Logger

	values   map[string]payload
	rejected *ValidationFailure
	sets     []*WorkingSet
	finished bool
}

// Option configures a Behavior.
type Option func(*Behavior) error

// WithLogger sets the logger used for child mutations and rollbacks.
func WithLogger(l *zap.Logger) Option {
	return func(b *Behavior) error {
		if l != nil {
			b.logger = l
		}
		return nil
	}
}

// WithPreprocessor registers a hook called on each candidate of attribute
// right after it is built.
func WithPreprocessor(attribute string, hook Preprocessor) Option {
	return func(b *Behavior) error {
		if _, ok := b.byName[attribute]; !ok {
			return &ConfigurationError{Attribute: attribute, Reason: "pre-processing hook for an undeclared attribute"}
		}
		if hook == nil {
			return &ConfigurationError{Attribute: attribute, Reason: "pre-processing hook is not callable"}
		}
		b.hooks[attribute] = hook
		return nil
	}
}

// New creates a Behavior for the given relations, in declaration order.
// Topology and hooks are checked here, before any data is loaded.
func New(descriptors []*Descriptor, opts ...Option) (*Behavior, error) {
	b := &Behavior{
		byName: make(map[string]*Descriptor, len(descriptors)),
		hooks:  make(map[string]Preprocessor),
		logger: zap.NewNop(),
		values: make(map[string]payload),
	}

	for _, desc := range descriptors {
		if desc == nil {
			return nil, &ConfigurationError{Reason: "nil descriptor"}
		}
		d := *desc
		if err := d.resolve(); err != nil {
			return nil, err
		}
		if _, dup := b.byName[d.Attribute]; dup {
			return nil, &ConfigurationError{Attribute: d.Attribute, Reason: "declared twice"}
		}
		b.descriptors = append(b.descriptors, &d)
		b.byName[d.Attribute] = &d
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Attributes returns the declared relational attribute names in order.
func (b *Behavior) Attributes() []string {
	out := make([]string, 0, len(b.descriptors))
	for _, d := range b.descriptors {
		out = append(out, d.Attribute)
	}
	return out
}

// Descriptor returns the resolved descriptor of attribute.
func (b *Behavior) Descriptor(attribute string) (*Descriptor, bool) {
	d, ok := b.byName[attribute]
	return d, ok
}

// SetRelationalValue records the submitted value of a relational attribute.
//
// Single relations take a mapping, multiple relations a sequence of mappings
// and many-to-many relations a sequence of related IDs. nil or an empty value
// clears the relation. Unknown attributes are a ConfigurationError; a value of
// the wrong shape is a ValidationFailure that also blocks the next save.
func (b *Behavior) SetRelationalValue(attribute string, raw any) error {
	d, ok := b.byName[attribute]
	if !ok {
		return &ConfigurationError{Attribute: attribute, Reason: "unknown relational attribute"}
	}

	p, ok := normalizePayload(d.Kind(), raw)
	if !ok {
		b.rejected = &ValidationFailure{
			Attribute: attribute,
			Errors:    FieldErrors{attribute: {attribute + " is invalid."}},
		}
		return b.rejected
	}
	b.values[attribute] = p
	return nil
}

// Finished reports whether the last relational save completed.
func (b *Behavior) Finished() bool { return b.finished }

// BeforeSave loads and validates every submitted attribute. It must run
// before the owner is written; a non-nil result blocks the owner's save.
// Configuration, referential and storage errors roll tx back.
func (b *Behavior) BeforeSave(ctx context.Context, store Storage, tx Tx, owner Entity) error {
	b.finished = false
	b.sets = nil

	if b.rejected != nil {
		failure := b.rejected
		b.reset()
		report(owner, failure)
		return failure
	}

	sets := make([]*WorkingSet, 0, len(b.values))
	for _, d := range b.descriptors {
		p, ok := b.values[d.Attribute]
		if !ok {
			continue
		}
		ws := &WorkingSet{Attribute: d.Attribute, Descriptor: d, payload: p}
		if err := b.load(ctx, store, ws, owner); err != nil {
			return b.abort(tx, err)
		}
		sets = append(sets, ws)
	}

	b.sets = sets
	if failure := validate(sets, owner); failure != nil {
		return failure
	}
	return nil
}

// Save validates the owner, runs BeforeSave, writes the owner and runs
// AfterSave, all within tx. The caller commits tx when Save returns nil.
func (b *Behavior) Save(ctx context.Context, store Storage, tx Tx, owner Entity) error {
	if errs := owner.Validate(); len(errs) > 0 {
		failure := &ValidationFailure{Errors: errs}
		report(owner, failure)
		return failure
	}
	if err := b.BeforeSave(ctx, store, tx, owner); err != nil {
		b.reset()
		return err
	}
	if err := store.Save(ctx, owner); err != nil {
		return b.abort(tx, &PersistenceError{Kind: owner.Kind(), Op: "save", Owner: true, Err: err})
	}
	return b.AfterSave(ctx, store, tx, owner)
}

// Plan loads and diffs every submitted attribute without writing anything.
// A validation failure is returned together with the plans.
func (b *Behavior) Plan(ctx context.Context, store Storage, tx Tx, owner Entity) ([]*Plan, error) {
	err := b.BeforeSave(ctx, store, tx, owner)
	if IsFatal(err) {
		return nil, err
	}
	defer b.reset()

	plans := make([]*Plan, 0, len(b.sets))
	for _, ws := range b.sets {
		plans = append(plans, BuildPlan(ws))
	}
	return plans, err
}

// Delete deletes the owner and cascades to every declared relation in tx.
func (b *Behavior) Delete(ctx context.Context, store Storage, tx Tx, owner Entity) error {
	if err := store.Delete(ctx, owner); err != nil {
		return b.abort(tx, &PersistenceError{Kind: owner.Kind(), Op: "delete", Owner: true, Err: err})
	}
	return b.AfterDelete(ctx, store, tx, owner)
}

// abort rolls tx back and returns err.
func (b *Behavior) abort(tx Tx, err error) error {
	b.reset()
	if rbErr := tx.Rollback(); rbErr != nil {
		b.logger.Warn("Rollback failed", zap.Error(rbErr), zap.NamedError("cause", err))
		return err
	}
	b.logger.Warn("Relational changes rolled back", zap.Error(err))
	return err
}

// reset discards the cycle's working sets and submitted values.
func (b *Behavior) reset() {
	b.sets = nil
	b.values = make(map[string]payload)
	b.rejected = nil
}
