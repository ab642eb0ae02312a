// Package resolver expands the semantic references of a filter intent into
// concrete conditions.
//
// Terms are trusted by tier. State names (tier A) expand silently. Regions
// and business predicates (tier B) expand but hold the result at
// NEEDS_CONFIRMATION until a human confirms that exact term. Unknown
// phrases (tier C) are dropped and reported with suggestions.
//
// Every RESOLVED or NEEDS_CONFIRMATION result carries a signed token bound
// to the canonical tree, which the compiler requires.
package resolver

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/semfilter/internal/canonical"
	"github.com/roach88/semfilter/internal/dictionary"
	"github.com/roach88/semfilter/internal/filterir"
	"github.com/roach88/semfilter/internal/token"
)

// Resolver turns intents into resolved specs. A Resolver holds no mutable
// state and is safe for concurrent use.
type Resolver struct {
	dict   *dictionary.Dictionary
	signer *token.Signer
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Resolver over dict that mints tokens with signer.
func New(dict *dictionary.Dictionary, signer *token.Signer, opts ...Option) *Resolver {
	r := &Resolver{
		dict:   dict,
		signer: signer,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dictionary returns the dictionary the resolver expands terms with.
func (r *Resolver) Dictionary() *dictionary.Dictionary {
	return r.dict
}

// resolution is the per-call accumulator threaded through the walk.
type resolution struct {
	schema     filterir.Schema
	confirmed  map[string]bool // normalized terms
	status     filterir.Status
	pending    []filterir.PendingConfirmation
	seen       map[string]bool // normalized pending terms
	unresolved []filterir.UnresolvedTerm
}

// Resolve expands every semantic reference in intent against schema.
//
// Business-level ambiguity is reported through the returned spec's Status.
// Structural and schema violations (unknown column, bad arity, a business
// predicate matching zero or several columns) return a *filterir.Error and
// no spec.
//
// confirmations are prior human approvals. One counts only when its token
// is a valid NEEDS_CONFIRMATION token for this schema and dictionary
// version, and only for the terms it lists.
func (r *Resolver) Resolve(intent filterir.Intent, schema filterir.Schema, confirmations []filterir.Confirmation) (*filterir.ResolvedSpec, error) {
	if intent.SchemaSignature != "" && intent.SchemaSignature != schema.Signature {
		return nil, filterir.Errorf(filterir.ErrCodeSchemaChanged,
			"intent was built for schema %q, current schema is %q", intent.SchemaSignature, schema.Signature)
	}

	res := &resolution{
		schema:    schema,
		confirmed: r.confirmedTerms(schema, confirmations),
		status:    filterir.StatusResolved,
		seen:      make(map[string]bool),
	}

	root, err := r.resolveGroup(res, intent.Root, 0)
	if err != nil {
		return nil, err
	}
	root = canonical.Group(root)
	res.sortTerms()

	spec := &filterir.ResolvedSpec{
		Status:               res.status,
		Root:                 root,
		Explanation:          explain(root, res),
		PendingConfirmations: res.pending,
		UnresolvedTerms:      res.unresolved,
		SchemaSignature:      schema.Signature,
		CanonicalDictVersion: r.dict.Version(),
	}

	if res.status != filterir.StatusUnresolved {
		hash, err := canonical.Hash(root)
		if err != nil {
			return nil, err
		}
		tok, payload, err := r.signer.Mint(token.Payload{
			SchemaSignature:      schema.Signature,
			CanonicalDictVersion: r.dict.Version(),
			ResolvedSpecHash:     hash,
			ResolutionStatus:     res.status,
		})
		if err != nil {
			return nil, fmt.Errorf("mint resolution token: %w", err)
		}
		spec.ResolutionToken = tok
		r.logger.Debug("minted resolution token",
			"status", res.status,
			"spec_hash", hash,
			"expires_at", payload.Expiry())
	}

	r.logger.Debug("resolved intent",
		"status", spec.Status,
		"pending", len(spec.PendingConfirmations),
		"unresolved", len(spec.UnresolvedTerms))
	return spec, nil
}

// confirmedTerms collects the normalized terms covered by valid
// confirmations. Invalid confirmations are logged and ignored.
func (r *Resolver) confirmedTerms(schema filterir.Schema, confirmations []filterir.Confirmation) map[string]bool {
	confirmed := make(map[string]bool)
	want := token.Expectation{
		SchemaSignature: schema.Signature,
		DictVersion:     r.dict.Version(),
		Status:          filterir.StatusNeedsConfirmation,
	}
	for _, c := range confirmations {
		if _, err := r.signer.Verify(c.Token, want); err != nil {
			r.logger.Warn("ignoring confirmation",
				"reason", filterir.ReasonOf(err),
				"terms", c.Terms)
			continue
		}
		for _, term := range c.Terms {
			confirmed[dictionary.NormalizeTerm(term)] = true
		}
	}
	return confirmed
}

func (r *Resolver) resolveGroup(res *resolution, g filterir.Group, depth int) (filterir.Group, error) {
	if depth > filterir.MaxDepth {
		return filterir.Group{}, filterir.Errorf(filterir.ErrCodeStructuralLimitExceeded,
			"nesting depth %d exceeds maximum %d", depth, filterir.MaxDepth)
	}
	if !g.Logic.Valid() {
		return filterir.Group{}, filterir.Errorf(filterir.ErrCodeInvalidOperator,
			"group logic %q is not AND or OR", g.Logic)
	}

	out := filterir.Group{Logic: g.Logic, Conditions: make([]filterir.Node, 0, len(g.Conditions))}
	for _, child := range g.Conditions {
		var (
			resolved filterir.Node
			err      error
		)
		switch c := child.(type) {
		case filterir.Condition:
			resolved, err = checkCondition(res.schema, c)
		case *filterir.Condition:
			resolved, err = checkCondition(res.schema, *c)
		case filterir.SemanticRef:
			resolved, err = r.resolveRef(res, c)
		case *filterir.SemanticRef:
			resolved, err = r.resolveRef(res, *c)
		case filterir.Group:
			resolved, err = r.resolveGroup(res, c, depth+1)
		case *filterir.Group:
			resolved, err = r.resolveGroup(res, *c, depth+1)
		default:
			err = fmt.Errorf("resolver: unexpected node type %T", child)
		}
		if err != nil {
			return filterir.Group{}, err
		}
		if resolved != nil {
			out.Conditions = append(out.Conditions, resolved)
		}
	}
	return out, nil
}

// checkCondition validates a condition the intent spelled out directly.
func checkCondition(schema filterir.Schema, c filterir.Condition) (filterir.Node, error) {
	if !schema.Has(c.Column) {
		return nil, filterir.Errorf(filterir.ErrCodeUnknownColumn,
			"column %q not found in schema; available: %s", c.Column, strings.Join(schema.Names(), ", "))
	}
	if err := filterir.CheckOperands(c); err != nil {
		return nil, err
	}
	out := c
	out.Operands = append([]filterir.Literal{}, c.Operands...)
	return out, nil
}

// resolveRef expands one semantic reference. A nil node means the term was
// dropped.
func (r *Resolver) resolveRef(res *resolution, ref filterir.SemanticRef) (filterir.Node, error) {
	tier := r.dict.Classify(ref.SemanticKey)
	r.logger.Debug("classified term", "term", ref.SemanticKey, "tier", tier)

	switch tier {
	case dictionary.TierA:
		code, _ := r.dict.State(ref.SemanticKey)
		if err := checkTarget(res.schema, ref); err != nil {
			return nil, err
		}
		return filterir.Condition{
			Column:   ref.TargetColumn,
			Operator: filterir.OpEq,
			Operands: []filterir.Literal{filterir.String(code)},
		}, nil

	case dictionary.TierB:
		if key, members, ok := r.dict.Region(ref.SemanticKey); ok {
			return r.expandRegion(res, ref, key, members)
		}
		if key, pred, ok := r.dict.Predicate(ref.SemanticKey); ok {
			return r.expandPredicate(res, key, pred)
		}
	}

	res.status = filterir.Worst(res.status, filterir.StatusUnresolved)
	res.unresolved = append(res.unresolved, filterir.UnresolvedTerm{
		Phrase:      ref.SemanticKey,
		Suggestions: r.dict.Suggest(ref.SemanticKey),
	})
	return nil, nil
}

func checkTarget(schema filterir.Schema, ref filterir.SemanticRef) error {
	if ref.TargetColumn == "" {
		return filterir.Errorf(filterir.ErrCodeMissingTargetColumn,
			"term %q has no target column", ref.SemanticKey)
	}
	if !schema.Has(ref.TargetColumn) {
		return filterir.Errorf(filterir.ErrCodeUnknownColumn,
			"target column %q of term %q not found in schema", ref.TargetColumn, ref.SemanticKey)
	}
	return nil
}

func (r *Resolver) expandRegion(res *resolution, ref filterir.SemanticRef, key string, members []string) (filterir.Node, error) {
	if err := checkTarget(res.schema, ref); err != nil {
		return nil, err
	}
	if len(members) > filterir.MaxInCardinality {
		return nil, filterir.Errorf(filterir.ErrCodeStructuralLimitExceeded,
			"region %s has %d members, exceeding maximum %d", key, len(members), filterir.MaxInCardinality)
	}

	operands := make([]filterir.Literal, len(members))
	for i, m := range members {
		operands[i] = filterir.String(m)
	}
	expansion := filterir.Condition{
		Column:   ref.TargetColumn,
		Operator: filterir.OpIn,
		Operands: operands,
	}
	res.tierB(ref.SemanticKey,
		fmt.Sprintf("%s (%d states: %s)", key, len(members), strings.Join(members, ", ")))
	return expansion, nil
}

func (r *Resolver) expandPredicate(res *resolution, key string, pred dictionary.Predicate) (filterir.Node, error) {
	matched := dictionary.MatchColumns(pred.ColumnPatterns, res.schema.Names())
	switch {
	case len(matched) == 0:
		return nil, filterir.Errorf(filterir.ErrCodeMissingTargetColumn,
			"business predicate %s needs a column matching one of [%s]; none found in schema",
			key, strings.Join(pred.ColumnPatterns, ", "))
	case len(matched) > 1:
		return nil, filterir.Errorf(filterir.ErrCodeAmbiguousTerm,
			"business predicate %s matched several columns: %s", key, strings.Join(matched, ", "))
	}

	column := matched[0]
	res.tierB(key, fmt.Sprintf("%s on '%s'", pred.Expansion, column))
	return filterir.Condition{
		Column:   column,
		Operator: pred.Expansion,
		Operands: []filterir.Literal{},
	}, nil
}

// tierB records a tier B expansion: resolved if term was confirmed,
// pending otherwise.
func (res *resolution) tierB(term, expansion string) {
	norm := dictionary.NormalizeTerm(term)
	if res.confirmed[norm] {
		return
	}
	res.status = filterir.Worst(res.status, filterir.StatusNeedsConfirmation)
	if res.seen[norm] {
		return
	}
	res.seen[norm] = true
	res.pending = append(res.pending, filterir.PendingConfirmation{
		Term:      term,
		Expansion: expansion,
		Tier:      string(dictionary.TierB),
	})
}

// sortTerms orders reported terms so that sibling order in the intent does
// not leak into the spec.
func (res *resolution) sortTerms() {
	sort.SliceStable(res.pending, func(i, j int) bool {
		return res.pending[i].Term < res.pending[j].Term
	})
	sort.SliceStable(res.unresolved, func(i, j int) bool {
		return res.unresolved[i].Phrase < res.unresolved[j].Phrase
	})
}

// explain describes the resolved tree and what still blocks it.
func explain(root filterir.Group, res *resolution) string {
	var b strings.Builder
	b.WriteString(filterir.Explain(root))
	if len(res.pending) > 0 {
		terms := make([]string, len(res.pending))
		for i, p := range res.pending {
			terms[i] = p.Term
		}
		fmt.Fprintf(&b, " Awaiting confirmation: %s.", strings.Join(terms, ", "))
	}
	if len(res.unresolved) > 0 {
		phrases := make([]string, len(res.unresolved))
		for i, u := range res.unresolved {
			phrases[i] = u.Phrase
		}
		fmt.Fprintf(&b, " Not understood: %s.", strings.Join(phrases, ", "))
	}
	return b.String()
}
