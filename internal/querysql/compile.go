// Package querysql compiles resolved filter specs into parameterized SQL
// WHERE clauses for DuckDB.
//
// CRITICAL: values are never interpolated. Every operand is bound through a
// $n placeholder and every identifier is double-quoted.
//
// Output is a pure function of (spec, schema): the tree is canonicalized
// before the walk, so sibling order in the input never changes the SQL.
package querysql

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/semfilter/internal/canonical"
	"github.com/roach88/semfilter/internal/filterir"
	"github.com/roach88/semfilter/internal/token"
)

// Compiler turns RESOLVED specs into SQL. A Compiler holds no mutable
// state and is safe for concurrent use.
type Compiler struct {
	signer      *token.Signer
	dictVersion string
	logger      *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCompiler creates a Compiler that verifies tokens with signer and
// accepts only tokens minted under dictVersion, the version of the
// dictionary currently in use. The version a spec records is never trusted.
func NewCompiler(signer *token.Signer, dictVersion string, opts ...Option) *Compiler {
	c := &Compiler{
		signer:      signer,
		dictVersion: dictVersion,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile compiles spec against schema. schema.Signature is the runtime
// signature of the data source.
//
// Checks run cheapest first: status, schema signature, condition count,
// token, then the tree walk and the parameter count. Any failure returns a
// *filterir.Error and no filter.
func (c *Compiler) Compile(spec *filterir.ResolvedSpec, schema filterir.Schema) (*filterir.CompiledFilter, error) {
	if spec == nil {
		return nil, filterir.Errorf(filterir.ErrCodeConfirmationRequired, "no resolved spec")
	}
	if spec.Status != filterir.StatusResolved {
		return nil, filterir.Errorf(filterir.ErrCodeConfirmationRequired,
			"cannot compile spec with status %s; resolution must be RESOLVED", spec.Status)
	}
	if spec.SchemaSignature != "" && spec.SchemaSignature != schema.Signature {
		return nil, filterir.Errorf(filterir.ErrCodeSchemaChanged,
			"schema changed since resolution: expected %q, got %q", spec.SchemaSignature, schema.Signature)
	}
	if n := filterir.CountConditions(spec.Root); n > filterir.MaxConditions {
		return nil, filterir.Errorf(filterir.ErrCodeStructuralLimitExceeded,
			"filter has %d conditions, exceeding maximum %d", n, filterir.MaxConditions)
	}

	root := canonical.Group(spec.Root)
	if err := c.verifyToken(spec, root, schema); err != nil {
		return nil, err
	}

	e := &emitter{schema: schema, columns: make(map[string]struct{})}
	where, err := e.group(root, 0)
	if err != nil {
		return nil, err
	}
	if len(e.params) > filterir.MaxParams {
		return nil, filterir.Errorf(filterir.ErrCodeStructuralLimitExceeded,
			"filter produces %d parameters, exceeding maximum %d", len(e.params), filterir.MaxParams)
	}

	out := &filterir.CompiledFilter{
		WhereSQL:        where,
		Params:          e.params,
		ColumnsUsed:     e.columnsUsed(),
		Explanation:     filterir.Explain(root),
		SchemaSignature: schema.Signature,
	}
	c.logger.Debug("compiled filter",
		"params", len(out.Params),
		"columns", out.ColumnsUsed)
	return out, nil
}

// verifyToken requires a RESOLVED token bound to the canonical root.
func (c *Compiler) verifyToken(spec *filterir.ResolvedSpec, root filterir.Group, schema filterir.Schema) error {
	hash, err := canonical.Hash(root)
	if err != nil {
		// A tree that cannot be serialized cannot match any minted hash.
		return &filterir.Error{
			Code:    filterir.ErrCodeTokenHashMismatch,
			Message: fmt.Sprintf("resolved tree cannot be hashed: %v", err),
			Reason:  string(token.ReasonSpecHashMismatch),
		}
	}

	_, err = c.signer.Verify(spec.ResolutionToken, token.Expectation{
		SchemaSignature: schema.Signature,
		SpecHash:        hash,
		DictVersion:     c.dictVersion,
		Status:          filterir.StatusResolved,
	})
	if err != nil {
		c.logger.Warn("rejected resolution token", "reason", filterir.ReasonOf(err))
		return err
	}
	return nil
}

// quoteIdent double-quotes an identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
