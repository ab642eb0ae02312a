package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/semfilter/internal/confirmstore"
	"github.com/roach88/semfilter/internal/dictionary"
	"github.com/roach88/semfilter/internal/filterir"
	"github.com/roach88/semfilter/internal/querysql"
	"github.com/roach88/semfilter/internal/resolver"
	"github.com/roach88/semfilter/internal/testutil"
	"github.com/roach88/semfilter/internal/token"
)

// Harness is the scenario execution engine.
// It wires the resolver, confirmation store and compiler the way a caller
// would, under a deterministic clock and a fixed session.
type Harness struct {
	clock    *testutil.DeterministicClock
	signer   *token.Signer
	resolver *resolver.Resolver
	compiler *querysql.Compiler
	store    confirmstore.Store
	sessions confirmstore.SessionGenerator
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario gets a fresh clock and confirmation store.
//
// Execution flow:
// 1. Resolve the intent with the session's stored confirmations
// 2. If confirm is set and the resolution needs confirmation, advance the
// clock, confirm with the resolution token and store the confirmation
// 3. If the outcome is RESOLVED, compile it
// 4. Check expectations
//
// Filter errors end the run early and are recorded in Result.Err; only
// harness setup problems are returned as errors.
func Run(scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}
	defer h.store.Close()

	result := NewResult()
	result.Err = h.execute(context.Background(), scenario, result)

	for _, msg := range checkExpectations(scenario.Expect, result) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(scenario *Scenario) (*Harness, error) {
	dict := dictionary.Default()
	if scenario.Dictionary != "" {
		loaded, err := dictionary.LoadFile(scenario.Dictionary)
		if err != nil {
			return nil, fmt.Errorf("failed to load dictionary: %w", err)
		}
		dict = loaded
	}

	clock := testutil.NewDeterministicClock()
	signer, err := token.NewSigner([]byte(testutil.TestSecret), token.WithClock(clock.Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}

	// Suppress logs in scenario runs
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &Harness{
		clock:    clock,
		signer:   signer,
		resolver: resolver.New(dict, signer, resolver.WithLogger(logger)),
		compiler: querysql.NewCompiler(signer, dict.Version(), querysql.WithLogger(logger)),
		store:    confirmstore.NewMemory(confirmstore.WithClock(clock.Now)),
		sessions: testutil.NewFixedSessionGenerator(scenario.Session),
		logger:   logger,
	}, nil
}

func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) error {
	intent, err := scenario.intent()
	if err != nil {
		return err
	}
	schema := scenario.Schema.Schema()
	session := h.sessions.NewSessionID()

	prior, err := h.store.Snapshot(ctx, session)
	if err != nil {
		return fmt.Errorf("snapshot confirmations: %w", err)
	}

	initial, err := h.resolver.Resolve(intent, schema, prior)
	if err != nil {
		return err
	}
	result.Initial = initial
	h.logger.Info("resolved", "scenario", scenario.Name, "status", initial.Status)

	spec := initial
	if scenario.Confirm && initial.Status == filterir.StatusNeedsConfirmation {
		h.clock.Advance(scenario.Advance)

		final, conf, err := h.resolver.Confirm(intent, schema, initial.ResolutionToken, prior)
		if err != nil {
			return err
		}
		payload, err := h.signer.Decode(conf.Token)
		if err != nil {
			return fmt.Errorf("decode confirmed token: %w", err)
		}
		if err := h.store.Put(ctx, session, conf, payload.Expiry()); err != nil {
			return fmt.Errorf("store confirmation: %w", err)
		}
		result.Final = final
		result.Confirmation = &conf
		spec = final
	}

	if spec.Status != filterir.StatusResolved {
		return nil
	}
	filter, err := h.compiler.Compile(spec, schema)
	if err != nil {
		return err
	}
	result.Filter = filter
	return nil
}
