package resolver

import (
	"github.com/roach88/semfilter/internal/canonical"
	"github.com/roach88/semfilter/internal/filterir"
	"github.com/roach88/semfilter/internal/token"
)

// Confirm records a human's approval of the pending terms of a
// NEEDS_CONFIRMATION resolution and re-resolves the intent with it.
//
// tok must be the token of that resolution: valid, unexpired, bound to
// this schema, dictionary version and resolved tree, and carrying status
// NEEDS_CONFIRMATION. prior holds earlier confirmations of the session and
// is not modified.
//
// It returns the re-resolved spec, which is RESOLVED, and the new
// Confirmation for the caller to keep. Any term still pending afterwards
// yields CONFIRMATION_REQUIRED.
func (r *Resolver) Confirm(intent filterir.Intent, schema filterir.Schema, tok string, prior []filterir.Confirmation) (*filterir.ResolvedSpec, filterir.Confirmation, error) {
	initial, err := r.Resolve(intent, schema, prior)
	if err != nil {
		return nil, filterir.Confirmation{}, err
	}
	if initial.Status == filterir.StatusUnresolved {
		return nil, filterir.Confirmation{}, filterir.Errorf(filterir.ErrCodeConfirmationRequired,
			"intent has %d unresolved term(s); clarify them before confirming", len(initial.UnresolvedTerms))
	}

	hash, err := canonical.Hash(initial.Root)
	if err != nil {
		return nil, filterir.Confirmation{}, err
	}
	if _, err := r.signer.Verify(tok, token.Expectation{
		SchemaSignature: schema.Signature,
		SpecHash:        hash,
		DictVersion:     r.dict.Version(),
		Status:          filterir.StatusNeedsConfirmation,
	}); err != nil {
		r.logger.Warn("rejected confirmation token", "reason", filterir.ReasonOf(err))
		return nil, filterir.Confirmation{}, err
	}

	confirmation := filterir.Confirmation{Token: tok, Terms: initial.PendingTerms()}
	all := make([]filterir.Confirmation, 0, len(prior)+1)
	all = append(all, prior...)
	all = append(all, confirmation)

	final, err := r.Resolve(intent, schema, all)
	if err != nil {
		return nil, filterir.Confirmation{}, err
	}
	if final.Status != filterir.StatusResolved {
		return nil, filterir.Confirmation{}, filterir.Errorf(filterir.ErrCodeConfirmationRequired,
			"resolution is still %s after confirmation", final.Status)
	}

	r.logger.Info("confirmed terms", "terms", confirmation.Terms)
	return final, confirmation, nil
}
