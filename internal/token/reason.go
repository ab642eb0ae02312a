package token

import "github.com/roach88/semfilter/internal/filterir"

// Reason names the check a token failed.
type Reason string

const (
	ReasonMissing             Reason = "token_missing"
	ReasonMalformed           Reason = "token_malformed"
	ReasonSignatureMissing    Reason = "signature_missing"
	ReasonSignatureInvalid    Reason = "signature_invalid"
	ReasonExpired             Reason = "token_expired"
	ReasonSchemaMismatch      Reason = "schema_signature_mismatch"
	ReasonSpecHashMismatch    Reason = "spec_hash_mismatch"
	ReasonDictVersionMismatch Reason = "dict_version_mismatch"
	ReasonStatusMismatch      Reason = "status_mismatch"
)

// Code maps a reason to the error code callers act on.
func (r Reason) Code() filterir.ErrorCode {
	switch r {
	case ReasonSpecHashMismatch:
		return filterir.ErrCodeTokenHashMismatch
	case ReasonStatusMismatch:
		return filterir.ErrCodeConfirmationRequired
	default:
		return filterir.ErrCodeTokenInvalidOrExpired
	}
}

func fail(r Reason, msg string) *filterir.Error {
	return &filterir.Error{Code: r.Code(), Message: msg, Reason: string(r)}
}
