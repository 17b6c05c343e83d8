// Package dyn defines the dynamic value model exchanged at the bridge boundary.
//
// A Value is a sealed union of exactly six variants:
//
//   - Null
//   - Bool
//   - Number (always float64 on the wire)
//   - String
//   - List
//   - Map (unique string keys, unordered)
//
// Values are created per call and are never retained by the bridge; they are
// a wire format, not a storage format. Typed domain objects are produced from
// Values by the decoders in the extension packages (see internal/codec).
//
// # Numeric policy
//
// The boundary carries a single numeric kind. A Number is treated as an
// integer if and only if its fractional part is exactly zero and it fits in
// an int64. Number.Int, ToAny and MarshalCanonical all apply this rule, so
// no call site needs its own int-versus-float heuristic.
//
// # Canonical form
//
// MarshalCanonical produces deterministic JSON: keys sorted by UTF-16 code
// units (RFC 8785), NFC-normalised strings, no HTML escaping, and integral
// numbers written without a fraction. Digest hashes that form with SHA-256
// and a domain prefix.
package dyn
