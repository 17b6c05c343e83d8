// Package codec holds the shared pieces of the recursive encoders and
// decoders: a field Reader with required/optional accessors, list helpers
// that fail as a unit, enum tables with a neutral default and the
// DecodeError type.
//
// Decoders follow one shape:
//
//	func DecodeThing(v dyn.Value) (Thing, error) {
//		r := codec.NewReader("Thing", v)
//		id := r.RequiredString("id")
//		note, hasNote := r.String("note")
//		if err := r.Err(); err != nil {
//			return Thing{}, err
//		}
//		...
//	}
//
// Encoders are total and omit optional fields that are unset.
package codec
