package wire

import "errors"

// ValidateFlags controls optional, stricter checks in a frame's
// ValidateSize/ValidateExceptCRC methods.
type ValidateFlags uint8

// ValidateEvilBit marks whether the IPv4 "evil bit" (RFC 3514) should be rejected.
const ValidateEvilBit ValidateFlags = 1 << 0

// Validator accumulates errors found while inspecting a frame's header
// fields, so a caller can run every check before deciding whether to drop
// the packet. The zero value is ready to use.
type Validator struct {
	flags ValidateFlags
	accum []error
}

// NewValidator returns a Validator configured with the given flags.
func NewValidator(flags ValidateFlags) Validator {
	return Validator{flags: flags}
}

// Flags returns the flags the Validator was configured with.
func (v *Validator) Flags() ValidateFlags { return v.flags }

// AddError appends err to the accumulated error set. Panics on a nil error,
// since that signals a bug in the calling validation code, not a bad frame.
func (v *Validator) AddError(err error) {
	if err == nil {
		panic("wire: AddError called with nil error")
	}
	v.accum = append(v.accum, err)
}

// HasError reports whether any error has been accumulated.
func (v *Validator) HasError() bool { return len(v.accum) != 0 }

// Err returns every accumulated error joined together, or nil if none.
func (v *Validator) Err() error {
	switch len(v.accum) {
	case 0:
		return nil
	case 1:
		return v.accum[0]
	default:
		return errors.Join(v.accum...)
	}
}

// ErrPop returns Err and resets the accumulator so the Validator can be
// reused for the next frame.
func (v *Validator) ErrPop() error {
	err := v.Err()
	v.accum = v.accum[:0]
	return err
}

// Reset clears the accumulated errors without changing the configured flags.
func (v *Validator) Reset() { v.accum = v.accum[:0] }
