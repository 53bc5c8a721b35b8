package model

// Documented UserProfile field names
const (
	FieldIncome     = "income"
	FieldAge        = "age"
	FieldState      = "state"
	FieldCategory   = "category"
	FieldGender     = "gender"
	FieldOccupation = "occupation"
)

// ProfileFields lists the documented profile fields
var ProfileFields = []string{
	FieldIncome,
	FieldAge,
	FieldState,
	FieldCategory,
	FieldGender,
	FieldOccupation,
}

// UserProfile is a flat mapping of field name to declared value.
// Values may be numbers, numeric strings, strings or string lists.
type UserProfile map[string]any

// Lookup returns the value for field, treating nil and blank strings as absent
func (p UserProfile) Lookup(field string) (any, bool) {
	v, ok := p[field]
	if !ok || v == nil {
		return nil, false
	}
	switch t := v.(type) {
	case string:
		if len(t) == 0 {
			return nil, false
		}
	case []any:
		if len(t) == 0 {
			return nil, false
		}
	case []string:
		if len(t) == 0 {
			return nil, false
		}
	}
	return v, true
}

// Clone returns a shallow copy of the profile
func (p UserProfile) Clone() UserProfile {
	out := make(UserProfile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
