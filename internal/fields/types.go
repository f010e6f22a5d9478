package fields

import "strings"

// FieldType is a canonical semantic category for a form field.
type FieldType string

// Canonical field types
const (
	FieldTypeName     FieldType = "name"
	FieldTypePhone    FieldType = "phone"
	FieldTypeEmail    FieldType = "email"
	FieldTypeAddress  FieldType = "address"
	FieldTypeCity     FieldType = "city"
	FieldTypeProvince FieldType = "province"
	FieldTypeCountry  FieldType = "country"
	FieldTypeZipcode  FieldType = "zipcode"
	FieldTypeCompany  FieldType = "company"
	FieldTypeTitle    FieldType = "title"
	FieldTypeBirthday FieldType = "birthday"
	FieldTypeGender   FieldType = "gender"
	FieldTypeIDCard   FieldType = "idcard"
	FieldTypeUnknown  FieldType = "unknown"
)

// priorityOrder breaks ties when more than one synonym pattern matches.
var priorityOrder = []FieldType{
	FieldTypeName,
	FieldTypePhone,
	FieldTypeEmail,
	FieldTypeAddress,
	FieldTypeCity,
	FieldTypeProvince,
	FieldTypeCountry,
	FieldTypeZipcode,
	FieldTypeCompany,
	FieldTypeTitle,
	FieldTypeBirthday,
	FieldTypeGender,
	FieldTypeIDCard,
}

// PriorityOrder returns the known field types, highest priority first.
func PriorityOrder() []FieldType {
	out := make([]FieldType, len(priorityOrder))
	copy(out, priorityOrder)
	return out
}

// ParseFieldType converts a string to a known FieldType.
func ParseFieldType(s string) (FieldType, bool) {
	t := FieldType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range priorityOrder {
		if t == known {
			return t, true
		}
	}
	if t == FieldTypeUnknown {
		return t, true
	}
	return FieldTypeUnknown, false
}

// IsKnown reports whether t is one of the canonical types other than unknown.
func (t FieldType) IsKnown() bool {
	for _, known := range priorityOrder {
		if t == known {
			return true
		}
	}
	return false
}

func (t FieldType) String() string {
	return string(t)
}

// ClassifiedField pairs a cleaned on-page label with its inferred type.
type ClassifiedField struct {
	RawLabel  string    `json:"rawLabel"`
	FieldType FieldType `json:"fieldType"`
}
