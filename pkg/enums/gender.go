package enums

import "fmt"

// Gender maps to the gender enum on user profiles.
type Gender string

const (
	GenderMan   Gender = "man"
	GenderWoman Gender = "woman"
)

var validGenders = []Gender{
	GenderMan,
	GenderWoman,
}

// IsValid checks whether the given value matches the canonical enum.
func (g Gender) IsValid() bool {
	for _, candidate := range validGenders {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGender converts raw strings into Gender.
func ParseGender(value string) (Gender, error) {
	for _, candidate := range validGenders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gender %q", value)
}
