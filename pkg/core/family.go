package core

import (
	"fmt"
	"sort"
)

// Family identifies one of the supported dataset schemas.
type Family string

// Known families.
const (
	// FamilyWriting is the prompt/solution family (DeepWriting-20k).
	FamilyWriting Family = "deepwriting"
	// FamilyMath is the question/generated_solution/expected_answer family (OpenMathInstruct-1).
	FamilyMath Family = "openmath"
)

// Families returns every known family in canonical processing order.
func Families() []Family {
	return []Family{FamilyWriting, FamilyMath}
}

// ParseFamily converts a name into a Family.
func ParseFamily(name string) (Family, error) {
	switch Family(name) {
	case FamilyWriting, FamilyMath:
		return Family(name), nil
	}
	names := make([]string, 0, len(Families()))
	for _, f := range Families() {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return "", fmt.Errorf("unknown dataset family %q (available: %v)", name, names)
}

// ResolveFamilies expands a family selector ("all" or a family name) into a list.
func ResolveFamilies(selector string) ([]Family, error) {
	if selector == "" || selector == "all" {
		return Families(), nil
	}
	f, err := ParseFamily(selector)
	if err != nil {
		return nil, err
	}
	return []Family{f}, nil
}

func (f Family) String() string { return string(f) }
