package services

import (
	"fmt"
	"strings"
	"unicode"
)

// Geoapify category identifiers. The Google adapter maps these onto its own place types.
const (
	CategoryHealthcare      = "healthcare"
	CategoryHospital        = "healthcare.hospital"
	CategoryClinic          = "healthcare.clinic_or_praxis"
	CategoryGeneralClinic   = "healthcare.clinic_or_praxis.general"
	CategoryDentist         = "healthcare.dentist"
	CategoryPharmacy        = "healthcare.pharmacy"
	categorySpecialtyPrefix = "healthcare.clinic_or_praxis."
)

type keywordRule struct {
	prefixes   []string
	categories []string
}

// keywordRules is matched against the start of each word of the search term.
var keywordRules = []keywordRule{
	{prefixes: []string{"cardio", "heart"}, categories: []string{categorySpecialtyPrefix + "cardiology"}},
	{prefixes: []string{"dent", "tooth", "teeth"}, categories: []string{CategoryDentist}},
	{prefixes: []string{"pediatric", "paediatric", "child"}, categories: []string{categorySpecialtyPrefix + "paediatrics"}},
	{prefixes: []string{"eye", "ophthal"}, categories: []string{categorySpecialtyPrefix + "ophthalmology"}},
	{prefixes: []string{"skin", "derma"}, categories: []string{categorySpecialtyPrefix + "dermatology"}},
	{prefixes: []string{"gyn", "gyne", "obstet", "pregnan", "maternity"}, categories: []string{categorySpecialtyPrefix + "gynaecology"}},
	{prefixes: []string{"ortho", "bone"}, categories: []string{categorySpecialtyPrefix + "orthopaedics"}},
	{prefixes: []string{"ent", "ear", "nose", "throat"}, categories: []string{categorySpecialtyPrefix + "otolaryngology"}},
	{prefixes: []string{"pharma", "chemist", "medicine", "drug"}, categories: []string{CategoryPharmacy}},
	{prefixes: []string{"psych", "mental"}, categories: []string{categorySpecialtyPrefix + "psychiatry"}},
}

// GenericCategories is used when the term names no specialty.
var GenericCategories = []string{CategoryHospital, CategoryClinic, CategoryGeneralClinic}

// BroadCategories is the widest filter the dispatcher falls back to.
var BroadCategories = []string{CategoryHealthcare}

// CategoriesForTerm maps a free-text search term onto category filters.
// Every matching rule contributes, in table order; no match yields GenericCategories.
func CategoriesForTerm(term string) []string {
	words := strings.FieldsFunc(strings.ToLower(term), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	var out []string
	seen := make(map[string]bool)
	for _, rule := range keywordRules {
		if !matchesAnyWord(words, rule.prefixes) {
			continue
		}
		for _, c := range rule.categories {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}

	if len(out) == 0 {
		return append([]string(nil), GenericCategories...)
	}
	return out
}

func matchesAnyWord(words, prefixes []string) bool {
	for _, w := range words {
		for _, p := range prefixes {
			if strings.HasPrefix(w, p) {
				return true
			}
		}
	}
	return false
}

// FacilityType is the coarse facility filter offered by the map page.
type FacilityType string

const (
	FacilityTypeAll     FacilityType = "all"
	FacilityTypePublic  FacilityType = "public"
	FacilityTypePrivate FacilityType = "private"
	FacilityTypeClinic  FacilityType = "clinic"
	FacilityTypeMedical FacilityType = "medical"
)

// ParseFacilityType accepts the map page's selector values; empty means all.
func ParseFacilityType(s string) (FacilityType, error) {
	switch t := FacilityType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return FacilityTypeAll, nil
	case FacilityTypeAll, FacilityTypePublic, FacilityTypePrivate, FacilityTypeClinic, FacilityTypeMedical:
		return t, nil
	default:
		return "", fmt.Errorf("unknown facility type %q", s)
	}
}

// Categories returns the filter this type imposes, or nil when the search
// term alone decides.
func (t FacilityType) Categories() []string {
	switch t {
	case FacilityTypePublic:
		return []string{CategoryHospital}
	case FacilityTypePrivate:
		return []string{CategoryClinic, CategoryHospital}
	case FacilityTypeClinic:
		return []string{CategoryGeneralClinic, CategoryClinic}
	case FacilityTypeMedical:
		return []string{CategoryHealthcare}
	default:
		return nil
	}
}

// DefaultTerm is the name filter used when the user typed nothing.
func (t FacilityType) DefaultTerm() string {
	if t == FacilityTypePublic {
		return "public health center"
	}
	return ""
}
