package constants

import "strings"

// FacilityType is the government facility classification used in field reports.
type FacilityType string

const (
	CHC              FacilityType = "CHC"
	PHC              FacilityType = "PHC"
	SubCenter        FacilityType = "Sub-Center"
	DistrictHospital FacilityType = "District Hospital"
	UnknownFacility  FacilityType = "Unknown"
)

var allFacilityTypes = []FacilityType{CHC, PHC, SubCenter, DistrictHospital, UnknownFacility}

// FacilityTypes returns the declared facility types as strings.
func FacilityTypes() []string {
	out := make([]string, len(allFacilityTypes))
	for i, t := range allFacilityTypes {
		out[i] = string(t)
	}
	return out
}

// CanonicalFacilityType maps free-form model output onto a declared facility
// type. Ground workers write these a dozen different ways.
func CanonicalFacilityType(input string) (FacilityType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return UnknownFacility, false
	}
	synonyms := map[string]FacilityType{
		"chc":                        CHC,
		"community health center":    CHC,
		"community health centre":    CHC,
		"phc":                        PHC,
		"primary health center":      PHC,
		"primary health centre":      PHC,
		"sub-center":                 SubCenter,
		"sub center":                 SubCenter,
		"subcenter":                  SubCenter,
		"sub-centre":                 SubCenter,
		"sub centre":                 SubCenter,
		"district hospital":          DistrictHospital,
		"dh":                         DistrictHospital,
		"civil hospital":             DistrictHospital,
		"unknown":                    UnknownFacility,
	}
	if t, ok := synonyms[normalized]; ok {
		return t, true
	}
	return UnknownFacility, false
}

// Severity levels shared by barriers, infrastructure gaps, and risks.
var Severities = []string{"low", "medium", "high", "critical"}

// QualityRatings for clinical service quality.
var QualityRatings = []string{"poor", "fair", "good", "excellent", "unknown"}

// SampleStorageMethods for laboratory sample handling.
var SampleStorageMethods = []string{"refrigerated", "room_temp", "ice_box", "unknown"}
