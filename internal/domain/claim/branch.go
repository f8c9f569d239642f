package claim

import "strings"

// Canonical facility branch identifiers.
const (
	BranchRiyadh        = "riyadh"
	BranchJeddah        = "jeddah"
	BranchDammam        = "dammam"
	BranchMakkah        = "makkah"
	BranchMadinah       = "madinah"
	BranchAbha          = "abha"
	BranchKhamisMushait = "khamis_mushait"
	BranchTaif          = "taif"
	BranchTabuk         = "tabuk"
	BranchUnaizah       = "unaizah"
)

var branchAliases = map[string]string{
	"riyadh": BranchRiyadh, "riyadh main": BranchRiyadh, "ryd": BranchRiyadh, "الرياض": BranchRiyadh,
	"jeddah": BranchJeddah, "jiddah": BranchJeddah, "jed": BranchJeddah, "جدة": BranchJeddah,
	"dammam": BranchDammam, "dmm": BranchDammam, "الدمام": BranchDammam,
	"makkah": BranchMakkah, "mecca": BranchMakkah, "makka": BranchMakkah, "مكة": BranchMakkah,
	"madinah": BranchMadinah, "medina": BranchMadinah, "al madinah": BranchMadinah, "المدينة": BranchMadinah,
	"abha": BranchAbha, "أبها": BranchAbha,
	"khamis mushait": BranchKhamisMushait, "khamis_mushait": BranchKhamisMushait, "khamis": BranchKhamisMushait, "خميس مشيط": BranchKhamisMushait,
	"taif": BranchTaif, "al taif": BranchTaif, "الطائف": BranchTaif,
	"tabuk": BranchTabuk, "تبوك": BranchTabuk,
	"unaizah": BranchUnaizah, "unayzah": BranchUnaizah, "عنيزة": BranchUnaizah,
}

// CanonicalBranch maps a free-text branch name to its identifier. Matching
// ignores case and surrounding whitespace; unknown names are returned
// unchanged.
func CanonicalBranch(name string) string {
	key := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	if id, ok := branchAliases[key]; ok {
		return id
	}
	return name
}

