package geocode

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// provinceRules maps colloquial, abbreviated or outdated administrative names
// to the current official forms the providers index. Ordered; for each rule
// the substitution runs at most once, and only when the official form is not
// already present, so normalization is idempotent.
var provinceRules = []struct {
	variant  string
	official string
}{
	{"서울시", "서울특별시"},
	{"세종시", "세종특별자치시"},
	{"강원도", "강원특별자치도"},
	{"전라북도", "전북특별자치도"},
	{"제주도", "제주특별자치도"},
	{"인천시", "인천광역시"},
	{"부산시", "부산광역시"},
	{"대구시", "대구광역시"},
	{"광주시", "광주광역시"},
	{"대전시", "대전광역시"},
	{"울산시", "울산광역시"},
}

// StandardizeProvinceName canonicalizes province/city name variants so the
// providers' structured geocoders recognize them. Purely textual, no I/O.
func StandardizeProvinceName(addr string) string {
	addr = norm.NFC.String(strings.TrimSpace(addr))
	for _, r := range provinceRules {
		if strings.Contains(addr, r.official) {
			continue
		}
		if strings.Contains(addr, r.variant) {
			addr = strings.Replace(addr, r.variant, r.official, 1)
		}
	}
	return addr
}

// SejongShortForm substitutes the short colloquial form of Sejong City back
// in. The search index inconsistently prefers the short form for POI queries
// even though structured geocoding wants the official long form.
func SejongShortForm(addr string) string {
	addr = strings.ReplaceAll(addr, "세종특별자치시", "세종")
	return strings.ReplaceAll(addr, "세종시", "세종")
}

// failureArtifacts are annotations a previous failed pass may have appended
// to an address. Stripping them keeps re-resolution of an already-annotated
// string working.
var failureArtifacts = []string{
	"(위치를 찾을 수 없음)",
	"(실패)",
	"[실패]",
	"위치를 찾을 수 없음",
}

func stripFailureArtifacts(addr string) string {
	for _, art := range failureArtifacts {
		addr = strings.ReplaceAll(addr, art, "")
	}
	return strings.TrimSpace(addr)
}
