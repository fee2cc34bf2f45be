// Package mapping holds the static lookup tables that translate each
// source's free-text taxonomy into the catalog's fixed vocabulary.
package mapping

import (
	"strings"

	subsidydomain "github.com/subsidytracker/subsidytracker/internal/subsidy/domain"
)

// Rule pairs a source keyword with a catalog code. Tables are scanned in
// authored order and the first keyword contained in the input wins, so
// entry order matters for overlapping substrings.
type Rule struct {
	Keyword string
	Code    string
}

type Table []Rule

// Resolve returns the code of the first rule whose keyword is a
// substring of the input, or fallback when nothing matches.
func (t Table) Resolve(input, fallback string) string {
	if input == "" {
		return fallback
	}
	for _, rule := range t {
		if strings.Contains(input, rule.Keyword) {
			return rule.Code
		}
	}
	return fallback
}

// GovDataCategories maps the public-data portal's 서비스분야 field.
var GovDataCategories = Table{
	{"생활안정", "LIVING"},
	{"주거·자립", "HOUSING"},
	{"주거자립", "HOUSING"},
	{"주거", "HOUSING"},
	{"보육·교육", "EDUCATION"},
	{"보육교육", "EDUCATION"},
	{"교육", "EDUCATION"},
	{"고용·창업", "EMPLOYMENT"},
	{"고용창업", "EMPLOYMENT"},
	{"고용", "EMPLOYMENT"},
	{"창업", "EMPLOYMENT"},
	{"보건·의료", "HEALTH"},
	{"보건의료", "HEALTH"},
	{"의료", "HEALTH"},
	{"보건", "HEALTH"},
	{"행정·안전", "ADMIN"},
	{"행정안전", "ADMIN"},
	{"문화·환경", "CULTURE"},
	{"문화환경", "CULTURE"},
	{"문화", "CULTURE"},
	{"환경", "CULTURE"},
	{"농림·축산", "AGRICULTURE"},
	{"농림축산", "AGRICULTURE"},
	{"농림", "AGRICULTURE"},
}

// YouthCategories maps the youth-policy API's 대분류 field.
var YouthCategories = Table{
	{"일자리", "EMPLOYMENT"},
	{"주거", "HOUSING"},
	{"교육", "EDUCATION"},
	{"복지·문화", "CULTURE"},
	{"복지문화", "CULTURE"},
	{"참여·권리", "ADMIN"},
	{"참여권리", "ADMIN"},
}

// targetGroups maps the portal's 사용자구분 field onto target-group codes.
var targetGroups = Table{
	{"청년", "YOUTH"},
	{"중장년", "MIDDLE"},
	{"노인", "SENIOR"},
	{"어르신", "SENIOR"},
	{"장애인", "DISABLED"},
	{"저소득층", "LOWINCOME"},
	{"저소득", "LOWINCOME"},
	{"다문화가정", "MULTICULTURAL"},
	{"다문화", "MULTICULTURAL"},
	{"한부모가정", "SINGLEPARENT"},
	{"한부모", "SINGLEPARENT"},
	{"임산부", "PREGNANT"},
	{"임신", "PREGNANT"},
	{"영유아", "INFANT"},
	{"영아", "INFANT"},
}

// TargetGroupCodes returns every distinct target-group code whose
// keyword appears in the input, in table order.
func TargetGroupCodes(input string) []string {
	if input == "" {
		return nil
	}
	var codes []string
	seen := make(map[string]bool)
	for _, rule := range targetGroups {
		if seen[rule.Code] || !strings.Contains(input, rule.Keyword) {
			continue
		}
		seen[rule.Code] = true
		codes = append(codes, rule.Code)
	}
	return codes
}

var regionSuffixes = []string{"특별시", "광역시", "특별자치시", "특별자치도", "도"}

// RegionShortName strips administrative suffixes from a region name,
// e.g. 서울특별시 → 서울, 경기도 → 경기.
func RegionShortName(name string) string {
	for _, suffix := range regionSuffixes {
		name = strings.ReplaceAll(name, suffix, "")
	}
	return name
}

// ResolveRegion matches an organization or institution name against the
// short form of each top-level region; the first match wins and the
// sentinel ALL region is the fallback. The second return is false only
// when no match is found and no ALL sentinel exists in the slice.
func ResolveRegion(orgName string, topLevel []subsidydomain.Region) (subsidydomain.Region, bool) {
	var sentinel *subsidydomain.Region
	for i := range topLevel {
		if topLevel[i].Code == subsidydomain.RegionCodeAll {
			sentinel = &topLevel[i]
			break
		}
	}

	if orgName != "" {
		for _, region := range topLevel {
			if region.Code == subsidydomain.RegionCodeAll {
				continue
			}
			short := RegionShortName(region.Name)
			if short != "" && strings.Contains(orgName, short) {
				return region, true
			}
		}
	}

	if sentinel != nil {
		return *sentinel, true
	}
	return subsidydomain.Region{}, false
}
