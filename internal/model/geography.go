package model

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// NormalizeCode trims and upper-cases a geography code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsGSSCode reports whether code is a nine-character GSS statistical code:
// one country letter followed by eight digits.
func IsGSSCode(code string) bool {
	if len(code) != 9 {
		return false
	}
	switch code[0] {
	case 'E', 'W', 'S', 'N', 'K':
	default:
		return false
	}
	for i := 1; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// lsoaPrefixes are the GSS entity prefixes for small units: English and Welsh
// LSOAs, Scottish data zones, Northern Ireland super output areas.
var lsoaPrefixes = []string{"E01", "W01", "S01", "N00"}

// ladPrefixes are the GSS entity prefixes for local authority districts.
var ladPrefixes = []string{"E06", "E07", "E08", "E09", "W06", "S12", "N09"}

// IsUnitCode reports whether code identifies a small-area unit.
func IsUnitCode(code string) bool {
	return IsGSSCode(code) && hasAnyPrefix(code, lsoaPrefixes)
}

// IsGroupCode reports whether code identifies a local authority district.
func IsGroupCode(code string) bool {
	return IsGSSCode(code) && hasAnyPrefix(code, ladPrefixes)
}

// IsLegacyScottishCode reports whether code uses the pre-2011 Scottish LAU
// numbering (S30 prefix) that must be mapped before adjustment.
func IsLegacyScottishCode(code string) bool {
	return strings.HasPrefix(code, "S30")
}

func hasAnyPrefix(code string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

// Membership is the immutable unit-to-group assignment for one run. Every
// unit belongs to exactly one group.
type Membership struct {
	unitGroup  map[string]string
	groupUnits map[string][]string
	groups     []string
}

// NewMembership builds a Membership from unit-to-group pairs. Unit lists per
// group and the group list are kept sorted so iteration is deterministic.
func NewMembership(unitGroup map[string]string) *Membership {
	m := &Membership{
		unitGroup:  make(map[string]string, len(unitGroup)),
		groupUnits: make(map[string][]string),
	}
	for unit, group := range unitGroup {
		m.unitGroup[unit] = group
		m.groupUnits[group] = append(m.groupUnits[group], unit)
	}
	for group, units := range m.groupUnits {
		sort.Strings(units)
		m.groups = append(m.groups, group)
	}
	sort.Strings(m.groups)
	return m
}

// MembershipFromPoints derives the unit-to-group assignment carried on the
// observed table. A unit appearing under two different groups is a structural
// input error.
func MembershipFromPoints(pts []SeriesPoint) (*Membership, error) {
	unitGroup := make(map[string]string)
	for i := range pts {
		p := &pts[i]
		if prev, ok := unitGroup[p.Unit]; ok {
			if prev != p.Group {
				return nil, eris.Errorf("model: unit %s assigned to both %s and %s", p.Unit, prev, p.Group)
			}
			continue
		}
		if p.Group == "" {
			return nil, eris.Errorf("model: unit %s has no group", p.Unit)
		}
		unitGroup[p.Unit] = p.Group
	}
	return NewMembership(unitGroup), nil
}

// GroupOf returns the group a unit belongs to.
func (m *Membership) GroupOf(unit string) (string, bool) {
	g, ok := m.unitGroup[unit]
	return g, ok
}

// Units returns the sorted units of a group.
func (m *Membership) Units(group string) []string {
	return m.groupUnits[group]
}

// Groups returns all group codes in sorted order.
func (m *Membership) Groups() []string {
	return m.groups
}

// Len returns the number of units.
func (m *Membership) Len() int {
	return len(m.unitGroup)
}
