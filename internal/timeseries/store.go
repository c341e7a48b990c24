package timeseries

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/ONSdigital/gdhi-adj/internal/model"
)

// Store is the full series set for one run: one Series per (unit, component),
// plus the membership the group stages partition by. Construction validates
// the rectangular shape the stages rely on; after that the store only hands
// out series.
type Store struct {
	series  map[Key]*Series
	keys    []Key
	members *model.Membership

	groupsByComp map[model.Component][]string
	yearMin      int
	yearMax      int
}

// New builds a Store from long-form points. Every series must cover the same
// contiguous year span; duplicate (unit, component, year) rows and units
// outside the membership are structural input errors.
func New(pts []model.SeriesPoint, members *model.Membership) (*Store, error) {
	if len(pts) == 0 {
		return nil, eris.New("timeseries: no points")
	}
	if members == nil {
		return nil, eris.New("timeseries: nil membership")
	}

	st := &Store{
		series:       make(map[Key]*Series),
		members:      members,
		groupsByComp: make(map[model.Component][]string),
	}

	st.yearMin = pts[0].Year
	st.yearMax = pts[0].Year
	for i := range pts {
		p := pts[i]
		group, ok := members.GroupOf(p.Unit)
		if !ok {
			return nil, eris.Errorf("timeseries: unit %s not in membership", p.Unit)
		}
		if p.Group == "" {
			p.Group = group
		} else if p.Group != group {
			return nil, eris.Errorf("timeseries: unit %s group %s does not match membership %s", p.Unit, p.Group, group)
		}

		key := Key{Unit: p.Unit, Component: p.Component}
		ser, ok := st.series[key]
		if !ok {
			ser = newSeries(p.Unit, p.Component)
			st.series[key] = ser
			st.keys = append(st.keys, key)
		}
		cp := p
		if !ser.add(&cp) {
			return nil, eris.Errorf("timeseries: duplicate point %s %s %d", p.Unit, p.Component, p.Year)
		}

		if p.Year < st.yearMin {
			st.yearMin = p.Year
		}
		if p.Year > st.yearMax {
			st.yearMax = p.Year
		}
	}

	span := st.yearMax - st.yearMin + 1
	for _, key := range st.keys {
		ser := st.series[key]
		ser.sortByYear()
		if ser.Len() != span {
			return nil, eris.Errorf("timeseries: series %s %s covers %d of %d years", key.Unit, key.Component, ser.Len(), span)
		}
	}

	sort.Slice(st.keys, func(i, j int) bool {
		if st.keys[i].Component != st.keys[j].Component {
			return st.keys[i].Component < st.keys[j].Component
		}
		return st.keys[i].Unit < st.keys[j].Unit
	})

	st.indexGroups()
	return st, nil
}

func (st *Store) indexGroups() {
	seen := make(map[model.Component]map[string]bool)
	for _, key := range st.keys {
		group, _ := st.members.GroupOf(key.Unit)
		if seen[key.Component] == nil {
			seen[key.Component] = make(map[string]bool)
		}
		seen[key.Component][group] = true
	}
	for comp, groups := range seen {
		for g := range groups {
			st.groupsByComp[comp] = append(st.groupsByComp[comp], g)
		}
		sort.Strings(st.groupsByComp[comp])
	}
}

// Series returns the series for one (unit, component).
func (st *Store) Series(unit string, comp model.Component) (*Series, bool) {
	s, ok := st.series[Key{Unit: unit, Component: comp}]
	return s, ok
}

// All returns every series, ordered by component then unit.
func (st *Store) All() []*Series {
	out := make([]*Series, len(st.keys))
	for i, key := range st.keys {
		out[i] = st.series[key]
	}
	return out
}

// Components returns the components present, sorted.
func (st *Store) Components() []model.Component {
	comps := make([]model.Component, 0, len(st.groupsByComp))
	for c := range st.groupsByComp {
		comps = append(comps, c)
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i] < comps[j] })
	return comps
}

// GroupsFor returns the groups with at least one member series for a
// component, sorted.
func (st *Store) GroupsFor(comp model.Component) []string {
	return st.groupsByComp[comp]
}

// GroupSeries returns the member series of a group for one component, in
// unit order. Member units with no series are omitted; the group stages
// detect the gap against the membership.
func (st *Store) GroupSeries(group string, comp model.Component) []*Series {
	var out []*Series
	for _, unit := range st.members.Units(group) {
		if s, ok := st.Series(unit, comp); ok {
			out = append(out, s)
		}
	}
	return out
}

// Members returns the run's membership.
func (st *Store) Members() *model.Membership {
	return st.members
}

// YearRange returns the inclusive year span every series covers.
func (st *Store) YearRange() (int, int) {
	return st.yearMin, st.yearMax
}

// Len returns the number of series.
func (st *Store) Len() int {
	return len(st.keys)
}

// Points returns every point in store order, for export and reporting.
func (st *Store) Points() []*model.SeriesPoint {
	var out []*model.SeriesPoint
	for _, key := range st.keys {
		out = append(out, st.series[key].points...)
	}
	return out
}
