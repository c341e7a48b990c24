package flagging

import (
	"fmt"

	"github.com/ONSdigital/gdhi-adj/internal/model"
	"github.com/ONSdigital/gdhi-adj/internal/timeseries"
)

// GroupCheckError reports a group whose flag distribution fails a pre-flight
// check. The group's touched slices for the component are skipped rather
// than adjusted.
type GroupCheckError struct {
	Group     string
	Component model.Component
	Reason    string
}

func (e *GroupCheckError) Error() string {
	return fmt.Sprintf("flagging: group %s component %s: %s", e.Group, e.Component, e.Reason)
}

// Preflight validates the flag distribution after flagging and before
// imputation. It returns one error per violated check:
//   - an override must name a series that exists;
//   - a group containing a flagged unit must have at least minGroupSize
//     member units, so redistribution has somewhere to go;
//   - a group must keep at least one unflagged unit per component.
func Preflight(st *timeseries.Store, cc *Compiled, minGroupSize int) []error {
	var errs []error

	for _, key := range cc.OverrideKeys() {
		if _, ok := st.Series(key.Unit, key.Component); !ok {
			errs = append(errs, fmt.Errorf("flagging: override names unknown series %s %s", key.Unit, key.Component))
		}
	}

	members := st.Members()
	for _, comp := range st.Components() {
		for _, group := range st.GroupsFor(comp) {
			series := st.GroupSeries(group, comp)

			anyFlagged := false
			allFlagged := true
			for _, s := range series {
				if len(s.FlaggedYears()) > 0 {
					anyFlagged = true
				} else {
					allFlagged = false
				}
			}
			if !anyFlagged {
				continue
			}
			if size := len(members.Units(group)); size < minGroupSize {
				errs = append(errs, &GroupCheckError{
					Group:     group,
					Component: comp,
					Reason:    fmt.Sprintf("only %d member units, need %d for redistribution", size, minGroupSize),
				})
			}
			if allFlagged {
				errs = append(errs, &GroupCheckError{
					Group:     group,
					Component: comp,
					Reason:    "every member unit is flagged",
				})
			}
		}
	}
	return errs
}
