package capture

import "strings"

// Filter narrows the action tree returned by draw-call queries.
type Filter struct {
	// IncludeChildren keeps the hierarchy; when false only top-level actions
	// are considered.
	IncludeChildren bool

	// MarkerFilter keeps only actions under push markers whose name contains
	// this substring.
	MarkerFilter string

	// ExcludeMarkers drops markers (and their whole subtree) whose name
	// contains any of these substrings.
	ExcludeMarkers []string

	// EventIDMin/EventIDMax bound the event id range of leaf actions. Markers
	// outside the range are still descended into.
	EventIDMin *uint32
	EventIDMax *uint32

	// OnlyActions drops marker nodes, splicing their children in place.
	OnlyActions bool

	// FlagNames keeps only leaf actions carrying at least one of these flags.
	FlagNames []string
}

// Summary is one filtered node of the action tree as returned to callers.
type Summary struct {
	EventID      uint32     `json:"event_id"`
	ActionID     uint32     `json:"action_id"`
	Name         string     `json:"name"`
	Flags        []string   `json:"flags"`
	NumIndices   uint32     `json:"num_indices"`
	NumInstances uint32     `json:"num_instances"`
	Children     []*Summary `json:"children,omitempty"`
}

// FilterActions walks the action tree and returns the nodes passing the
// filter. Markers survive only when they still have passing descendants, so
// the hierarchy stays meaningful after filtering.
func FilterActions(actions []*Action, f Filter) []*Summary {
	return filterActions(actions, f, false)
}

func filterActions(actions []*Action, f Filter, inMatchingMarker bool) []*Summary {
	var flagSet map[string]struct{}
	if len(f.FlagNames) > 0 {
		flagSet = make(map[string]struct{}, len(f.FlagNames))
		for _, name := range f.FlagNames {
			flagSet[name] = struct{}{}
		}
	}

	var out []*Summary
	for _, action := range actions {
		isMarker := action.Flags.IsMarker()
		isPushMarker := action.Flags&FlagPushMarker != 0

		if isMarker && markerExcluded(action.Name, f.ExcludeMarkers) {
			continue
		}

		inMatching := inMatchingMarker
		if f.MarkerFilter != "" && isPushMarker && strings.Contains(action.Name, f.MarkerFilter) {
			inMatching = true
		}

		inRange := true
		if !isMarker {
			if f.EventIDMin != nil && action.EventID < *f.EventIDMin {
				inRange = false
			}
			if f.EventIDMax != nil && action.EventID > *f.EventIDMax {
				inRange = false
			}
		}

		// OnlyActions splices marker children into the parent level.
		if f.OnlyActions && isMarker {
			if f.IncludeChildren && len(action.Children) > 0 {
				out = append(out, filterActions(action.Children, f, inMatching)...)
			}
			continue
		}

		if flagSet != nil && !isMarker && !hasAnyFlag(action.Flags, flagSet) {
			continue
		}

		passesMarkerFilter := f.MarkerFilter == "" || inMatching

		var children []*Summary
		if f.IncludeChildren && len(action.Children) > 0 {
			children = filterActions(action.Children, f, inMatching)
		}

		// Markers survive purely as containers: if any descendant passed, the
		// marker is kept so the caller still sees where the action lives.
		var include bool
		if isMarker {
			include = len(children) > 0
		} else {
			include = inRange && passesMarkerFilter
		}
		if !include {
			continue
		}

		out = append(out, &Summary{
			EventID:      action.EventID,
			ActionID:     action.ActionID,
			Name:         action.Name,
			Flags:        action.Flags.Names(),
			NumIndices:   action.NumIndices,
			NumInstances: action.NumInstances,
			Children:     children,
		})
	}
	return out
}

func markerExcluded(name string, excludes []string) bool {
	for _, ex := range excludes {
		if strings.Contains(name, ex) {
			return true
		}
	}
	return false
}

func hasAnyFlag(flags ActionFlags, want map[string]struct{}) bool {
	for _, name := range flags.Names() {
		if _, ok := want[name]; ok {
			return true
		}
	}
	return false
}
