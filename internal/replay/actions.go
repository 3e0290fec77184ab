package replay

import (
	"github.com/capbridge/capbridge/internal/capture"
)

type drawCallArgs struct {
	IncludeChildren *bool    `json:"include_children"`
	MarkerFilter    string   `json:"marker_filter"`
	ExcludeMarkers  []string `json:"exclude_markers"`
	EventIDMin      *uint32  `json:"event_id_min"`
	EventIDMax      *uint32  `json:"event_id_max"`
	OnlyActions     bool     `json:"only_actions"`
	FlagsFilter     []string `json:"flags_filter"`
}

// DrawCallList is the result of get_draw_calls.
type DrawCallList struct {
	Count   int                `json:"count"`
	Actions []*capture.Summary `json:"actions"`
}

func (c *Controller) drawCalls(args map[string]any) (*DrawCallList, error) {
	cap, err := c.loaded()
	if err != nil {
		return nil, err
	}

	var a drawCallArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	for _, name := range a.FlagsFilter {
		if _, perr := capture.ParseFlag(name); perr != nil {
			return nil, invalidArgument("flags_filter: %v", perr)
		}
	}

	f := capture.Filter{
		IncludeChildren: a.IncludeChildren == nil || *a.IncludeChildren,
		MarkerFilter:    a.MarkerFilter,
		ExcludeMarkers:  a.ExcludeMarkers,
		EventIDMin:      a.EventIDMin,
		EventIDMax:      a.EventIDMax,
		OnlyActions:     a.OnlyActions,
		FlagNames:       a.FlagsFilter,
	}

	actions := capture.FilterActions(cap.Actions, f)
	return &DrawCallList{Count: countSummaries(actions), Actions: actions}, nil
}

func countSummaries(nodes []*capture.Summary) int {
	n := 0
	for _, node := range nodes {
		n += 1 + countSummaries(node.Children)
	}
	return n
}

// MarkerSummary is one top-level debug region of the frame.
type MarkerSummary struct {
	Name       string `json:"name"`
	EventID    uint32 `json:"event_id"`
	ChildCount int    `json:"child_count"`
}

// FrameSummary is the result of get_frame_summary: aggregate counts for the
// whole frame plus its top-level debug regions.
type FrameSummary struct {
	API          string          `json:"api"`
	Filename     string          `json:"filename"`
	TotalActions int             `json:"total_actions"`
	DrawCalls    int             `json:"draw_calls"`
	Dispatches   int             `json:"dispatches"`
	Clears       int             `json:"clears"`
	Copies       int             `json:"copies"`
	Presents     int             `json:"presents"`
	Markers      int             `json:"markers"`
	TopMarkers   []MarkerSummary `json:"top_level_markers"`
	Textures     int             `json:"textures"`
	Buffers      int             `json:"buffers"`
	Shaders      int             `json:"shaders"`
}

func (c *Controller) frameSummary() (*FrameSummary, error) {
	cap, err := c.loaded()
	if err != nil {
		return nil, err
	}

	s := &FrameSummary{
		API:        cap.API,
		Filename:   cap.Filename,
		TopMarkers: []MarkerSummary{},
		Textures:   len(cap.Textures),
		Buffers:    len(cap.Buffers),
		Shaders:    len(cap.Shaders),
	}

	// Flags are counted independently: a single action can be both a draw and
	// a clear. Markers are push/set only; pops close a region, they are not one.
	for _, a := range capture.Flatten(cap.Actions) {
		s.TotalActions++
		if a.Flags&capture.FlagDrawcall != 0 {
			s.DrawCalls++
		}
		if a.Flags&capture.FlagDispatch != 0 {
			s.Dispatches++
		}
		if a.Flags&capture.FlagClear != 0 {
			s.Clears++
		}
		if a.Flags&capture.FlagCopy != 0 {
			s.Copies++
		}
		if a.Flags&capture.FlagPresent != 0 {
			s.Presents++
		}
		if a.Flags&(capture.FlagPushMarker|capture.FlagSetMarker) != 0 {
			s.Markers++
		}
	}

	// Top-level regions orient the caller before any filtered query.
	for _, a := range cap.Actions {
		if a.Flags&capture.FlagPushMarker != 0 {
			s.TopMarkers = append(s.TopMarkers, MarkerSummary{
				Name:       a.Name,
				EventID:    a.EventID,
				ChildCount: capture.CountChildren(a),
			})
		}
	}

	return s, nil
}

type eventArgs struct {
	EventID *uint32 `json:"event_id"`
}

// DrawCallDetails is the result of get_draw_call_details.
type DrawCallDetails struct {
	EventID        uint32   `json:"event_id"`
	ActionID       uint32   `json:"action_id"`
	Name           string   `json:"name"`
	Flags          []string `json:"flags"`
	NumIndices     uint32   `json:"num_indices"`
	NumInstances   uint32   `json:"num_instances"`
	BaseVertex     int32    `json:"base_vertex"`
	VertexOffset   uint32   `json:"vertex_offset"`
	InstanceOffset uint32   `json:"instance_offset"`
	IndexOffset    uint32   `json:"index_offset"`
	Outputs        []string `json:"outputs"`
	DepthOutput    string   `json:"depth_output,omitempty"`
	ChildCount     int      `json:"child_count"`
}

func (c *Controller) drawCallDetails(args map[string]any) (*DrawCallDetails, error) {
	cap, err := c.loaded()
	if err != nil {
		return nil, err
	}

	var a eventArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.EventID == nil {
		return nil, invalidArgument("event_id is required")
	}

	action := capture.FindAction(cap.Actions, *a.EventID)
	if action == nil {
		return nil, notFound("no action at event %d", *a.EventID)
	}

	outputs := action.Outputs
	if outputs == nil {
		outputs = []string{}
	}
	return &DrawCallDetails{
		EventID:        action.EventID,
		ActionID:       action.ActionID,
		Name:           action.Name,
		Flags:          action.Flags.Names(),
		NumIndices:     action.NumIndices,
		NumInstances:   action.NumInstances,
		BaseVertex:     action.BaseVertex,
		VertexOffset:   action.VertexOffset,
		InstanceOffset: action.InstanceOffset,
		IndexOffset:    action.IndexOffset,
		Outputs:        outputs,
		DepthOutput:    action.DepthOutput,
		ChildCount:     capture.CountChildren(action),
	}, nil
}
