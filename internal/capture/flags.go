package capture

import (
	"encoding/json"
	"fmt"
)

// ActionFlags classifies what an action in the frame does. The wire and index
// representation is a list of flag names; the bitmask exists only in memory.
type ActionFlags uint32

const (
	FlagDrawcall ActionFlags = 1 << iota
	FlagDispatch
	FlagClear
	FlagPushMarker
	FlagPopMarker
	FlagSetMarker
	FlagPresent
	FlagCopy
	FlagResolve
	FlagGenMips
	FlagPassBoundary
	FlagIndexed
	FlagInstanced
	FlagAuto
	FlagIndirect
	FlagClearColor
	FlagClearDepthStencil
	FlagBeginPass
	FlagEndPass
)

// flagNames is ordered; Names() output follows it.
var flagNames = []struct {
	flag ActionFlags
	name string
}{
	{FlagDrawcall, "Drawcall"},
	{FlagDispatch, "Dispatch"},
	{FlagClear, "Clear"},
	{FlagPushMarker, "PushMarker"},
	{FlagPopMarker, "PopMarker"},
	{FlagSetMarker, "SetMarker"},
	{FlagPresent, "Present"},
	{FlagCopy, "Copy"},
	{FlagResolve, "Resolve"},
	{FlagGenMips, "GenMips"},
	{FlagPassBoundary, "PassBoundary"},
	{FlagIndexed, "Indexed"},
	{FlagInstanced, "Instanced"},
	{FlagAuto, "Auto"},
	{FlagIndirect, "Indirect"},
	{FlagClearColor, "ClearColor"},
	{FlagClearDepthStencil, "ClearDepthStencil"},
	{FlagBeginPass, "BeginPass"},
	{FlagEndPass, "EndPass"},
}

// Names returns the set flag names in canonical order.
func (f ActionFlags) Names() []string {
	names := make([]string, 0, 4)
	for _, e := range flagNames {
		if f&e.flag != 0 {
			names = append(names, e.name)
		}
	}
	return names
}

// IsMarker reports whether the action is a push/set/pop marker.
func (f ActionFlags) IsMarker() bool {
	return f&(FlagPushMarker|FlagSetMarker|FlagPopMarker) != 0
}

// ParseFlag converts a flag name back to its bit.
func ParseFlag(name string) (ActionFlags, error) {
	for _, e := range flagNames {
		if e.name == name {
			return e.flag, nil
		}
	}
	return 0, fmt.Errorf("unknown action flag: %s", name)
}

// MarshalJSON encodes the flags as a name list.
func (f ActionFlags) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Names())
}

// UnmarshalJSON decodes a name list back into the bitmask. Unknown names are
// rejected so a bad index file fails loudly at load time.
func (f *ActionFlags) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var flags ActionFlags
	for _, name := range names {
		bit, err := ParseFlag(name)
		if err != nil {
			return err
		}
		flags |= bit
	}
	*f = flags
	return nil
}
