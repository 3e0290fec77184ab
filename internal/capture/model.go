// Package capture models the contents of a graphics capture as exposed to
// bridge queries: the action tree of a frame, resource descriptions, shader
// reflection and per-event pipeline state. Captures are loaded from an index
// document exported alongside the raw capture file.
package capture

// Action is one entry in the frame's action tree: a draw, dispatch, clear,
// copy, present or debug marker.
type Action struct {
	EventID        uint32      `json:"event_id"`
	ActionID       uint32      `json:"action_id"`
	Name           string      `json:"name"`
	Flags          ActionFlags `json:"flags"`
	NumIndices     uint32      `json:"num_indices"`
	NumInstances   uint32      `json:"num_instances"`
	BaseVertex     int32       `json:"base_vertex,omitempty"`
	VertexOffset   uint32      `json:"vertex_offset,omitempty"`
	InstanceOffset uint32      `json:"instance_offset,omitempty"`
	IndexOffset    uint32      `json:"index_offset,omitempty"`
	Outputs        []string    `json:"outputs,omitempty"`
	DepthOutput    string      `json:"depth_output,omitempty"`
	Children       []*Action   `json:"children,omitempty"`
}

// Subresource holds the pixel data for one (mip, slice, sample) of a texture.
type Subresource struct {
	Mip    uint32 `json:"mip"`
	Slice  uint32 `json:"slice"`
	Sample uint32 `json:"sample"`
	Data   []byte `json:"data_base64"`
}

// Texture describes a texture resource.
type Texture struct {
	ResourceID   string        `json:"resource_id"`
	Name         string        `json:"name,omitempty"`
	Width        uint32        `json:"width"`
	Height       uint32        `json:"height"`
	Depth        uint32        `json:"depth"`
	ArraySize    uint32        `json:"array_size"`
	Mips         uint32        `json:"mip_levels"`
	MSAASamples  uint32        `json:"msaa_samples"`
	Cubemap      bool          `json:"cubemap,omitempty"`
	Format       string        `json:"format"`
	Dimension    string        `json:"dimension"`
	ByteSize     uint64        `json:"byte_size"`
	Subresources []Subresource `json:"subresources,omitempty"`
}

// Buffer describes a buffer resource, optionally with its contents.
type Buffer struct {
	ResourceID string `json:"resource_id"`
	Name       string `json:"name,omitempty"`
	Length     uint64 `json:"length"`
	Data       []byte `json:"data_base64,omitempty"`
}

// Variable is a reflected shader constant, possibly nested.
type Variable struct {
	Name    string     `json:"name"`
	Type    string     `json:"type"`
	Rows    int        `json:"rows"`
	Columns int        `json:"columns"`
	Value   []any      `json:"value,omitempty"`
	Members []Variable `json:"members,omitempty"`
}

// ConstantBuffer is one reflected constant buffer of a shader stage.
type ConstantBuffer struct {
	Slot      int        `json:"slot"`
	Name      string     `json:"name"`
	ByteSize  uint64     `json:"byte_size"`
	Variables []Variable `json:"variables,omitempty"`
}

// ResourceBinding is a read-only or read-write resource bound to a stage.
type ResourceBinding struct {
	Slot       int    `json:"slot"`
	Name       string `json:"name,omitempty"`
	ResourceID string `json:"resource_id"`
	FirstMip   uint32 `json:"first_mip,omitempty"`
	NumMips    uint32 `json:"num_mips,omitempty"`
	FirstSlice uint32 `json:"first_slice,omitempty"`
	NumSlices  uint32 `json:"num_slices,omitempty"`
}

// Sampler is a sampler bound to a stage.
type Sampler struct {
	Slot     int    `json:"slot"`
	Name     string `json:"name,omitempty"`
	AddressU string `json:"address_u,omitempty"`
	AddressV string `json:"address_v,omitempty"`
	AddressW string `json:"address_w,omitempty"`
	Filter   string `json:"filter,omitempty"`
}

// Shader holds reflection and disassembly for one shader object.
type Shader struct {
	ResourceID      string            `json:"resource_id"`
	Stage           string            `json:"stage"`
	EntryPoint      string            `json:"entry_point"`
	Disassembly     string            `json:"disassembly,omitempty"`
	ConstantBuffers []ConstantBuffer  `json:"constant_buffers,omitempty"`
	Resources       []ResourceBinding `json:"resources,omitempty"`
}

// StageState is the bound state of one shader stage at an event.
type StageState struct {
	ResourceID      string            `json:"resource_id"`
	EntryPoint      string            `json:"entry_point"`
	Resources       []ResourceBinding `json:"resources,omitempty"`
	UAVs            []ResourceBinding `json:"uavs,omitempty"`
	Samplers        []Sampler         `json:"samplers,omitempty"`
	ConstantBuffers []ConstantBuffer  `json:"constant_buffers,omitempty"`
}

// Viewport is one entry of the rasterizer viewport state.
type Viewport struct {
	X        float32 `json:"x"`
	Y        float32 `json:"y"`
	Width    float32 `json:"width"`
	Height   float32 `json:"height"`
	MinDepth float32 `json:"min_depth"`
	MaxDepth float32 `json:"max_depth"`
}

// RenderTarget is a bound color output.
type RenderTarget struct {
	Index      int    `json:"index"`
	ResourceID string `json:"resource_id"`
}

// PipelineState is the full bound state at one event.
type PipelineState struct {
	Shaders       map[string]*StageState `json:"shaders"`
	Viewports     []Viewport             `json:"viewports,omitempty"`
	RenderTargets []RenderTarget         `json:"render_targets,omitempty"`
	DepthTarget   string                 `json:"depth_target,omitempty"`
	Topology      string                 `json:"topology,omitempty"`
}

// Capture is a fully loaded capture index.
type Capture struct {
	API       string                    `json:"api"`
	Actions   []*Action                 `json:"actions"`
	Textures  []*Texture                `json:"textures,omitempty"`
	Buffers   []*Buffer                 `json:"buffers,omitempty"`
	Shaders   map[string]*Shader        `json:"shaders,omitempty"`   // keyed by resource id
	Pipelines map[string]*PipelineState `json:"pipelines,omitempty"` // keyed by decimal event id

	// Filename is the capture file this index was exported from; set at load.
	Filename string `json:"-"`
}

// Flatten returns the action tree as a depth-first list.
func Flatten(actions []*Action) []*Action {
	var flat []*Action
	for _, a := range actions {
		flat = append(flat, a)
		if len(a.Children) > 0 {
			flat = append(flat, Flatten(a.Children)...)
		}
	}
	return flat
}

// CountChildren counts all descendants of an action.
func CountChildren(a *Action) int {
	count := 0
	for _, c := range a.Children {
		count += 1 + CountChildren(c)
	}
	return count
}

// FindAction locates the action at the given event id, searching the whole
// tree. Returns nil when no action exists at that event.
func FindAction(actions []*Action, eventID uint32) *Action {
	for _, a := range actions {
		if a.EventID == eventID {
			return a
		}
		if found := FindAction(a.Children, eventID); found != nil {
			return found
		}
	}
	return nil
}
