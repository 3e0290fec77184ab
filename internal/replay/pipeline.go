package replay

import (
	"strconv"

	"github.com/capbridge/capbridge/internal/capture"
)

func (c *Controller) pipelineAt(eventID uint32) (*capture.PipelineState, error) {
	cap, err := c.loaded()
	if err != nil {
		return nil, err
	}
	pl, ok := cap.Pipelines[strconv.FormatUint(uint64(eventID), 10)]
	if !ok {
		return nil, notFound("no pipeline state recorded at event %d", eventID)
	}
	return pl, nil
}

type shaderInfoArgs struct {
	EventID *uint32 `json:"event_id"`
	Stage   string  `json:"stage"`
}

// ShaderInfo is the result of get_shader_info: the shader bound to one stage
// at an event, merging the stage's bindings with the shader's reflection.
type ShaderInfo struct {
	EventID         uint32                    `json:"event_id"`
	Stage           string                    `json:"stage"`
	ResourceID      string                    `json:"resource_id"`
	EntryPoint      string                    `json:"entry_point"`
	Disassembly     string                    `json:"disassembly,omitempty"`
	ConstantBuffers []capture.ConstantBuffer  `json:"constant_buffers"`
	Resources       []capture.ResourceBinding `json:"resources"`
	UAVs            []capture.ResourceBinding `json:"uavs"`
	Samplers        []capture.Sampler         `json:"samplers"`
}

func (c *Controller) shaderInfo(args map[string]any) (*ShaderInfo, error) {
	var a shaderInfoArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.EventID == nil {
		return nil, invalidArgument("event_id is required")
	}
	if a.Stage == "" {
		return nil, invalidArgument("stage is required")
	}
	stage, err := parseStage(a.Stage)
	if err != nil {
		return nil, invalidArgument("%v", err)
	}

	pl, err := c.pipelineAt(*a.EventID)
	if err != nil {
		return nil, err
	}
	state := pl.Shaders[stage]
	if state == nil || state.ResourceID == "" {
		return nil, notFound("no %s shader bound at event %d", stage, *a.EventID)
	}

	info := &ShaderInfo{
		EventID:         *a.EventID,
		Stage:           stage,
		ResourceID:      state.ResourceID,
		EntryPoint:      state.EntryPoint,
		ConstantBuffers: state.ConstantBuffers,
		Resources:       state.Resources,
		UAVs:            state.UAVs,
		Samplers:        state.Samplers,
	}

	// The shader object itself carries reflection the bound state may lack.
	if sh := c.lookupShader(state.ResourceID); sh != nil {
		info.Disassembly = sh.Disassembly
		if info.EntryPoint == "" {
			info.EntryPoint = sh.EntryPoint
		}
		if len(info.ConstantBuffers) == 0 {
			info.ConstantBuffers = sh.ConstantBuffers
		}
		if len(info.Resources) == 0 {
			info.Resources = sh.Resources
		}
	}

	if info.ConstantBuffers == nil {
		info.ConstantBuffers = []capture.ConstantBuffer{}
	}
	if info.Resources == nil {
		info.Resources = []capture.ResourceBinding{}
	}
	if info.UAVs == nil {
		info.UAVs = []capture.ResourceBinding{}
	}
	if info.Samplers == nil {
		info.Samplers = []capture.Sampler{}
	}
	return info, nil
}

// lookupShader resolves a shader by resource id, tolerating both accepted id
// spellings in the index's shader map keys.
func (c *Controller) lookupShader(id string) *capture.Shader {
	if sh, ok := c.cap.Shaders[id]; ok {
		return sh
	}
	for key, sh := range c.cap.Shaders {
		if sameResource(key, id) {
			return sh
		}
	}
	return nil
}

// InputAssembly is the fixed-function input stage of the pipeline.
type InputAssembly struct {
	Topology string `json:"topology"`
}

// PipelineInfo is the result of get_pipeline_state.
type PipelineInfo struct {
	EventID       uint32                         `json:"event_id"`
	API           string                         `json:"api"`
	Shaders       map[string]*capture.StageState `json:"shaders"`
	Viewports     []capture.Viewport             `json:"viewports"`
	RenderTargets []capture.RenderTarget         `json:"render_targets"`
	DepthTarget   string                         `json:"depth_target,omitempty"`
	InputAssembly InputAssembly                  `json:"input_assembly"`
}

func (c *Controller) pipelineState(args map[string]any) (*PipelineInfo, error) {
	var a eventArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.EventID == nil {
		return nil, invalidArgument("event_id is required")
	}

	pl, err := c.pipelineAt(*a.EventID)
	if err != nil {
		return nil, err
	}

	shaders := pl.Shaders
	if shaders == nil {
		shaders = map[string]*capture.StageState{}
	}
	viewports := pl.Viewports
	if viewports == nil {
		viewports = []capture.Viewport{}
	}
	targets := pl.RenderTargets
	if targets == nil {
		targets = []capture.RenderTarget{}
	}

	return &PipelineInfo{
		EventID:       *a.EventID,
		API:           c.cap.API,
		Shaders:       shaders,
		Viewports:     viewports,
		RenderTargets: targets,
		DepthTarget:   pl.DepthTarget,
		InputAssembly: InputAssembly{Topology: pl.Topology},
	}, nil
}
