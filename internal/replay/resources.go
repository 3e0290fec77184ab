package replay

import (
	"github.com/capbridge/capbridge/internal/capture"
)

type bufferArgs struct {
	ResourceID string `json:"resource_id"`
	Offset     uint64 `json:"offset"`
	Length     uint64 `json:"length"`
}

// BufferContents is the result of get_buffer_contents. Data is the requested
// window of the buffer, base64 on the wire.
type BufferContents struct {
	ResourceID string `json:"resource_id"`
	Name       string `json:"name,omitempty"`
	TotalSize  uint64 `json:"total_size"`
	Offset     uint64 `json:"offset"`
	Length     int    `json:"length"`
	Data       []byte `json:"data_base64"`
}

func (c *Controller) bufferContents(args map[string]any) (*BufferContents, error) {
	cap, err := c.loaded()
	if err != nil {
		return nil, err
	}

	var a bufferArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ResourceID == "" {
		return nil, invalidArgument("resource_id is required")
	}
	if _, perr := numericResourceID(a.ResourceID); perr != nil {
		return nil, invalidArgument("%v", perr)
	}

	buf := findBuffer(cap, a.ResourceID)
	if buf == nil {
		return nil, notFound("no buffer with resource id %s", a.ResourceID)
	}
	if a.Offset > buf.Length {
		return nil, invalidArgument("offset %d beyond buffer length %d", a.Offset, buf.Length)
	}

	// Clamp against the remaining bytes, never via offset+length: the sum can
	// wrap uint64 on hostile input.
	end := buf.Length
	if a.Length > 0 && a.Length < end-a.Offset {
		end = a.Offset + a.Length
	}

	// The index may carry less data than the buffer's declared length.
	data := []byte{}
	if a.Offset < uint64(len(buf.Data)) {
		last := end
		if last > uint64(len(buf.Data)) {
			last = uint64(len(buf.Data))
		}
		data = buf.Data[a.Offset:last]
	}

	return &BufferContents{
		ResourceID: buf.ResourceID,
		Name:       buf.Name,
		TotalSize:  buf.Length,
		Offset:     a.Offset,
		Length:     len(data),
		Data:       data,
	}, nil
}

func findBuffer(cap *capture.Capture, id string) *capture.Buffer {
	for _, b := range cap.Buffers {
		if sameResource(b.ResourceID, id) {
			return b
		}
	}
	return nil
}

func findTexture(cap *capture.Capture, id string) *capture.Texture {
	for _, t := range cap.Textures {
		if sameResource(t.ResourceID, id) {
			return t
		}
	}
	return nil
}

type textureInfoArgs struct {
	ResourceID string `json:"resource_id"`
}

// TextureInfo is the result of get_texture_info: the texture description
// without any pixel data.
type TextureInfo struct {
	ResourceID       string `json:"resource_id"`
	Name             string `json:"name,omitempty"`
	Width            uint32 `json:"width"`
	Height           uint32 `json:"height"`
	Depth            uint32 `json:"depth"`
	ArraySize        uint32 `json:"array_size"`
	MipLevels        uint32 `json:"mip_levels"`
	MSAASamples      uint32 `json:"msaa_samples"`
	Cubemap          bool   `json:"cubemap"`
	Format           string `json:"format"`
	Dimension        string `json:"dimension"`
	ByteSize         uint64 `json:"byte_size"`
	SubresourceCount int    `json:"subresource_count"`
}

func (c *Controller) textureInfo(args map[string]any) (*TextureInfo, error) {
	cap, err := c.loaded()
	if err != nil {
		return nil, err
	}

	var a textureInfoArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ResourceID == "" {
		return nil, invalidArgument("resource_id is required")
	}

	tex := findTexture(cap, a.ResourceID)
	if tex == nil {
		return nil, notFound("no texture with resource id %s", a.ResourceID)
	}

	return &TextureInfo{
		ResourceID:       tex.ResourceID,
		Name:             tex.Name,
		Width:            tex.Width,
		Height:           tex.Height,
		Depth:            tex.Depth,
		ArraySize:        tex.ArraySize,
		MipLevels:        tex.Mips,
		MSAASamples:      tex.MSAASamples,
		Cubemap:          tex.Cubemap,
		Format:           tex.Format,
		Dimension:        tex.Dimension,
		ByteSize:         tex.ByteSize,
		SubresourceCount: len(tex.Subresources),
	}, nil
}

type textureDataArgs struct {
	ResourceID string  `json:"resource_id"`
	Mip        uint32  `json:"mip"`
	Slice      uint32  `json:"slice"`
	Sample     uint32  `json:"sample"`
	DepthSlice *uint32 `json:"depth_slice"`
}

// TextureData is the result of get_texture_data: raw pixel data for one
// subresource, base64 on the wire. Width/Height/Depth are the dimensions of
// the requested mip.
type TextureData struct {
	ResourceID string  `json:"resource_id"`
	Mip        uint32  `json:"mip"`
	Slice      uint32  `json:"slice"`
	Sample     uint32  `json:"sample"`
	DepthSlice *uint32 `json:"depth_slice,omitempty"`
	Width      uint32  `json:"width"`
	Height     uint32  `json:"height"`
	Depth      uint32  `json:"depth"`
	Format     string  `json:"format"`
	SizeBytes  int     `json:"size_bytes"`
	Data       []byte  `json:"data_base64"`
}

func mipDim(base, mip uint32) uint32 {
	d := base >> mip
	if d == 0 {
		d = 1
	}
	return d
}

func (c *Controller) textureData(args map[string]any) (*TextureData, error) {
	cap, err := c.loaded()
	if err != nil {
		return nil, err
	}

	var a textureDataArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ResourceID == "" {
		return nil, invalidArgument("resource_id is required")
	}

	tex := findTexture(cap, a.ResourceID)
	if tex == nil {
		return nil, notFound("no texture with resource id %s", a.ResourceID)
	}
	if a.Mip >= tex.Mips {
		return nil, invalidArgument("mip %d out of range, texture has %d mip levels", a.Mip, tex.Mips)
	}
	// Cubemaps carry six faces per array entry.
	maxSlices := tex.ArraySize
	if tex.Cubemap {
		maxSlices = tex.ArraySize * 6
	}
	if a.Slice >= maxSlices {
		return nil, invalidArgument("slice %d out of range, texture has %d slices", a.Slice, maxSlices)
	}
	if tex.MSAASamples > 0 && a.Sample >= tex.MSAASamples {
		return nil, invalidArgument("sample %d out of range, texture has %d samples", a.Sample, tex.MSAASamples)
	}

	mipDepth := mipDim(tex.Depth, a.Mip)
	if a.DepthSlice != nil {
		if tex.Depth <= 1 {
			return nil, invalidArgument("depth_slice is only valid for 3D textures")
		}
		if *a.DepthSlice >= mipDepth {
			return nil, invalidArgument("depth_slice %d out of range, mip %d has depth %d", *a.DepthSlice, a.Mip, mipDepth)
		}
	}

	var sub *capture.Subresource
	for i := range tex.Subresources {
		s := &tex.Subresources[i]
		if s.Mip == a.Mip && s.Slice == a.Slice && s.Sample == a.Sample {
			sub = s
			break
		}
	}
	if sub == nil {
		return nil, notFound("no data for mip %d slice %d sample %d of %s", a.Mip, a.Slice, a.Sample, tex.ResourceID)
	}

	data := sub.Data
	depth := mipDepth
	if a.DepthSlice != nil && mipDepth > 0 {
		// A 3D subresource stores its depth slices contiguously.
		sliceSize := len(data) / int(mipDepth)
		start := int(*a.DepthSlice) * sliceSize
		data = data[start : start+sliceSize]
		depth = 1
	}

	return &TextureData{
		ResourceID: tex.ResourceID,
		Mip:        a.Mip,
		Slice:      a.Slice,
		Sample:     a.Sample,
		DepthSlice: a.DepthSlice,
		Width:      mipDim(tex.Width, a.Mip),
		Height:     mipDim(tex.Height, a.Mip),
		Depth:      depth,
		Format:     tex.Format,
		SizeBytes:  len(data),
		Data:       data,
	}, nil
}
