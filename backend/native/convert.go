// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/cube/gpucore"
)

func textureFormat(f gpucore.Format) (gputypes.TextureFormat, bool) {
	switch f {
	case gpucore.FormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm, true
	case gpucore.FormatBGRA8Unorm:
		return gputypes.TextureFormatBGRA8Unorm, true
	case gpucore.FormatD24UnormS8:
		return gputypes.TextureFormatDepth24PlusStencil8, true
	case gpucore.FormatD32Float:
		return gputypes.TextureFormatDepth32Float, true
	default:
		return gputypes.TextureFormatUndefined, false
	}
}

func vertexFormat(f gpucore.VertexFormat) gputypes.VertexFormat {
	switch f {
	case gpucore.VertexFloat32x2:
		return gputypes.VertexFormatFloat32x2
	case gpucore.VertexFloat32x3:
		return gputypes.VertexFormatFloat32x3
	case gpucore.VertexUnorm8x4:
		return gputypes.VertexFormatUnorm8x4
	default:
		return gputypes.VertexFormatFloat32x4
	}
}

func indexFormat(f gpucore.IndexFormat) gputypes.IndexFormat {
	if f == gpucore.IndexUint32 {
		return gputypes.IndexFormatUint32
	}
	return gputypes.IndexFormatUint16
}

// stateUsage maps a texture resource state to the hal usage it implies.
func stateUsage(s gpucore.ResourceState) gputypes.TextureUsage {
	switch s {
	case gpucore.StateRenderTarget, gpucore.StateDepthWrite:
		return gputypes.TextureUsageRenderAttachment
	case gpucore.StateCopySource, gpucore.StatePresent:
		return gputypes.TextureUsageCopySrc
	case gpucore.StatePixelShaderResource, gpucore.StateGenericRead:
		return gputypes.TextureUsageTextureBinding
	default:
		return gputypes.TextureUsageCopyDst
	}
}
