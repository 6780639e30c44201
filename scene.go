// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cube

import (
	"fmt"

	"github.com/gogpu/cube/asset"
	"github.com/gogpu/cube/gpucore"
	"github.com/gogpu/cube/internal/devres"
	"github.com/gogpu/cube/internal/record"
	"github.com/gogpu/cube/internal/swapchain"
	"github.com/gogpu/cube/internal/upload"
	"github.com/gogpu/cube/overlay"
)

// sceneAssets are the CPU-side inputs of the scene. They survive device
// loss.
type sceneAssets struct {
	image  asset.Image
	vertex gpucore.ShaderCode
	pixel  gpucore.ShaderCode
}

// scene holds the application objects created on the current device.
type scene struct {
	heap      gpucore.DescriptorHeap
	pipeline  gpucore.Pipeline
	vertices  gpucore.Buffer
	indices   gpucore.Buffer
	texture   gpucore.Texture
	constants *upload.Mapped
	bundle    *record.Bundle
	overlay   *overlay.Overlay
}

// newScene creates the cube's device objects and uploads their contents
// with one blocking submission.
func newScene(res *devres.Resources, in sceneAssets) (s *scene, err error) {
	dev := res.Device()
	chain := res.Chain()
	s = &scene{heap: res.Heaps().Shader}
	defer func() {
		if err != nil {
			s.release()
		}
	}()

	if s.pipeline, err = dev.CreatePipeline(gpucore.PipelineDesc{
		Label:  "cube",
		Vertex: in.vertex,
		Pixel:  in.pixel,
		Attributes: []gpucore.VertexAttribute{
			{Location: 0, Format: gpucore.VertexFloat32x3, Offset: 0},
			{Location: 1, Format: gpucore.VertexFloat32x2, Offset: 12},
		},
		VertexStride: vertexStride,
		RTFormat:     chain.Format(),
		DSFormat:     depthFormat,
		DepthTest:    true,
	}); err != nil {
		return nil, fmt.Errorf("cube: pipeline: %w", err)
	}

	verts, indices := cubeMesh()
	vb, ib := vertexBytes(verts), indexBytes(indices)
	if s.vertices, err = dev.CreateBuffer(gpucore.BufferDesc{
		Label: "cube vertices", Size: uint64(len(vb)), State: gpucore.StateCopyDest,
	}); err != nil {
		return nil, fmt.Errorf("cube: vertex buffer: %w", err)
	}
	if s.indices, err = dev.CreateBuffer(gpucore.BufferDesc{
		Label: "cube indices", Size: uint64(len(ib)), State: gpucore.StateCopyDest,
	}); err != nil {
		return nil, fmt.Errorf("cube: index buffer: %w", err)
	}
	img := in.image
	if s.texture, err = dev.CreateTexture(gpucore.TextureDesc{
		Label:  "cube texture",
		Width:  uint32(img.Width),
		Height: uint32(img.Height),
		Format: gpucore.FormatRGBA8Unorm,
		State:  gpucore.StateCopyDest,
	}); err != nil {
		return nil, fmt.Errorf("cube: texture: %w", err)
	}
	if s.constants, err = upload.NewMapped(dev, "cube constants", constantsSize); err != nil {
		return nil, err
	}

	if err = s.heap.CreateShaderResourceView(s.texture, swapchain.SlotSceneTexture); err != nil {
		return nil, fmt.Errorf("cube: texture view: %w", err)
	}
	cb := s.constants.Buffer()
	if err = s.heap.CreateConstantBufferView(cb, 0, cb.Size(), swapchain.SlotConstants); err != nil {
		return nil, fmt.Errorf("cube: constants view: %w", err)
	}

	var batch upload.Batch
	defer batch.Drop()
	err = res.SubmitAndWait(func(list gpucore.CommandList) error {
		st, err := upload.Buffer(dev, list, s.vertices, vb, gpucore.StateVertexAndConstantBuffer)
		if err != nil {
			return err
		}
		batch.Add(st)
		if st, err = upload.Buffer(dev, list, s.indices, ib, gpucore.StateIndexBuffer); err != nil {
			return err
		}
		batch.Add(st)
		if st, err = upload.Texture(dev, list, s.texture, img.Pix,
			upload.Layout{RowPitch: uint32(img.RowPitch())}, gpucore.StatePixelShaderResource); err != nil {
			return err
		}
		batch.Add(st)
		s.overlay, err = overlay.New(dev, list, &batch, overlay.Config{
			Heap:        s.heap,
			FontSlot:    swapchain.SlotUIFont,
			Format:      chain.Format(),
			DepthFormat: depthFormat,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if err = batch.Release(res.Fence(), res.Timeline().Target()-1); err != nil {
		return nil, err
	}

	if s.bundle, err = record.NewBundle(dev, record.Geometry{
		Pipeline: s.pipeline,
		Vertices: gpucore.VertexBufferView{
			Buffer: s.vertices, Size: uint64(len(vb)), Stride: vertexStride,
		},
		Indices: gpucore.IndexBufferView{
			Buffer: s.indices, Size: uint64(len(ib)), Format: gpucore.IndexUint16,
		},
		IndexCount: uint32(len(indices)),
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// release closes the scene's objects, bundles first. The GPU must be idle
// or the device lost.
func (s *scene) release() {
	if s.overlay != nil {
		s.overlay.Shutdown()
		s.overlay = nil
	}
	if s.bundle != nil {
		s.bundle.Close()
		s.bundle = nil
	}
	if s.heap != nil {
		s.heap.Clear(swapchain.SlotSceneTexture)
		s.heap.Clear(swapchain.SlotConstants)
	}
	if s.constants != nil {
		s.constants.Close()
		s.constants = nil
	}
	for _, r := range []gpucore.Resource{s.texture, s.indices, s.vertices} {
		if r != nil {
			r.Close()
		}
	}
	s.texture, s.indices, s.vertices = nil, nil, nil
	if s.pipeline != nil {
		s.pipeline.Close()
		s.pipeline = nil
	}
}
