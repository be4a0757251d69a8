package main

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// gpuDevice is a headless adapter, device and queue used by play -gpu.
type gpuDevice struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
}

// openDevice requests an adapter without a surface. Pose uploads only need a queue.
func openDevice() (*gpuDevice, error) {
	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("gpu: request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "Rigtool Device"})
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("gpu: request device: %w", err)
	}
	common.Logger().Debug("gpu device ready")
	return &gpuDevice{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    device.GetQueue(),
	}, nil
}

func (g *gpuDevice) release() {
	g.queue.Release()
	g.device.Release()
	g.adapter.Release()
	g.instance.Release()
}
