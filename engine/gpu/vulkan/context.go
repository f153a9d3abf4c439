// Package vulkan is the concrete engine/gpu.Driver backed by
// github.com/goki/vulkan. Unlike the teacher's renderer/vulkan package,
// there is no VkSurfaceKHR, no swapchain, and no present queue: the
// compositor only ever renders into offscreen VulkanImages that get read
// back to host memory (spec.md's "no windowing system, no swapchain"
// Non-goal), so device selection only needs a queue family that supports
// graphics.
package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/scintillator/scsynth/engine/core"
)

// Context owns the Vulkan instance, the selected physical/logical device,
// the graphics queue, and the single command pool every CommandBuffer is
// allocated from. One Context is created per process.
type Context struct {
	Instance       vk.Instance
	Allocator      *vk.AllocationCallbacks
	PhysicalDevice vk.PhysicalDevice
	Device         vk.Device

	GraphicsQueueIndex uint32
	GraphicsQueue      vk.Queue
	CommandPool        vk.CommandPool

	// queueMu serializes submissions to GraphicsQueue; goki/vulkan queues
	// are not safe for concurrent QueueSubmit calls from multiple goroutines.
	queueMu sync.Mutex
}

// NewContext creates a headless Vulkan instance, selects the first
// physical device exposing a graphics-capable queue family, and opens a
// logical device plus graphics command pool against it.
func NewContext(appName string) (*Context, error) {
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("vulkan: failed to load loader: %w", err)
	}

	appInfo := vk.ApplicationInfo{
		SType:         vk.StructureTypeApplicationInfo,
		PApplicationName: appName,
		ApiVersion:    vk.ApiVersion1_2,
	}
	instanceInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &appInfo,
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&instanceInfo, nil, &instance); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to create instance")
		core.LogError(err.Error())
		return nil, err
	}
	vk.InitInstance(instance)

	ctx := &Context{Instance: instance}

	if err := ctx.selectPhysicalDevice(); err != nil {
		return nil, err
	}
	if err := ctx.createLogicalDevice(); err != nil {
		return nil, err
	}
	if err := ctx.createCommandPool(); err != nil {
		return nil, err
	}
	return ctx, nil
}

func (c *Context) selectPhysicalDevice() error {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(c.Instance, &count, nil); res != vk.Success || count == 0 {
		err := fmt.Errorf("vulkan: no physical devices available")
		core.LogError(err.Error())
		return err
	}
	devices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(c.Instance, &count, devices); res != vk.Success {
		return fmt.Errorf("vulkan: failed to enumerate physical devices")
	}

	for _, device := range devices {
		var familyCount uint32
		vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, nil)
		families := make([]vk.QueueFamilyProperties, familyCount)
		vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, families)

		for i, family := range families {
			family.Deref()
			if vk.QueueFlagBits(family.QueueFlags)&vk.QueueGraphicsBit != 0 {
				c.PhysicalDevice = device
				c.GraphicsQueueIndex = uint32(i)
				return nil
			}
		}
	}
	err := fmt.Errorf("vulkan: no device exposes a graphics queue family")
	core.LogError(err.Error())
	return err
}

func (c *Context) createLogicalDevice() error {
	priorities := []float32{1.0}
	queueInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: c.GraphicsQueueIndex,
		QueueCount:       1,
		PQueuePriorities: priorities,
	}
	features := vk.PhysicalDeviceFeatures{}
	deviceInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos:    []vk.DeviceQueueCreateInfo{queueInfo},
		PEnabledFeatures:     []vk.PhysicalDeviceFeatures{features},
	}

	var device vk.Device
	if res := vk.CreateDevice(c.PhysicalDevice, &deviceInfo, c.Allocator, &device); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to create logical device")
		core.LogError(err.Error())
		return err
	}
	c.Device = device
	vk.InitDevice(device)

	var queue vk.Queue
	vk.GetDeviceQueue(c.Device, c.GraphicsQueueIndex, 0, &queue)
	c.GraphicsQueue = queue
	return nil
}

func (c *Context) createCommandPool() error {
	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: c.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(c.Device, &poolInfo, c.Allocator, &pool); res != vk.Success {
		err := fmt.Errorf("vulkan: failed to create command pool")
		core.LogError(err.Error())
		return err
	}
	c.CommandPool = pool
	return nil
}

// FindMemoryIndex returns the index of a memory type satisfying both
// typeFilter (a bitmask from VkMemoryRequirements) and propertyFlags, or
// -1 if none qualifies.
func (c *Context) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	var props vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(c.PhysicalDevice, &props)
	props.Deref()

	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		props.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 && vk.MemoryPropertyFlags(props.MemoryTypes[i].PropertyFlags)&propertyFlags == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("vulkan: no suitable memory type for filter %#x flags %#x", typeFilter, propertyFlags)
	return -1
}

// Destroy tears the context down in reverse acquisition order.
func (c *Context) Destroy() {
	if c.CommandPool != nil {
		vk.DestroyCommandPool(c.Device, c.CommandPool, c.Allocator)
		c.CommandPool = nil
	}
	if c.Device != nil {
		vk.DestroyDevice(c.Device, c.Allocator)
		c.Device = nil
	}
	if c.Instance != nil {
		vk.DestroyInstance(c.Instance, c.Allocator)
		c.Instance = nil
	}
}
