package vulkan

import "unsafe"

// unsafePointer returns a pointer to data's first byte, or nil for an
// empty slice. Used for the few goki/vulkan calls (push constants) that
// take a raw unsafe.Pointer instead of a typed slice.
func unsafePointer(data []byte) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Pointer(&data[0])
}
