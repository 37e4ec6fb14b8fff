package sortkey

import "math"

// Draw builds a draw key. Blending is applied before material and depth so
// the tail uses the right layout.
func Draw(fullscreenLayer, viewport, viewportLayer uint8, blending Blending, material, depth uint32) Key {
	var k Key
	k.SetFullscreenLayer(fullscreenLayer)
	k.SetViewport(viewport)
	k.SetViewportLayer(viewportLayer)
	k.SetBlending(blending)
	k.SetMaterial(material)
	k.SetDepth(depth)
	return k
}

// Command builds a command key carrying info in its tail. Command keys sort
// after draw keys of the same viewport, viewport layer and blending type.
func Command(info uint64) Key {
	var k Key
	k.SetCommand(true)
	k.SetCommandInfo(info)
	return k
}

// DepthFromFloat maps a normalized depth in [0, 1] onto the 32-bit depth
// field. Values outside the range are clamped.
func DepthFromFloat(z float32) uint32 {
	switch {
	case z <= 0 || z != z:
		return 0
	case z >= 1:
		return MaxDepth
	}
	return uint32(float64(z) * MaxDepth)
}

// BackToFront inverts a depth so that ascending key order draws far
// geometry first, as translucent blending requires.
func BackToFront(depth uint32) uint32 {
	return math.MaxUint32 - depth
}
