package gfx

import "github.com/gogpu/engine/sortkey"

// Fullscreen layers.
const (
	LayerSetup   uint8 = iota // Uploads and clears
	LayerWorld                // Scene geometry
	LayerEffects              // Fullscreen effects
	LayerHUD                  // Overlays
)

// Setup steps, in dispatch order within LayerSetup.
const (
	StepUpload  uint64 = iota // Resource creation
	StepClear                 // Target clears
	StepDestroy               // Resource destruction
)

// SetupKey returns the command key for a setup step.
func SetupKey(step uint64) sortkey.Key {
	k := sortkey.Command(step)
	k.SetFullscreenLayer(LayerSetup)
	return k
}

// OpaqueKey returns the key for opaque world geometry.
func OpaqueKey(viewport uint8, material, depth uint32) sortkey.Key {
	return sortkey.Draw(LayerWorld, viewport, 0, sortkey.Opaque, material, depth)
}

// TranslucentKey returns the key for blended world geometry. Depth is
// inverted so farther geometry dispatches first.
func TranslucentKey(viewport uint8, material, depth uint32) sortkey.Key {
	return sortkey.Draw(LayerWorld, viewport, 0, sortkey.Translucent, material, sortkey.BackToFront(depth))
}

// HUDKey returns the key for overlay geometry, drawn after the world in
// ascending order.
func HUDKey(order uint32) sortkey.Key {
	return sortkey.Draw(LayerHUD, 0, 0, sortkey.Translucent, 0, order)
}
