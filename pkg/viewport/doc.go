// Package viewport manages the visible rectangle over a 2D vector scene.
//
// A ViewState owns the window and keeps it inside the scene and the zoom
// limits, with its height locked to the scene's aspect ratio. Constraints
// holds the pure pan and zoom transforms. A GestureAdapter turns pointer,
// wheel and button input into those transforms and pushes every committed
// window to a Surface.
package viewport
