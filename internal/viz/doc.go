// Package viz renders a pendulum run in the terminal.
//
//   - [Canvas]: Braille-based pixel canvas
//   - [Scene]: phase trace over the direction field, and the swinging pendulum
//   - [Player]: Bubble Tea model that replays a scene
//
// The player only responds to quit keys (q, Esc, Ctrl+C). Playback advances
// Stride samples per tick and holds on the last frame.
//
// Rendered frames ([Scene.Image]) use the same panels, so the terminal view
// and exported animations match.
package viz
