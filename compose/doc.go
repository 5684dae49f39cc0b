// Package compose resolves component-level binary dependencies into an
// ordered composition plan.
//
// A component dependency is a previously built component whose exports
// satisfy interfaces the consuming world imports. Each dependency binary
// carries its own encoded target section, so compatibility is checked
// against what the dependency actually exports rather than against
// whatever WIT sources happen to be on disk. The plan orders dependencies
// before the root so their exports are available when the root's imports
// are wired during assembly.
package compose
