// Package diag defines the diagnostic model shared by every compiler pass.
//
// Passes report through a Reporter and never abort on the first user
// error; the driver checks the accumulated Bag between pipeline stages.
// SevInternal diagnostics are compiler bugs and abort compilation.
package diag
