// Package ir provides the value and triple types shared by every factlog package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float values - use Int for numbers so canonical encoding stays exact
//   - Every Value variant is comparable with ==, so facts key Go maps directly
//   - Bindings are persistent: Extend never mutates the receiver
//   - Attribute identity is the key alone; the type tag is advisory
package ir
