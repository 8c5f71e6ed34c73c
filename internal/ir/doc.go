// Package ir provides the canonical data types shared by every tlanislide
// package.
//
// This package contains type definitions and their encodings only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - payload numbers are int64
//   - All JSON tags use snake_case
//   - Ordering is expressed by GlobalIndex and logical revision seq only,
//     never wall-clock timestamps
package ir
