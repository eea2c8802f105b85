// Package schemasassets provides embedded target schemas for standalone
// binary behavior.
//
// Schemas are embedded at compile time so schema validation works correctly
// regardless of the working directory or installation location. The target
// schemas are a fixed external contract and immutable at runtime.
package schemasassets

import _ "embed"

// GNSSDataSchema is the embedded gnss_data target schema.
//
//go:embed gnss_data.schema.json
var GNSSDataSchema []byte

// IMUDataSchema is the embedded imu_data target schema.
//
//go:embed imu_data.schema.json
var IMUDataSchema []byte
