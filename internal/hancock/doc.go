// Package hancock decodes Hancock waveform-LIDAR binary files.
//
// File Format:
//   - Body: RecordCount records, tightly packed, no padding
//   - Trailer (28 bytes): origin X, Y, Z (float64) + RecordCount (uint32)
//
// Record Layout (25 + 8*HitCount bytes):
//   - Zenith, Azimuth, X, Y, Z (float32)
//   - ShotIndex (uint32)
//   - HitCount (uint8)
//   - HitCount interleaved (Range, Reflectance) float32 pairs
//
// All fields use the byte order of the producing machine. Readers default to
// binary.NativeEndian; a different order can be chosen per session.
//
// Sources:
//   - FileSource: buffered streaming reads from disk
//   - MemorySource: the whole file in memory (optionally zstd-decompressed)
//
// Both are consumed through a Cursor, so the Decoder is shared.
package hancock
