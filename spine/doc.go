// Package spine provides growable, segmented maps keyed by non-negative
// int32 identifiers.
//
// A spine is a list of fixed-size segments. Key k lives in segment
// k/segmentSize at offset k%segmentSize. Segments are allocated lazily on
// first write and never removed. Growing the segment list takes a single
// mutex and re-checks under it; reads and writes to slots of an existing
// segment are lock-free.
//
// Primitive spines (IntMap, LongMap) record presence explicitly per slot, so
// every int32/int64 value can be stored. ObjectMap only supports Put and Get.
//
// ForEach and All observe a prefix of the keys ever written: segments added
// after iteration starts may or may not be visited.
package spine
