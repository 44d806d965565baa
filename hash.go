package vseek

import (
	"unsafe"

	"github.com/vseek/vseek/avutil"
	"github.com/zeebo/xxh3"
)

// frameHash computes the content hash that identifies a decoded frame,
// independent of any container timestamp. For each plane, exactly
// plane-width bytes are hashed per row for plane-height rows, skipping any
// stride padding beyond the meaningful row width.
func frameHash(frame avutil.Frame) uint64 {
	pixFmt := avutil.GetFrameFormat(frame)
	desc, ok := avutil.GetPixFmtDescriptor(pixFmt)
	if !ok {
		return 0
	}

	width := avutil.GetFrameWidth(frame)
	height := avutil.GetFrameHeight(frame)

	var h xxh3.Hasher
	planes := desc.NumPlanes()
	for plane := 0; plane < planes; plane++ {
		data := avutil.GetFramePlaneData(frame, plane)
		stride := avutil.GetFrameLinesize(frame, plane)
		if data == nil || stride <= 0 {
			continue
		}

		rowBytes := int(width) * desc.MaxStepForPlane(plane)
		rows := int(height)
		if plane == 1 || plane == 2 {
			rowBytes = int(width) >> desc.Log2ChromaW
			rowBytes *= desc.MaxStepForPlane(plane)
			rows = int(height) >> desc.Log2ChromaH
		}
		if rowBytes > int(stride) {
			rowBytes = int(stride)
		}
		if rowBytes <= 0 || rows <= 0 {
			continue
		}

		base := uintptr(data)
		for row := 0; row < rows; row++ {
			rowPtr := unsafe.Pointer(base + uintptr(row)*uintptr(stride))
			h.Write(unsafe.Slice((*byte)(rowPtr), rowBytes))
		}
	}

	return h.Sum64()
}

// frameByteSize approximates the sum of a decoded frame's underlying plane
// buffer sizes, used as the Frame Cache's per-entry byte-size accounting.
func frameByteSize(frame avutil.Frame) int64 {
	pixFmt := avutil.GetFrameFormat(frame)
	desc, ok := avutil.GetPixFmtDescriptor(pixFmt)
	if !ok {
		return 0
	}
	height := int64(avutil.GetFrameHeight(frame))

	var total int64
	for plane := 0; plane < desc.NumPlanes(); plane++ {
		stride := int64(avutil.GetFrameLinesize(frame, plane))
		rows := height
		if plane == 1 || plane == 2 {
			rows = height >> desc.Log2ChromaH
		}
		if stride > 0 && rows > 0 {
			total += stride * rows
		}
	}
	return total
}
