package vseek

import (
	"unsafe"

	"github.com/vseek/vseek/avutil"
)

// mergeField copies contributor's field rows into host in place, per
// §4.6.6: for each plane, for each row at the contributing field's parity,
// min(src_stride, dst_stride) bytes are copied from contributor to host.
// host must be made writable first.
func mergeField(host, contributor *BestVideoFrame, hostIsTop bool) error {
	if err := avutil.FrameMakeWritable(host.frame); err != nil {
		return errExportFailure(err, "merge_field: make host writable")
	}

	pixFmt := avutil.GetFrameFormat(host.frame)
	desc, ok := avutil.GetPixFmtDescriptor(pixFmt)
	if !ok {
		return errExportFailure(nil, "merge_field: unknown pixel format")
	}

	height := int(avutil.GetFrameHeight(host.frame))
	startRow := 1
	if !hostIsTop {
		startRow = 0
	}

	for plane := 0; plane < desc.NumPlanes(); plane++ {
		srcStride := int(avutil.GetFrameLinesize(contributor.frame, plane))
		dstStride := int(avutil.GetFrameLinesize(host.frame, plane))
		srcData := avutil.GetFramePlaneData(contributor.frame, plane)
		dstData := avutil.GetFramePlaneData(host.frame, plane)
		if srcData == nil || dstData == nil || srcStride <= 0 || dstStride <= 0 {
			continue
		}

		rows := height
		if plane == 1 || plane == 2 {
			rows = height >> desc.Log2ChromaH
		}

		n := srcStride
		if dstStride < n {
			n = dstStride
		}

		for row := startRow; row < rows; row += 2 {
			srcPtr := unsafe.Pointer(uintptr(srcData) + uintptr(row)*uintptr(srcStride))
			dstPtr := unsafe.Pointer(uintptr(dstData) + uintptr(row)*uintptr(dstStride))
			copy(unsafe.Slice((*byte)(dstPtr), n), unsafe.Slice((*byte)(srcPtr), n))
		}
	}

	return nil
}
