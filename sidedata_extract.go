package vseek

import "github.com/vseek/vseek/avutil"

// populateFrameMetadata fills the flat per-frame metadata view of a
// BestVideoFrame from its underlying decoded AVFrame, including the
// optional HDR/stereo side-data blobs carried on the frame itself.
func populateFrameMetadata(bvf *BestVideoFrame, frame avutil.Frame) {
	bvf.PTS = avutil.GetFramePTS(frame)
	bvf.KeyFrame = avutil.GetFrameKeyFrame(frame) != 0
	bvf.Interlaced = avutil.GetFrameInterlaced(frame)
	bvf.TFF = avutil.GetFrameTopFieldFirst(frame)
	bvf.repeatPict = avutil.GetFrameRepeatPict(frame)

	bvf.Duration = avutil.GetFrameDuration(frame)
	bvf.PictureType = avutil.GetPictureTypeChar(avutil.GetFramePictType(frame))
	bvf.MatrixCoeffs = avutil.GetFrameColorSpace(frame)
	bvf.Primaries = avutil.GetFrameColorPrimaries(frame)
	bvf.Transfer = avutil.GetFrameColorTrc(frame)
	bvf.ChromaLoc = avutil.GetFrameChromaLocation(frame)
	bvf.ColorRange = avutil.GetFrameColorRange(frame)

	if b, ok := avutil.GetFrameSideData(frame, avutil.FrameDataStereo3D); ok {
		if s3d, ok := avutil.Stereo3DFromBytes(b); ok {
			bvf.HasStereo3D = true
			bvf.Stereo3D = s3d
		}
	}
	if b, ok := avutil.GetFrameSideData(frame, avutil.FrameDataMasteringDisplay); ok {
		if md, ok := avutil.MasteringDisplayFromBytes(b); ok {
			bvf.HasMasteringDisplay = true
			bvf.MasteringDisplay = md
		}
	}
	if b, ok := avutil.GetFrameSideData(frame, avutil.FrameDataContentLightLevel); ok {
		if cl, ok := avutil.ContentLightFromBytes(b); ok {
			bvf.HasContentLight = true
			bvf.ContentLight = cl
		}
	}
	if b, ok := avutil.GetFrameSideData(frame, avutil.FrameDataDOVIRPUBuffer); ok {
		bvf.DOVIRPU = append([]byte(nil), b...)
	}
	if b, ok := avutil.GetFrameSideData(frame, avutil.FrameDataDynamicHDRPlus); ok {
		bvf.HDR10Plus = append([]byte(nil), b...)
	}
}

// populateVideoPropertiesFromSideData extracts rotation/flip and HDR
// metadata from a decoded probe frame into vp, mirroring the extraction
// a container-level probe performs before any user-visible frame is
// emitted.
func populateVideoPropertiesFromSideData(vp *VideoProperties, probe avutil.Frame) {
	if b, ok := avutil.GetFrameSideData(probe, avutil.FrameDataStereo3D); ok {
		if s3d, ok := avutil.Stereo3DFromBytes(b); ok {
			vp.Stereo3DType = s3d.Type
			vp.Stereo3DFlags = s3d.Flags
		}
	}
	if b, ok := avutil.GetFrameSideData(probe, avutil.FrameDataMasteringDisplay); ok {
		if md, ok := avutil.MasteringDisplayFromBytes(b); ok {
			vp.HasMasteringDisplay = true
			vp.MasteringDisplay = md
		}
	}
	if b, ok := avutil.GetFrameSideData(probe, avutil.FrameDataContentLightLevel); ok {
		if cl, ok := avutil.ContentLightFromBytes(b); ok {
			vp.HasContentLight = true
			vp.ContentLight = cl
		}
	}
	if b, ok := avutil.GetFrameSideData(probe, avutil.FrameDataDisplayMatrix); ok {
		if m, ok := avutil.DisplayMatrixFromBytes(b); ok {
			rotation, flipH, flipV := resolveRotationAndFlip(m)
			vp.Rotation = rotation
			vp.FlipHorizontal = flipH
			vp.FlipVertical = flipV
		}
	}
}

// resolveRotationAndFlip decomposes a display matrix into a normalised
// rotation in {0, 90, 180, 270} plus independent horizontal/vertical flip
// flags. A negative determinant indicates a horizontal flip baked into the
// matrix; av_display_matrix_flip decouples it before reading the angle, and
// a 180-degree rotation with that flip is reinterpreted as a pure vertical
// flip rather than a rotation.
func resolveRotationAndFlip(m avutil.DisplayMatrix) (rotation int, flipH, flipV bool) {
	flipH = m.Determinant() < 0
	unflipped := m
	unflipped.Flip(flipH, false)

	angle := unflipped.Rotation()
	angle = ((angle % 360) + 360) % 360

	switch angle {
	case 180:
		if flipH {
			return 0, false, true
		}
		return 180, false, false
	case 90, 270:
		if flipH {
			angle = (360 - angle) % 360
			return angle, false, false
		}
		return angle, false, false
	default:
		return 0, flipH, false
	}
}
