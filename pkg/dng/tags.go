package dng

import "fmt"

// Tag is a TIFF, TIFF/EP, EXIF or DNG tag number.
type Tag uint16

const (
	TagNewSubfileType            Tag = 254
	TagImageWidth                Tag = 256
	TagImageLength               Tag = 257
	TagBitsPerSample             Tag = 258
	TagCompression               Tag = 259
	TagPhotometricInterpretation Tag = 262
	TagMake                      Tag = 271
	TagModel                     Tag = 272
	TagStripOffsets              Tag = 273
	TagOrientation               Tag = 274
	TagSamplesPerPixel           Tag = 277
	TagRowsPerStrip              Tag = 278
	TagStripByteCounts           Tag = 279
	TagPlanarConfiguration       Tag = 284
	TagSoftware                  Tag = 305
	TagDateTime                  Tag = 306
	TagSubIFDs                   Tag = 330
	TagCFARepeatPatternDim       Tag = 33421
	TagCFAPattern                Tag = 33422
	TagFNumber                   Tag = 33437
	TagExifIFD                   Tag = 34665
	TagExposureProgram           Tag = 34850
	TagDateTimeOriginal          Tag = 36867
	TagDateTimeDigitized         Tag = 36868
	TagFocalLength               Tag = 37386
	TagFocalLengthIn35mmFilm     Tag = 41989
	TagDNGVersion                Tag = 50706
	TagDNGBackwardVersion        Tag = 50707
	TagUniqueCameraModel         Tag = 50708
	TagBlackLevel                Tag = 50714
	TagWhiteLevel                Tag = 50717
	TagColorMatrix1              Tag = 50721
	TagAsShotNeutral             Tag = 50728
	TagCalibrationIlluminant1    Tag = 50778
	TagRawDataUniqueID           Tag = 50781
	TagForwardMatrix1            Tag = 50964
)

var tagNames = map[Tag]string{
	TagNewSubfileType:            "NewSubfileType",
	TagImageWidth:                "ImageWidth",
	TagImageLength:               "ImageLength",
	TagBitsPerSample:             "BitsPerSample",
	TagCompression:               "Compression",
	TagPhotometricInterpretation: "PhotometricInterpretation",
	TagMake:                      "Make",
	TagModel:                     "Model",
	TagStripOffsets:              "StripOffsets",
	TagOrientation:               "Orientation",
	TagSamplesPerPixel:           "SamplesPerPixel",
	TagRowsPerStrip:              "RowsPerStrip",
	TagStripByteCounts:           "StripByteCounts",
	TagPlanarConfiguration:       "PlanarConfiguration",
	TagSoftware:                  "Software",
	TagDateTime:                  "DateTime",
	TagSubIFDs:                   "SubIFDs",
	TagCFARepeatPatternDim:       "CFARepeatPatternDim",
	TagCFAPattern:                "CFAPattern",
	TagFNumber:                   "FNumber",
	TagExifIFD:                   "ExifIFD",
	TagExposureProgram:           "ExposureProgram",
	TagDateTimeOriginal:          "DateTimeOriginal",
	TagDateTimeDigitized:         "DateTimeDigitized",
	TagFocalLength:               "FocalLength",
	TagFocalLengthIn35mmFilm:     "FocalLengthIn35mmFilm",
	TagDNGVersion:                "DNGVersion",
	TagDNGBackwardVersion:        "DNGBackwardVersion",
	TagUniqueCameraModel:         "UniqueCameraModel",
	TagBlackLevel:                "BlackLevel",
	TagWhiteLevel:                "WhiteLevel",
	TagColorMatrix1:              "ColorMatrix1",
	TagAsShotNeutral:             "AsShotNeutral",
	TagCalibrationIlluminant1:    "CalibrationIlluminant1",
	TagRawDataUniqueID:           "RawDataUniqueID",
	TagForwardMatrix1:            "ForwardMatrix1",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%d)", uint16(t))
}

// Type is a TIFF field type.
type Type uint16

const (
	TypeByte      Type = 1
	TypeASCII     Type = 2
	TypeShort     Type = 3
	TypeLong      Type = 4
	TypeRational  Type = 5
	TypeUndefined Type = 7
	TypeSRational Type = 10
)

func (t Type) size() int {
	switch t {
	case TypeByte, TypeASCII, TypeUndefined:
		return 1
	case TypeShort:
		return 2
	case TypeLong:
		return 4
	case TypeRational, TypeSRational:
		return 8
	}
	return 0
}

func (t Type) String() string {
	switch t {
	case TypeByte:
		return "BYTE"
	case TypeASCII:
		return "ASCII"
	case TypeShort:
		return "SHORT"
	case TypeLong:
		return "LONG"
	case TypeRational:
		return "RATIONAL"
	case TypeUndefined:
		return "UNDEFINED"
	case TypeSRational:
		return "SRATIONAL"
	}
	return fmt.Sprintf("Type(%d)", uint16(t))
}

const (
	photometricRGB = 2
	photometricCFA = 32803

	// D65, the illuminant of the sRGB fallback matrix.
	illuminantD65 = 21

	exposureProgramNormal = 2
)

// SRGBColorMatrix is the XYZ (D65) to linear sRGB matrix written as
// ColorMatrix1 when no calibration is configured.
var SRGBColorMatrix = [9]float64{
	3.2409, -1.5373, -0.4986,
	-0.9692, 1.8759, 0.0415,
	0.0556, -0.2039, 1.0569,
}
