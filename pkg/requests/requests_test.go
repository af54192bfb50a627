package requests

import "testing"

func TestRequestNumbers(t *testing.T) {
	tests := []struct {
		req  Request
		want uint32
	}{
		{VidiocQueryCap, 0x80685600},
		{VidiocReqBufs, 0xc0145608},
		{VidiocSCtrl, 0xc008561c},
		{VidiocStreamOn, 0x40045612},
		{VidiocStreamOff, 0x40045613},
		{VidiocCropCap, 0xc02c563a},
		{VidiocSCrop, 0x4014563c},
		{VidiocSubdevSFmt, 0xc0585605},
		{VidiocSubdevSFrameInterval, 0xc0305616},
		{MediaIocDeviceInfo, 0xc1007c00},
		{MediaIocEnumEntities, 0xc1007c01},
		{MediaIocSetupLink, 0xc0347c03},
	}
	for _, tt := range tests {
		if uint32(tt.req) != tt.want {
			t.Errorf("%s = %#08x, want %#08x", tt.req, uint32(tt.req), tt.want)
		}
	}
}

func TestEncodeMatchesConstants(t *testing.T) {
	if got := Encode(iocRead|iocWrite, 'V', 9, SizeBuffer); got != VidiocQueryBuf {
		t.Errorf("Encode(QUERYBUF) = %#08x, want %#08x", uint32(got), uint32(VidiocQueryBuf))
	}
	if VidiocSFmt.Size() != SizeFormat {
		t.Errorf("VIDIOC_S_FMT size = %d, want %d", VidiocSFmt.Size(), SizeFormat)
	}
	if VidiocDQBuf.NR() != 17 || VidiocDQBuf.Type() != 'V' {
		t.Errorf("VIDIOC_DQBUF nr/type = %d/%c", VidiocDQBuf.NR(), VidiocDQBuf.Type())
	}
	if VidiocDQBuf.Dir() != iocRead|iocWrite {
		t.Errorf("VIDIOC_DQBUF dir = %d, want %d", VidiocDQBuf.Dir(), iocRead|iocWrite)
	}
}

func TestRequestString(t *testing.T) {
	if got := MediaIocSetupLink.String(); got != "MEDIA_IOC_SETUP_LINK" {
		t.Errorf("String() = %q", got)
	}
	if got := Request(0x1234).String(); got != "ioctl(0x00001234)" {
		t.Errorf("String() = %q, want %q", got, "ioctl(0x00001234)")
	}
}
