package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowedImageFile(t *testing.T) {
	allowed := []string{"a.png", "b.jpg", "c.JPEG", "scan.bmp", "plate.TIFF"}
	for _, name := range allowed {
		require.True(t, AllowedImageFile(name), name)
	}

	rejected := []string{"clip.gif", "raw.webp", "notes.txt", "archive.zip", "noext", ""}
	for _, name := range rejected {
		require.False(t, AllowedImageFile(name), name)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in    string
		index int
		want  string
	}{
		{"photo.jpg", 0, "photo.jpg"},
		{"my photo (1).jpg", 0, "my_photo__1_.jpg"},
		{"../../etc/passwd.png", 3, "passwd.png"},
		{`C:\Users\me\shot.jpg`, 0, "shot.jpg"},
		{"..", 2, "image_002.jpg"},
		{"....", 7, "image_007.jpg"},
		{"___", 1, "image_001.jpg"},
		{"noextension", 4, "image_004.jpg"},
		{"", 12, "image_012.jpg"},
		{"UPPER-case_01.JPG", 0, "UPPER-case_01.JPG"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, SanitizeFilename(tc.in, tc.index), "input %q", tc.in)
	}
}
