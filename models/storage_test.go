package models_test

import (
	"testing"

	"bitbucket.org/mmsoftdev/shopbooks_backend/models"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{0, "0 Bytes"},
		{1, "1 Bytes"},
		{1023, "1023 Bytes"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1048576, "1.00 MB"},
		{5 * 1048576, "5.00 MB"},
		{1073741824, "1.00 GB"},
		{int64(1099511627776), "1.00 TB"},
		// Past TB it keeps counting in TB.
		{int64(2199023255552), "2.00 TB"},
	}
	for _, c := range cases {
		if got := models.FormatBytes(c.bytes); got != c.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", c.bytes, got, c.want)
		}
	}
}
