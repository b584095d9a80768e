package gtfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		want FeedScopedID
	}{
		{"kcm:100", FeedScopedID{FeedID: "kcm", ID: "100"}},
		{"100", FeedScopedID{FeedID: "1", ID: "100"}},
		{" 100 ", FeedScopedID{FeedID: "1", ID: "100"}},
		{":100", FeedScopedID{FeedID: "1", ID: ":100"}},
		{"", FeedScopedID{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseID(tt.in, "1"))
		})
	}
}

func TestFeedScopedID_String(t *testing.T) {
	assert.Equal(t, "kcm:100", NewID("kcm", "100").String())
	assert.Equal(t, "", FeedScopedID{}.String())
}
