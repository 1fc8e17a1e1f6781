package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUIDList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []uint32
	}{
		{"simple", "1,2,3", []uint32{1, 2, 3}},
		{"spaces and junk dropped", "1, 2, abc, -3, 4", []uint32{1, 2, 4}},
		{"zero dropped", "0,5", []uint32{5}},
		{"empty", "", nil},
		{"only junk", "abc, , -1", nil},
		{"trailing comma", "7,8,", []uint32{7, 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseUIDList(tt.input)
			assert.Equal(t, tt.want, got)

			for _, uid := range got {
				assert.Greater(t, uid, uint32(0))
			}
		})
	}
}
