package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinor(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "5", want: 500},
		{in: "5.5", want: 550},
		{in: "10.00", want: 1000},
		{in: " 0.01 ", want: 1},
		{in: "1.005", wantErr: true},
		{in: "five", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()

			got, err := ToMinor(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "GBP 10.00", Format(1000, "gbp"))
	assert.Equal(t, "GBP 0.05", Format(5, "GBP"))
	assert.Equal(t, "7.50", Format(750, ""))
}

func TestFromMinor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "12.34", FromMinor(1234).StringFixed(2))
}
