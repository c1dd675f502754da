package artifact

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/perfgo/benchcamp/model"
)

func TestPath_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		record model.Record
		rep    int
		ext    string
		want   string
	}{
		{
			name: "default extension",
			record: model.NewRecord([]model.Field{
				{Name: "system", Value: model.String("A")},
				{Name: "size", Value: model.Int(64)},
			}, 2),
			rep:  1,
			want: "system_A_size_64_1.csv",
		},
		{
			name: "compound extension",
			record: model.NewRecord([]model.Field{
				{Name: "interface", Value: model.String("vmux-dpdk-e810")},
				{Name: "num_vms", Value: model.Int(16)},
			}, 3),
			rep:  0,
			ext:  "click.log",
			want: "interface_vmux-dpdk-e810_num_vms_16_0.click.log",
		},
		{
			name: "dotted value",
			record: model.NewRecord([]model.Field{
				{Name: "ratio", Value: model.String("0.5")},
			}, 1),
			rep:  12,
			ext:  "pktgen.log",
			want: "ratio_0.5_12.pktgen.log",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Path("/tmp/campaign", tt.record, tt.rep, tt.ext)
			require.Equal(t, filepath.Join("/tmp/campaign", tt.want), p)

			id, rep, ext, err := Parse(p)
			require.NoError(t, err)
			require.Equal(t, tt.record.Identity(), id)
			require.Equal(t, tt.rep, rep)
			if tt.ext == "" {
				require.Equal(t, DefaultExtension, ext)
			} else {
				require.Equal(t, tt.ext, ext)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, name := range []string{"noseparator.csv", "system_A_x.csv", "system_A_1", "system_A_1.", "system_A_-1.csv"} {
		_, _, _, err := Parse(name)
		require.Error(t, err, name)
	}
}

func TestValidExtension(t *testing.T) {
	require.NoError(t, ValidExtension("csv"))
	require.NoError(t, ValidExtension("click.log"))
	require.Error(t, ValidExtension("my_log"))
	require.Error(t, ValidExtension("a/b"))
	require.Error(t, ValidExtension(".csv"))
}
