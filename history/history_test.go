package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/perfgo/benchcamp/model"
)

func writeCampaign(t *testing.T, root, name, id string, ts time.Time) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, Write(dir, &model.Campaign{
		ID:        id,
		Name:      name,
		Kind:      "throughput",
		Timestamp: ts,
		Status:    model.CampaignCompleted,
	}))
}

func TestLoadCampaigns(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	writeCampaign(t, root, "old", "aaaa1111", base)
	writeCampaign(t, root, "new", "bbbb2222", base.Add(time.Hour))

	// broken metadata is skipped
	broken := filepath.Join(root, "broken")
	require.NoError(t, os.MkdirAll(broken, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(broken, model.CampaignFile), []byte("{"), 0o644))

	entries, err := LoadCampaigns(zerolog.Nop(), root)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "new", entries[0].Campaign.Name)
	require.Equal(t, filepath.Join(root, "old"), entries[1].FullPath)

	tests := []struct {
		arg     string
		want    string
		wantErr string
	}{
		{arg: "0", want: "new"},
		{arg: "-1", want: "old"},
		{arg: "-2", wantErr: "out of range"},
		{arg: "1", wantErr: "invalid index"},
		{arg: "old", want: "old"},
		{arg: "BBBB", want: "new"},
		{arg: "cccc", wantErr: "no campaign found"},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			e, err := Find(entries, tt.arg)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, e.Campaign.Name)
		})
	}
}

func TestLoadCampaigns_MissingRoot(t *testing.T) {
	entries, err := LoadCampaigns(zerolog.Nop(), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	require.Empty(t, entries)

	_, err = Find(entries, "0")
	require.ErrorContains(t, err, "no campaigns found")
}
