package history

// This file contains shared history utilities for loading, finding and
// recording campaign metadata.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/perfgo/benchcamp/model"
)

type Entry struct {
	Campaign model.Campaign
	FullPath string
}

// LoadCampaigns loads every campaign.json below root, newest first. Files
// that cannot be parsed are skipped with a warning.
func LoadCampaigns(logger zerolog.Logger, root string) ([]Entry, error) {
	var entries []Entry

	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			metaPath := filepath.Join(path, model.CampaignFile)
			if _, err := os.Stat(metaPath); err == nil {
				c, err := Read(path)
				if err != nil {
					logger.Warn().Err(err).Str("path", metaPath).Msg("Failed to parse campaign.json")
					return nil
				}

				entries = append(entries, Entry{
					Campaign: c,
					FullPath: path,
				})
			}
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Campaign.Timestamp.After(entries[j].Campaign.Timestamp)
	})

	return entries, nil
}

// Read parses the campaign.json in dir.
func Read(dir string) (model.Campaign, error) {
	data, err := os.ReadFile(filepath.Join(dir, model.CampaignFile))
	if err != nil {
		return model.Campaign{}, err
	}

	var c model.Campaign
	if err := json.Unmarshal(data, &c); err != nil {
		return model.Campaign{}, err
	}

	return c, nil
}

// Write replaces the campaign.json in dir. The file is written to a
// temporary name first so readers never see a partial document.
func Write(dir string, c *model.Campaign) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal campaign: %w", err)
	}

	path := filepath.Join(dir, model.CampaignFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write campaign: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write campaign: %w", err)
	}
	return nil
}

// Find selects an entry from entries (newest first) by argument:
// 0 is the latest, -1 the one before and so on; anything else is matched
// as a campaign name, then as an ID prefix.
func Find(entries []Entry, arg string) (*Entry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no campaigns found")
	}

	if parsed, err := strconv.ParseInt(arg, 10, 64); err == nil {
		if parsed > 0 {
			return nil, fmt.Errorf("invalid index: %s (use 0 for last, -1 for second-to-last, -2 for third-to-last, etc.)", arg)
		}
		index := int(-parsed)
		if index >= len(entries) {
			return nil, fmt.Errorf("index %s out of range (only %d campaigns)", arg, len(entries))
		}
		return &entries[index], nil
	}

	for i := range entries {
		if entries[i].Campaign.Name == arg {
			return &entries[i], nil
		}
	}

	prefix := strings.ToLower(arg)
	for i := range entries {
		if strings.HasPrefix(strings.ToLower(entries[i].Campaign.ID), prefix) {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("no campaign found matching: %s", arg)
}
