// Package subs reads the recipient directory maintained by the chat
// bot: subscriber ids and their per-user region filters. The pipeline
// only ever reads these files; the bot owns all mutation.
package subs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	logx "torfbot/pkg/logx"
)

// Subscription is one recipient and the regions they care about.
// An empty Regions set means "all regions".
type Subscription struct {
	UserID  int64
	Regions []string
}

// WantsRegion reports whether an alert from region should reach this
// recipient.
func (s Subscription) WantsRegion(region string) bool {
	if len(s.Regions) == 0 {
		return true
	}
	for _, r := range s.Regions {
		if r == region {
			return true
		}
	}
	return false
}

// Directory merges the subscriber file, the per-user region file and the
// configured admin ids into a de-duplicated recipient list.
type Directory struct {
	usersPath   string
	regionsPath string
	admins      []int64
	log         logx.Logger
}

func NewDirectory(usersPath, regionsPath string, admins []int64, log logx.Logger) *Directory {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Directory{usersPath: usersPath, regionsPath: regionsPath, admins: admins, log: log}
}

// Recipients returns the current recipient list, sorted by id. A missing
// file is normal (nobody subscribed yet, admins still receive); a file
// that exists but cannot be parsed is an error, because silently
// dropping subscribers would look like working delivery.
func (d *Directory) Recipients(ctx context.Context) ([]Subscription, error) {
	_ = ctx

	var users []int64
	if err := readJSONFile(d.usersPath, &users); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("subscribers: %w", err)
		}
		d.log.Debug("subscriber file missing", logx.String("path", d.usersPath))
	}

	regions := map[string][]string{}
	if err := readJSONFile(d.regionsPath, &regions); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("user regions: %w", err)
		}
	}

	seen := map[int64]bool{}
	var out []Subscription
	for _, id := range append(append([]int64{}, users...), d.admins...) {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, Subscription{
			UserID:  id,
			Regions: regions[strconv.FormatInt(id, 10)],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func readJSONFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
