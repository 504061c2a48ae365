// Package store provides crash-safe bidder state persistence using JSON files.
//
// Two kinds of state survive restarts:
//   - override-bid usage counters (usage.json): how many override bids the
//     account has spent per listing, merged with the server's view on refresh
//   - auto-bid orders (autobid_<listingID>.json): the locally known ceiling
//     and status of each server-side auto-bid order
//
// Writes use atomic file replacement (write to .tmp, then rename) to prevent
// corruption from partial writes or crashes mid-save. The agent saves after
// every state change and loads on startup.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"bidpilot/pkg/types"
)

// Store persists bidder state to JSON files in a designated directory.
// All operations are mutex-protected to prevent concurrent file corruption.
type Store struct {
	dir string     // directory containing usage.json and autobid_*.json
	mu  sync.Mutex // serializes all file operations
}

// Open creates a store backed by the given directory.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op for file-based storage.
func (s *Store) Close() error {
	return nil
}

// SaveOverrideUsage atomically persists the per-listing override-bid counters.
func (s *Store) SaveOverrideUsage(used map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(filepath.Join(s.dir, "usage.json"), used)
}

// LoadOverrideUsage restores the per-listing override-bid counters.
// Returns an empty map if nothing has been saved yet.
func (s *Store) LoadOverrideUsage() (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	used := make(map[string]int)
	path := filepath.Join(s.dir, "usage.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return used, nil
		}
		return nil, fmt.Errorf("read override usage: %w", err)
	}
	if err := json.Unmarshal(data, &used); err != nil {
		return nil, fmt.Errorf("unmarshal override usage: %w", err)
	}
	return used, nil
}

// autoBidRecord is the on-disk shape of one auto-bid order. Money is stored
// as a string so the file is not subject to float rounding.
type autoBidRecord struct {
	ListingID string `json:"listing_id"`
	MaxBid    string `json:"max_bid"`
	Status    string `json:"status"`
}

// SaveAutoBid atomically persists one auto-bid order.
func (s *Store) SaveAutoBid(order types.AutoBidOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := autoBidRecord{
		ListingID: order.ListingID,
		MaxBid:    order.MaxBid.String(),
		Status:    string(order.Status),
	}
	return s.writeJSON(s.autoBidPath(order.ListingID), rec)
}

// LoadAutoBid restores the auto-bid order for a listing from disk.
// Returns nil, nil if no saved order exists.
func (s *Store) LoadAutoBid(listingID string) (*types.AutoBidOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.autoBidPath(listingID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read auto-bid: %w", err)
	}
	return decodeAutoBid(data)
}

// LoadAutoBids restores every saved auto-bid order.
func (s *Store) LoadAutoBids() ([]types.AutoBidOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read store dir: %w", err)
	}

	var orders []types.AutoBidOrder
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "autobid_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("read auto-bid: %w", err)
		}
		order, err := decodeAutoBid(data)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// DeleteAutoBid removes the saved order for a listing. Missing files are
// not an error: deactivation may race with a fresh start.
func (s *Store) DeleteAutoBid(listingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.autoBidPath(listingID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete auto-bid: %w", err)
	}
	return nil
}

func (s *Store) autoBidPath(listingID string) string {
	return filepath.Join(s.dir, "autobid_"+listingID+".json")
}

func decodeAutoBid(data []byte) (*types.AutoBidOrder, error) {
	var rec autoBidRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal auto-bid: %w", err)
	}

	maxBid, err := decimal.NewFromString(rec.MaxBid)
	if err != nil {
		return nil, fmt.Errorf("unmarshal auto-bid: bad max_bid %q: %w", rec.MaxBid, err)
	}

	order := &types.AutoBidOrder{ListingID: rec.ListingID, MaxBid: maxBid}
	switch rec.Status {
	case string(types.AutoBidActive):
		order.Status = types.AutoBidActive
	case string(types.AutoBidInactive):
		order.Status = types.AutoBidInactive
	default:
		return nil, fmt.Errorf("unmarshal auto-bid: unknown status %q", rec.Status)
	}
	return order, nil
}

// writeJSON marshals v and atomically replaces path with the result.
// It writes to a .tmp file first, then renames over the target so the file
// is never left in a partial state.
func (s *Store) writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}
