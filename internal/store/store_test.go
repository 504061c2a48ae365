package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"bidpilot/pkg/types"
)

func TestSaveAndLoadOverrideUsage(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	used := map[string]int{"lst-1": 1, "lst-2": 3}
	if err := s.SaveOverrideUsage(used); err != nil {
		t.Fatalf("SaveOverrideUsage: %v", err)
	}

	loaded, err := s.LoadOverrideUsage()
	if err != nil {
		t.Fatalf("LoadOverrideUsage: %v", err)
	}
	if loaded["lst-1"] != 1 || loaded["lst-2"] != 3 {
		t.Errorf("loaded = %v, want %v", loaded, used)
	}
}

func TestLoadOverrideUsageMissing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	loaded, err := s.LoadOverrideUsage()
	if err != nil {
		t.Fatalf("LoadOverrideUsage: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty map for fresh store, got %v", loaded)
	}
}

func TestSaveAndLoadAutoBid(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	order := types.AutoBidOrder{
		ListingID: "lst-1",
		MaxBid:    decimal.RequireFromString("500.50"),
		Status:    types.AutoBidActive,
	}
	if err := s.SaveAutoBid(order); err != nil {
		t.Fatalf("SaveAutoBid: %v", err)
	}

	loaded, err := s.LoadAutoBid("lst-1")
	if err != nil {
		t.Fatalf("LoadAutoBid: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadAutoBid returned nil")
	}
	if !loaded.MaxBid.Equal(order.MaxBid) {
		t.Errorf("MaxBid = %s, want %s", loaded.MaxBid, order.MaxBid)
	}
	if loaded.Status != types.AutoBidActive {
		t.Errorf("Status = %s, want ACTIVE", loaded.Status)
	}
}

func TestLoadAutoBidMissing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	loaded, err := s.LoadAutoBid("nonexistent")
	if err != nil {
		t.Fatalf("LoadAutoBid: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil for missing order, got %+v", loaded)
	}
}

func TestLoadAutoBidsScansDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	_ = s.SaveAutoBid(types.AutoBidOrder{
		ListingID: "lst-1", MaxBid: decimal.NewFromInt(100), Status: types.AutoBidActive,
	})
	_ = s.SaveAutoBid(types.AutoBidOrder{
		ListingID: "lst-2", MaxBid: decimal.NewFromInt(250), Status: types.AutoBidInactive,
	})
	// Unrelated files must be skipped.
	_ = s.SaveOverrideUsage(map[string]int{"lst-1": 1})
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	orders, err := s.LoadAutoBids()
	if err != nil {
		t.Fatalf("LoadAutoBids: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(orders))
	}
}

func TestDeleteAutoBid(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	_ = s.SaveAutoBid(types.AutoBidOrder{
		ListingID: "lst-1", MaxBid: decimal.NewFromInt(100), Status: types.AutoBidActive,
	})
	if err := s.DeleteAutoBid("lst-1"); err != nil {
		t.Fatalf("DeleteAutoBid: %v", err)
	}

	loaded, err := s.LoadAutoBid("lst-1")
	if err != nil {
		t.Fatalf("LoadAutoBid: %v", err)
	}
	if loaded != nil {
		t.Errorf("order should be gone, got %+v", loaded)
	}

	// Deleting twice is fine.
	if err := s.DeleteAutoBid("lst-1"); err != nil {
		t.Errorf("second DeleteAutoBid: %v", err)
	}
}

func TestLoadAutoBidRejectsCorruptStatus(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	path := filepath.Join(dir, "autobid_lst-1.json")
	payload := `{"listing_id":"lst-1","max_bid":"100","status":"PAUSED"}`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	if _, err := s.LoadAutoBid("lst-1"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
