// Package marketplace implements the auction marketplace REST client.
//
// The client talks to the marketplace API for listing state and bidding:
//   - GetListing:            GET  /listings/{id}
//   - GetLot:                GET  /multi-item-listings/{id} (+increment-info)
//   - GetIncrementInfo:      GET  /multi-item-listings/{id}/increment-info
//   - GetBidHistory:         GET  /listings/{id}/bids
//   - GetSubscriptionStatus: GET  /subscription/status
//   - GetAutoBids:           GET  /bids/auto-bid
//   - CreateAutoBid:         POST /bids/auto-bid
//   - DeleteAutoBid:         DELETE /bids/auto-bid/{listingId}
//   - PlaceBid:              POST /bids | /multi-item-listings/{id}/lots/{n}/bid | /bids/monster
//
// Every request is rate-limited via per-category TokenBuckets, automatically
// retried on 5xx errors, and authenticated with the session bearer token.
// The server is authoritative on bid acceptance: a rejection here overrides
// any locally-computed decision.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bidpilot/internal/config"
	"bidpilot/pkg/types"
)

// APIError is a non-2xx business response from the marketplace: the bid was
// understood and refused (outbid race, auction closed server-side, quota
// exhausted). Distinct from transport failures, which come back as plain
// wrapped errors.
type APIError struct {
	Status  int    // HTTP status
	Code    string // machine-readable error code from the body, may be empty
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("marketplace: %s (%s, status %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("marketplace: %s (status %d)", e.Message, e.Status)
}

// AsAPIError unwraps err to an *APIError if there is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Client is the marketplace REST API client.
// It wraps a resty HTTP client with rate limiting, retry, and auth.
type Client struct {
	http   *resty.Client // HTTP client with retry + base URL
	rl     *RateLimiter  // per-endpoint-category rate limiting
	dryRun bool          // when true, mutating methods return fake success without HTTP calls
	logger *slog.Logger
}

// NewClient creates a REST client with rate limiting and retry.
func NewClient(cfg config.Config, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.API.BaseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.Account.SessionToken)

	return &Client{
		http:   httpClient,
		rl:     NewRateLimiter(),
		dryRun: cfg.DryRun,
		logger: logger,
	}
}

// GetListing fetches and parses the price state of a single-item listing.
func (c *Client) GetListing(ctx context.Context, listingID string) (*types.ListingPriceState, error) {
	if err := c.rl.Read.Wait(ctx); err != nil {
		return nil, err
	}

	var result types.ListingResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/listings/" + listingID)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get listing: status %d: %s", resp.StatusCode(), resp.String())
	}
	return parseListing(&result)
}

// GetIncrementInfo fetches the increment schedule chosen for a multi-item
// listing.
func (c *Client) GetIncrementInfo(ctx context.Context, listingID string) (types.IncrementSchedule, error) {
	if err := c.rl.Read.Wait(ctx); err != nil {
		return "", err
	}

	var result types.IncrementInfoResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/multi-item-listings/" + listingID + "/increment-info")
	if err != nil {
		return "", fmt.Errorf("get increment info: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("get increment info: status %d: %s", resp.StatusCode(), resp.String())
	}
	return parseSchedule(result.IncrementOption)
}

// GetLot fetches one lot of a multi-item listing, combining the listing
// payload with its increment-info schedule.
func (c *Client) GetLot(ctx context.Context, listingID string, lotNumber int) (*types.ListingPriceState, error) {
	schedule, err := c.GetIncrementInfo(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if err := c.rl.Read.Wait(ctx); err != nil {
		return nil, err
	}
	var result types.MultiItemListingResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/multi-item-listings/" + listingID)
	if err != nil {
		return nil, fmt.Errorf("get multi-item listing: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get multi-item listing: status %d: %s", resp.StatusCode(), resp.String())
	}

	for i := range result.Lots {
		if result.Lots[i].LotNumber == lotNumber {
			return parseLot(listingID, result.Currency, schedule, &result.Lots[i])
		}
	}
	return nil, fmt.Errorf("get multi-item listing: lot %d not found in listing %s", lotNumber, listingID)
}

// GetBidHistory fetches the recent bids on a listing, newest first.
func (c *Client) GetBidHistory(ctx context.Context, listingID string) ([]types.BidRecord, error) {
	if err := c.rl.Read.Wait(ctx); err != nil {
		return nil, err
	}

	var result types.BidHistoryResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/listings/" + listingID + "/bids")
	if err != nil {
		return nil, fmt.Errorf("get bid history: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get bid history: status %d: %s", resp.StatusCode(), resp.String())
	}
	return parseHistory(listingID, &result)
}

// GetSubscriptionStatus fetches the session account's entitlement snapshot.
func (c *Client) GetSubscriptionStatus(ctx context.Context) (*types.UserEntitlement, error) {
	if err := c.rl.Read.Wait(ctx); err != nil {
		return nil, err
	}

	var result types.SubscriptionStatusResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/subscription/status")
	if err != nil {
		return nil, fmt.Errorf("get subscription status: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get subscription status: status %d: %s", resp.StatusCode(), resp.String())
	}
	return parseEntitlement(&result)
}

// GetAutoBids fetches the account's auto-bid orders.
func (c *Client) GetAutoBids(ctx context.Context) ([]types.AutoBidOrder, error) {
	if err := c.rl.AutoBid.Wait(ctx); err != nil {
		return nil, err
	}

	var result []types.AutoBidResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/bids/auto-bid")
	if err != nil {
		return nil, fmt.Errorf("get auto-bids: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get auto-bids: status %d: %s", resp.StatusCode(), resp.String())
	}

	orders := make([]types.AutoBidOrder, 0, len(result))
	for i := range result {
		order, err := parseAutoBid(&result[i])
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// CreateAutoBid registers a server-side auto-bid order with the given ceiling.
func (c *Client) CreateAutoBid(ctx context.Context, listingID string, maxBid decimal.Decimal) (*types.AutoBidOrder, error) {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would create auto-bid", "listing", listingID, "max_bid", maxBid.String())
		return &types.AutoBidOrder{ListingID: listingID, MaxBid: maxBid, Status: types.AutoBidActive}, nil
	}
	if err := c.rl.AutoBid.Wait(ctx); err != nil {
		return nil, err
	}

	var result types.AutoBidResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(types.CreateAutoBidRequest{ListingID: listingID, MaxBid: maxBid.String()}).
		SetResult(&result).
		Post("/bids/auto-bid")
	if err != nil {
		return nil, fmt.Errorf("create auto-bid: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return nil, &APIError{Status: resp.StatusCode(), Message: resp.String()}
	}
	return parseAutoBid(&result)
}

// DeleteAutoBid removes the account's auto-bid order for a listing.
func (c *Client) DeleteAutoBid(ctx context.Context, listingID string) error {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would delete auto-bid", "listing", listingID)
		return nil
	}
	if err := c.rl.AutoBid.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		Delete("/bids/auto-bid/" + listingID)
	if err != nil {
		return fmt.Errorf("delete auto-bid: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNoContent {
		return &APIError{Status: resp.StatusCode(), Message: resp.String()}
	}
	c.logger.Info("auto-bid deleted", "listing", listingID)
	return nil
}

// PlaceBid submits a bid. The endpoint is chosen from the proposal: override
// bids go to /bids/monster, lot bids to the per-lot endpoint, everything else
// to /bids. Each submission carries a fresh idempotency key so retries cannot
// double-bid. The returned receipt is authoritative; an *APIError means the
// server refused the bid regardless of local validation.
func (c *Client) PlaceBid(ctx context.Context, p types.BidProposal) (*types.BidReceipt, error) {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would place bid",
			"listing", p.ListingID, "lot", p.LotNumber, "type", string(p.Type), "amount", p.Amount.String())
		return &types.BidReceipt{BidID: "dry-run-" + uuid.NewString(), Accepted: true, CurrentPrice: p.Amount}, nil
	}
	if err := c.rl.Bid.Wait(ctx); err != nil {
		return nil, err
	}

	body := types.PlaceBidRequest{
		ListingID:      p.ListingID,
		LotNumber:      p.LotNumber,
		Amount:         p.Amount.String(),
		IdempotencyKey: uuid.NewString(),
	}

	path := "/bids"
	switch {
	case p.Type == types.BidOverride:
		path = "/bids/monster"
	case p.LotNumber > 0:
		path = fmt.Sprintf("/multi-item-listings/%s/lots/%d/bid", p.ListingID, p.LotNumber)
	}

	var result types.PlaceBidResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&result).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("place bid: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict, http.StatusUnprocessableEntity, http.StatusForbidden:
		// Understood and refused: outbid race, closed auction, quota spent.
		return nil, &APIError{Status: resp.StatusCode(), Code: result.ErrorCode, Message: resp.String()}
	default:
		return nil, fmt.Errorf("place bid: status %d: %s", resp.StatusCode(), resp.String())
	}

	receipt := &types.BidReceipt{BidID: result.BidID, Accepted: result.Accepted}
	if result.CurrentPrice != "" {
		price, err := parseMoney("current_price", result.CurrentPrice)
		if err != nil {
			return nil, fmt.Errorf("place bid: %w", err)
		}
		receipt.CurrentPrice = price
	}

	c.logger.Info("bid placed",
		"listing", p.ListingID, "lot", p.LotNumber, "type", string(p.Type),
		"amount", p.Amount.String(), "bid_id", receipt.BidID)
	return receipt, nil
}
