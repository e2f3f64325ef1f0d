package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"

	"riskenforcer/src/model"
)

const (
	defaultRetryAttempts   = 5
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second
)

// apiResponse wraps every venue REST payload.
type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// RESTClient talks to the venue's REST API with HMAC-signed requests and
// internal retry on transient failures.
type RESTClient struct {
	apiKey    string
	apiSecret string
	baseURL   string
	http      *resty.Client
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}

	code := r.StatusCode()
	if code >= 500 && code <= 599 {
		return true
	}
	if code == http.StatusTooManyRequests {
		return true
	}
	if code == http.StatusRequestTimeout {
		return true
	}
	return false
}

func NewRESTClient(cfg Config) *RESTClient {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &RESTClient{
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		baseURL:   cfg.BaseURL,
		http:      httpClient,
	}
}

func signRequest(path, query, body string, expiry int64, secret string) string {
	base := path
	if query != "" {
		base += query
	}
	base += fmt.Sprintf("%d", expiry)
	if body != "" {
		base += body
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *RESTClient) doRequest(ctx context.Context, method, path, query string, body []byte) (*apiResponse, error) {
	expiry := time.Now().Add(1 * time.Minute).Unix()
	sig := signRequest(path, query, string(body), expiry, c.apiSecret)

	req := c.http.R().
		SetContext(ctx).
		SetHeader("x-venue-access-token", c.apiKey).
		SetHeader("x-venue-request-expiry", fmt.Sprintf("%d", expiry)).
		SetHeader("x-venue-request-signature", sig)

	if query != "" {
		req = req.SetQueryString(query)
	}
	if body != nil {
		req = req.SetBody(body).SetHeader("Content-Type", "application/json")
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("venue request %s %s failed: %w", method, path, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("venue request %s %s returned status %d: %s", method, path, resp.StatusCode(), resp.String())
	}

	var api apiResponse
	if err := json.Unmarshal(resp.Body(), &api); err != nil {
		return nil, fmt.Errorf("venue response decode failed: %w", err)
	}
	if api.Code != 0 {
		return nil, fmt.Errorf("venue error code %d: %s", api.Code, api.Msg)
	}
	return &api, nil
}

type commandPayload struct {
	AccountID string  `json:"accountId"`
	Symbol    string  `json:"symbol,omitempty"`
	OrderID   string  `json:"orderId,omitempty"`
	Side      string  `json:"side,omitempty"`
	Size      int     `json:"size,omitempty"`
	StopPrice float64 `json:"stopPrice,omitempty"`
}

type commandResponse struct {
	Ref     string `json:"ref"`
	Message string `json:"message"`
}

func (c *RESTClient) command(ctx context.Context, path string, payload commandPayload) (CommandResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return CommandResult{}, err
	}

	api, err := c.doRequest(ctx, http.MethodPost, path, "", body)
	if err != nil {
		return CommandResult{}, err
	}

	var cmd commandResponse
	if len(api.Data) > 0 {
		if err := json.Unmarshal(api.Data, &cmd); err != nil {
			logger.WithError(err).Warn("Venue command response data not decodable")
		}
	}
	return CommandResult{OK: true, VenueRef: cmd.Ref, Message: cmd.Message}, nil
}

func (c *RESTClient) ClosePosition(ctx context.Context, accountID, symbol string) (CommandResult, error) {
	return c.command(ctx, "/v1/positions/close", commandPayload{AccountID: accountID, Symbol: symbol})
}

func (c *RESTClient) CloseAll(ctx context.Context, accountID string) (CommandResult, error) {
	return c.command(ctx, "/v1/positions/close-all", commandPayload{AccountID: accountID})
}

func (c *RESTClient) CancelOrder(ctx context.Context, accountID, orderID string) (CommandResult, error) {
	return c.command(ctx, "/v1/orders/cancel", commandPayload{AccountID: accountID, OrderID: orderID})
}

func (c *RESTClient) CancelAll(ctx context.Context, accountID string) (CommandResult, error) {
	return c.command(ctx, "/v1/orders/cancel-all", commandPayload{AccountID: accountID})
}

func (c *RESTClient) PlaceProtectiveOrder(ctx context.Context, accountID, symbol, side string, size int, stopPrice float64) (CommandResult, error) {
	return c.command(ctx, "/v1/orders/protective", commandPayload{
		AccountID: accountID,
		Symbol:    symbol,
		Side:      side,
		Size:      size,
		StopPrice: stopPrice,
	})
}

type wirePosition struct {
	PositionID string    `json:"positionId"`
	Symbol     string    `json:"symbol"`
	Direction  string    `json:"direction"`
	Size       int       `json:"size"`
	EntryPrice float64   `json:"entryPrice"`
	OpenedAt   time.Time `json:"openedAt"`
}

func (c *RESTClient) ListPositions(ctx context.Context, accountID string) ([]model.MirroredPosition, error) {
	api, err := c.doRequest(ctx, http.MethodGet, "/v1/positions", "accountId="+accountID, nil)
	if err != nil {
		return nil, err
	}

	var wire []wirePosition
	if err := json.Unmarshal(api.Data, &wire); err != nil {
		return nil, fmt.Errorf("positions decode failed: %w", err)
	}

	out := make([]model.MirroredPosition, 0, len(wire))
	for _, p := range wire {
		out = append(out, model.MirroredPosition{
			PositionID: p.PositionID,
			AccountID:  accountID,
			Symbol:     p.Symbol,
			Direction:  p.Direction,
			Size:       p.Size,
			EntryPrice: p.EntryPrice,
			OpenedAt:   p.OpenedAt,
		})
	}
	return out, nil
}

type wireOrder struct {
	OrderID    string    `json:"orderId"`
	Symbol     string    `json:"symbol"`
	Kind       string    `json:"kind"`
	Side       string    `json:"side"`
	Size       int       `json:"size"`
	LimitPrice *float64  `json:"limitPrice,omitempty"`
	StopPrice  *float64  `json:"stopPrice,omitempty"`
	State      string    `json:"state"`
	PlacedAt   time.Time `json:"placedAt"`
}

func (c *RESTClient) ListOrders(ctx context.Context, accountID string) ([]model.MirroredOrder, error) {
	api, err := c.doRequest(ctx, http.MethodGet, "/v1/orders", "accountId="+accountID, nil)
	if err != nil {
		return nil, err
	}

	var wire []wireOrder
	if err := json.Unmarshal(api.Data, &wire); err != nil {
		return nil, fmt.Errorf("orders decode failed: %w", err)
	}

	out := make([]model.MirroredOrder, 0, len(wire))
	for _, o := range wire {
		out = append(out, model.MirroredOrder{
			OrderID:    o.OrderID,
			AccountID:  accountID,
			Symbol:     o.Symbol,
			Kind:       o.Kind,
			Side:       o.Side,
			Size:       o.Size,
			LimitPrice: o.LimitPrice,
			StopPrice:  o.StopPrice,
			State:      o.State,
			PlacedAt:   o.PlacedAt,
		})
	}
	return out, nil
}

type wireContract struct {
	InstrumentID string  `json:"instrumentId"`
	Symbol       string  `json:"symbol"`
	TickSize     float64 `json:"tickSize"`
	TickValue    float64 `json:"tickValue"`
}

func (c *RESTClient) ContractDetails(ctx context.Context, instrumentID string) (*model.ContractMeta, error) {
	api, err := c.doRequest(ctx, http.MethodGet, "/v1/contracts", "instrumentId="+instrumentID, nil)
	if err != nil {
		return nil, err
	}
	if len(api.Data) == 0 || string(api.Data) == "null" {
		return nil, nil
	}

	var wire wireContract
	if err := json.Unmarshal(api.Data, &wire); err != nil {
		return nil, fmt.Errorf("contract decode failed: %w", err)
	}
	return &model.ContractMeta{
		InstrumentID: wire.InstrumentID,
		Symbol:       wire.Symbol,
		TickSize:     wire.TickSize,
		TickValue:    wire.TickValue,
	}, nil
}
