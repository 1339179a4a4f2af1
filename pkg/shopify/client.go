package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const apiVersion = "2023-10"

// Client talks to the Shopify Admin REST API. Both operations are fail-closed:
// any transport or service error becomes false with a log entry, never an
// error the orchestrator has to interpret. One attempt per call; the
// verifier's own timeout bounds a stalled session.
type Client struct {
	shopURL string
	token   string
	http    *http.Client
	log     *zap.SugaredLogger
}

func New(shopURL, accessToken string, log *zap.SugaredLogger) *Client {
	return &Client{
		shopURL: shopURL,
		token:   accessToken,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

type orderEnvelope struct {
	Order *struct {
		ID uint64 `json:"id"`
	} `json:"order"`
}

// VerifyOrder confirms the order id corresponds to a real order on the shop.
func (c *Client) VerifyOrder(ctx context.Context, orderID uint64) bool {
	url := fmt.Sprintf("%s/admin/api/%s/orders/%d.json", c.shopURL, apiVersion, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.log.Errorw("shopify_request_build_failed", "order_id", orderID, "err", err)
		return false
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Errorw("shopify_order_lookup_failed", "order_id", orderID, "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Infow("shopify_order_not_found", "order_id", orderID, "status", resp.StatusCode)
		return false
	}

	var env orderEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil || env.Order == nil {
		c.log.Errorw("shopify_order_decode_failed", "order_id", orderID, "err", err)
		return false
	}
	return true
}

type fulfillmentOrdersEnvelope struct {
	FulfillmentOrders []struct {
		ID     uint64 `json:"id"`
		Status string `json:"status"`
	} `json:"fulfillment_orders"`
}

type fulfillmentRequest struct {
	Fulfillment struct {
		Message          string                        `json:"message"`
		NotifyCustomer   bool                          `json:"notify_customer"`
		LineItemsByOrder []lineItemsByFulfillmentOrder `json:"line_items_by_fulfillment_order"`
	} `json:"fulfillment"`
}

type lineItemsByFulfillmentOrder struct {
	FulfillmentOrderID uint64 `json:"fulfillment_order_id"`
}

// MarkFulfilled fulfills every open fulfillment order of the given order and
// notifies the customer. Called once, only when a session completes.
func (c *Client) MarkFulfilled(ctx context.Context, orderID uint64) bool {
	url := fmt.Sprintf("%s/admin/api/%s/orders/%d/fulfillment_orders.json", c.shopURL, apiVersion, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.log.Errorw("shopify_request_build_failed", "order_id", orderID, "err", err)
		return false
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Errorw("shopify_fulfillment_list_failed", "order_id", orderID, "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Errorw("shopify_fulfillment_list_failed", "order_id", orderID, "status", resp.StatusCode)
		return false
	}

	var env fulfillmentOrdersEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		c.log.Errorw("shopify_fulfillment_decode_failed", "order_id", orderID, "err", err)
		return false
	}

	var body fulfillmentRequest
	body.Fulfillment.Message = "Successfully delivered"
	body.Fulfillment.NotifyCustomer = true
	for _, fo := range env.FulfillmentOrders {
		if fo.Status != "open" {
			continue
		}
		body.Fulfillment.LineItemsByOrder = append(body.Fulfillment.LineItemsByOrder,
			lineItemsByFulfillmentOrder{FulfillmentOrderID: fo.ID})
	}
	if len(body.Fulfillment.LineItemsByOrder) == 0 {
		c.log.Errorw("shopify_no_open_fulfillment_orders", "order_id", orderID)
		return false
	}

	payload, err := json.Marshal(body)
	if err != nil {
		c.log.Errorw("shopify_fulfillment_marshal_failed", "order_id", orderID, "err", err)
		return false
	}

	url = fmt.Sprintf("%s/admin/api/%s/fulfillments.json", c.shopURL, apiVersion)
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		c.log.Errorw("shopify_request_build_failed", "order_id", orderID, "err", err)
		return false
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp2, err := c.http.Do(req)
	if err != nil {
		c.log.Errorw("shopify_fulfillment_create_failed", "order_id", orderID, "err", err)
		return false
	}
	defer resp2.Body.Close()

	if resp2.StatusCode != http.StatusOK && resp2.StatusCode != http.StatusCreated {
		c.log.Errorw("shopify_fulfillment_create_failed", "order_id", orderID, "status", resp2.StatusCode)
		return false
	}

	c.log.Infow("shopify_order_fulfilled", "order_id", orderID)
	return true
}
