// Package payments integrates the Mercado Pago checkout and webhook flow.
package payments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/provafacil/ProvaFacilApi/utils"
)

// Pro plan pricing. The 1.00 amount is the gateway test charge and maps to a
// one-day plan.
const (
	ProPlanPrice  = 49.90
	TestPlanPrice = 1.00
)

type Config struct {
	AccessToken string
	BaseURL     string
	AppBaseURL  string
}

func LoadConfig() *Config {
	return &Config{
		AccessToken: utils.GetEnvOrDefault("MP_ACCESS_TOKEN", ""),
		BaseURL:     utils.GetEnvOrDefault("MP_BASE_URL", "https://api.mercadopago.com"),
		AppBaseURL:  utils.GetEnvOrDefault("APP_BASE_URL", "http://localhost:8080"),
	}
}

type Client struct {
	config     *Config
	httpClient *http.Client
}

func NewClient(config *Config) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Payment is the authoritative gateway record fetched by id after a webhook
// delivery.
type Payment struct {
	ID                string
	Status            string
	Amount            float64
	ExternalReference string
}

// UserID parses the external reference we set at checkout time.
func (p *Payment) UserID() (int, error) {
	id, err := strconv.Atoi(p.ExternalReference)
	if err != nil {
		return 0, fmt.Errorf("payment %s has invalid external reference %q", p.ID, p.ExternalReference)
	}
	return id, nil
}

// Approved reports whether the payment unlocks the pro plan.
func (p *Payment) Approved() bool {
	return p.Status == "approved" || p.Status == "authorized"
}

// CreateCheckout builds a one-time preference or a recurring preapproval,
// embedding the user id as the external reference, and returns the redirect
// URL.
func (c *Client) CreateCheckout(userID int, recurring bool) (string, error) {
	if c.config.AccessToken == "" {
		return "", fmt.Errorf("MP_ACCESS_TOKEN is not configured")
	}

	if recurring {
		return c.createPreapproval(userID)
	}
	return c.createPreference(userID)
}

func (c *Client) createPreference(userID int) (string, error) {
	utils.LogPay("Creating checkout preference for user %d", userID)

	body := map[string]interface{}{
		"items": []map[string]interface{}{{
			"title":       "Plano Pro - 1 mês",
			"quantity":    1,
			"unit_price":  ProPlanPrice,
			"currency_id": "BRL",
		}},
		"external_reference": strconv.Itoa(userID),
		"back_urls": map[string]string{
			"success": c.config.AppBaseURL + "/payment/success",
			"failure": c.config.AppBaseURL + "/payment/failure",
			"pending": c.config.AppBaseURL + "/payment/pending",
		},
		"auto_return":       "approved",
		"notification_url":  c.config.AppBaseURL + "/webhook",
		"statement_descriptor": "PROVAFACIL",
	}

	var resp struct {
		InitPoint string `json:"init_point"`
	}
	if err := c.post("/checkout/preferences", body, &resp); err != nil {
		return "", err
	}
	if resp.InitPoint == "" {
		return "", fmt.Errorf("gateway returned an empty init point")
	}

	return resp.InitPoint, nil
}

func (c *Client) createPreapproval(userID int) (string, error) {
	utils.LogPay("Creating recurring preapproval for user %d", userID)

	body := map[string]interface{}{
		"reason":             "Plano Pro - assinatura mensal",
		"external_reference": strconv.Itoa(userID),
		"auto_recurring": map[string]interface{}{
			"frequency":          1,
			"frequency_type":     "months",
			"transaction_amount": ProPlanPrice,
			"currency_id":        "BRL",
		},
		"back_url": c.config.AppBaseURL + "/payment/success",
	}

	var resp struct {
		InitPoint string `json:"init_point"`
	}
	if err := c.post("/preapproval", body, &resp); err != nil {
		return "", err
	}
	if resp.InitPoint == "" {
		return "", fmt.Errorf("gateway returned an empty init point")
	}

	return resp.InitPoint, nil
}

// GetPayment fetches the authoritative payment state by id. Webhook payloads
// are treated as a hint only.
func (c *Client) GetPayment(paymentID string) (*Payment, error) {
	utils.LogPay("Fetching payment %s from gateway", paymentID)

	req, err := http.NewRequest(http.MethodGet, c.config.BaseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment lookup failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		utils.LogError("Payment lookup for %s returned %d", paymentID, resp.StatusCode)
		return nil, fmt.Errorf("payment lookup returned status %d", resp.StatusCode)
	}

	var raw struct {
		ID                json.Number `json:"id"`
		Status            string      `json:"status"`
		TransactionAmount float64     `json:"transaction_amount"`
		ExternalReference string      `json:"external_reference"`
	}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("malformed payment payload: %w", err)
	}

	return &Payment{
		ID:                raw.ID.String(),
		Status:            raw.Status,
		Amount:            raw.TransactionAmount,
		ExternalReference: raw.ExternalReference,
	}, nil
}

func (c *Client) post(path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	// Idempotency key keeps gateway-side retries from creating duplicates
	req.Header.Set("X-Idempotency-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		utils.LogError("Gateway %s returned %d: %s", path, resp.StatusCode, truncate(string(respBody), 300))
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	return json.Unmarshal(respBody, out)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
