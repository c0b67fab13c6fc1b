package finalizer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	attestationComplete = "complete"
	sandboxURL          = "https://iris-api-sandbox.circle.com"
)

// AttestationMessage is one attested message returned by the attestation
// service for a burn transaction.
type AttestationMessage struct {
	Attestation string `json:"attestation"`
	Message     string `json:"message"`
	EventNonce  string `json:"eventNonce"`
	Status      string `json:"status"`
}

// Nonce parses the service's decimal nonce string.
func (m *AttestationMessage) Nonce() (int64, error) {
	n, err := strconv.ParseInt(m.EventNonce, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid event nonce %q: %w", m.EventNonce, err)
	}
	return n, nil
}

type attestationResponse struct {
	Messages []AttestationMessage `json:"messages"`
}

// AttestationClient fetches attestations from the external attestation
// service over HTTP.
type AttestationClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAttestationClient creates a client against the given base URL. When
// production is false the sandbox endpoint is used instead of the default
// production one; an explicitly configured non-default URL always wins.
func NewAttestationClient(baseURL string, production bool, timeout time.Duration) *AttestationClient {
	if !production && baseURL == "https://iris-api.circle.com" {
		baseURL = sandboxURL
	}
	return &AttestationClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchAttestation returns the completed attestation for a burn
// transaction, or nil when the attestation is not ready yet. An empty
// message list, a non-complete status and a 404 are all treated as "not
// yet ready"; only transport-level failures surface as errors.
func (c *AttestationClient) FetchAttestation(ctx context.Context, domain uint32, txHash string) (*AttestationMessage, error) {
	endpoint := fmt.Sprintf("%s/v2/messages/%d?transactionHash=%s",
		c.baseURL, domain, url.QueryEscape(txHash))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build attestation request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("attestation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attestation service returned status %d", resp.StatusCode)
	}

	var body attestationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode attestation response: %w", err)
	}

	for i := range body.Messages {
		if body.Messages[i].Status == attestationComplete {
			return &body.Messages[i], nil
		}
	}
	return nil, nil
}
