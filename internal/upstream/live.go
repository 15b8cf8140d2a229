package upstream

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/jakubkrzysztofsikora/adhd-budget/pkg/logging"
)

const (
	baseURL         = "https://api.enablebanking.com"
	jwtIssuer       = "enablebanking.com"
	jwtAudience     = "api.enablebanking.com"
	jwtTTL          = 24 * time.Hour
	consentValidity = 90 * 24 * time.Hour
	requestTimeout  = 10 * time.Second
)

// upstreamClaims is the upstream-signing JWT's claim set: {iss, aud, iat,
// exp}, with kid carried in the header rather than the claims.
type upstreamClaims struct {
	jwt.RegisteredClaims
}

// liveClient talks to the real Enable Banking API, authenticating every
// request with a freshly signed RS256 JWT.
type liveClient struct {
	appID      string
	privateKey *rsa.PrivateKey
	httpClient *http.Client
}

// NewLiveClient loads the RSA private key at keyPath and returns a Client
// backed by the real Enable Banking API. Returns *ConfigError if the key is
// missing or malformed — this is a fatal configuration error at construction.
func NewLiveClient(appID, keyPath string) (Client, error) {
	if appID == "" || keyPath == "" {
		return nil, &ConfigError{Reason: "ENABLE_APP_ID and ENABLE_PRIVATE_KEY_PATH are required in production"}
	}

	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("reading private key: %v", err)}
	}

	key, err := parsePrivateKey(keyData)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("parsing private key: %v", err)}
	}

	return &liveClient{
		appID:      appID,
		privateKey: key,
		httpClient: &http.Client{Timeout: requestTimeout},
	}, nil
}

func parsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("key is not an RSA private key")
		}
		return rsaKey, nil
	}

	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

// signToken mints a short-lived RS256 JWT with a custom kid header, used to
// authenticate every call to the Enable Banking API.
func (c *liveClient) signToken() (string, error) {
	now := time.Now()
	claims := upstreamClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtIssuer,
			Audience:  jwt.ClaimStrings{jwtAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = c.appID

	return token.SignedString(c.privateKey)
}

func (c *liveClient) InitiateConsent(ctx context.Context, req ConsentRequest) (*ConsentResult, error) {
	tok, err := c.signToken()
	if err != nil {
		return nil, fmt.Errorf("signing upstream jwt: %w", err)
	}

	body := map[string]interface{}{
		"access": map[string]string{
			"valid_until": time.Now().Add(consentValidity).UTC().Format(time.RFC3339),
		},
		"aspsp": map[string]string{
			"name":    req.ASPSPName,
			"country": req.ASPSPCountry,
		},
		"redirect_url": req.RedirectURL,
		"psu_type":     orDefault(req.PSUType, "personal"),
	}
	if req.State != "" {
		body["state"] = req.State
	}

	var result ConsentResult
	if err := c.doJSON(ctx, http.MethodPost, "/auth", tok, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *liveClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*Tokens, error) {
	tok, err := c.signToken()
	if err != nil {
		return nil, fmt.Errorf("signing upstream jwt: %w", err)
	}

	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirectURI},
		"client_id":    {c.appID},
	}

	var result Tokens
	if err := c.doForm(ctx, "/auth/token", tok, form, &result); err != nil {
		return nil, err
	}
	result.withExpiry(time.Now())
	logTokenExchange("code exchange", &result)
	return &result, nil
}

func (c *liveClient) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.appID},
	}

	var result Tokens
	if err := c.doForm(ctx, "/auth/token", "", form, &result); err != nil {
		return nil, err
	}
	if result.RefreshToken == "" {
		result.RefreshToken = refreshToken
	}
	result.withExpiry(time.Now())
	logTokenExchange("refresh", &result)
	return &result, nil
}

func logTokenExchange(op string, t *Tokens) {
	tok := asOAuth2Token(t)
	logging.Debug("upstream", "%s succeeded, access=%s expiry=%s", op, logging.MaskToken(tok.AccessToken), tok.Expiry)
}

func (c *liveClient) ListAccounts(ctx context.Context, accessToken, refreshToken string) ([]Account, *Tokens, error) {
	var out struct {
		Accounts []Account `json:"accounts"`
	}

	fetch := func(tok string) error {
		return c.doBearer(ctx, http.MethodGet, "/accounts", tok, nil, &out)
	}

	rotated, err := c.withRetry(ctx, accessToken, refreshToken, fetch)
	if err != nil {
		return nil, nil, err
	}
	return out.Accounts, rotated, nil
}

func (c *liveClient) ListTransactions(ctx context.Context, accountID, accessToken, refreshToken string, from, to *time.Time) ([]Transaction, *Tokens, error) {
	path := fmt.Sprintf("/accounts/%s/transactions", accountID)
	q := url.Values{}
	if from != nil {
		q.Set("dateFrom", from.Format("2006-01-02"))
	}
	if to != nil {
		q.Set("dateTo", to.Format("2006-01-02"))
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out struct {
		Transactions struct {
			Booked []rawTransaction `json:"booked"`
		} `json:"transactions"`
	}

	fetch := func(tok string) error {
		return c.doBearer(ctx, http.MethodGet, path, tok, nil, &out)
	}

	rotated, err := c.withRetry(ctx, accessToken, refreshToken, fetch)
	if err != nil {
		return nil, nil, err
	}

	txs := make([]Transaction, 0, len(out.Transactions.Booked))
	for _, r := range out.Transactions.Booked {
		txs = append(txs, r.toTransaction())
	}
	return txs, rotated, nil
}

// withRetry calls fetch with accessToken; on a 401 it refreshes exactly
// once (via refreshToken) and retries fetch with the new access token,
// returning the rotated Tokens so the caller can persist them.
func (c *liveClient) withRetry(ctx context.Context, accessToken, refreshToken string, fetch func(token string) error) (*Tokens, error) {
	err := fetch(accessToken)
	if err == nil {
		return nil, nil
	}
	if !isUnauthorized(err) || refreshToken == "" {
		return nil, err
	}

	rotated, rerr := c.Refresh(ctx, refreshToken)
	if rerr != nil {
		return nil, fmt.Errorf("refreshing after 401: %w", rerr)
	}

	if err := fetch(rotated.AccessToken); err != nil {
		return nil, err
	}
	return rotated, nil
}

func isUnauthorized(err error) bool {
	var uerr *UpstreamError
	if errors.As(err, &uerr) {
		return uerr.StatusCode == http.StatusUnauthorized
	}
	return false
}

type rawTransaction struct {
	TransactionID        string `json:"transactionId"`
	EndToEndID           string `json:"entryReference"`
	BookingDate          string `json:"bookingDate"`
	ValueDate            string `json:"valueDate"`
	CreditDebitIndicator string `json:"creditDebitIndicator"`
	TransactionAmount    struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"transactionAmount"`
	CreditorName string `json:"creditorName"`
	Remittance   string `json:"remittanceInformationUnstructured"`
}

// toTransaction maps the upstream wire shape onto Transaction. Reference
// prefers the bank's own entry reference, falling back to the transaction ID
// when the ASPSP doesn't supply one — mirroring original_source's
// enable_banking.py reference derivation.
func (r rawTransaction) toTransaction() Transaction {
	reference := r.EndToEndID
	if reference == "" {
		reference = r.TransactionID
	}

	return Transaction{
		ID:                   r.TransactionID,
		BookingDate:          r.BookingDate,
		ValueDate:            r.ValueDate,
		Amount:               r.TransactionAmount.Amount,
		Currency:             r.TransactionAmount.Currency,
		CreditDebitIndicator: r.CreditDebitIndicator,
		CreditorName:         r.CreditorName,
		Description:          r.Remittance,
		Reference:            reference,
	}
}

func (c *liveClient) doJSON(ctx context.Context, method, path, bearer string, body interface{}, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return c.do(req, out)
}

func (c *liveClient) doForm(ctx context.Context, path, bearer string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return c.do(req, out)
}

func (c *liveClient) doBearer(ctx context.Context, method, path, bearer string, body interface{}, out interface{}) error {
	return c.doJSON(ctx, method, path, bearer, body, out)
}

func (c *liveClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		msg := errBody.Message
		if msg == "" {
			msg = fmt.Sprintf("upstream returned status %d", resp.StatusCode)
		}
		logging.Warn("upstream", "request to %s failed: %s", req.URL.Path, msg)
		return &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding upstream response: %w", err)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// asOAuth2Token expresses the upstream token response as an oauth2.Token so
// downstream code that already thinks in terms of golang.org/x/oauth2 (the
// gateway's own upstream-facing client is, after all, an OAuth2 client of
// Enable Banking) can reuse its Valid()/expiry helpers.
func asOAuth2Token(t *Tokens) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    "Bearer",
	}
	if t.ExpiresIn > 0 {
		tok = tok.WithExtra(map[string]interface{}{"expires_in": t.ExpiresIn})
		tok.Expiry = time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return tok
}
