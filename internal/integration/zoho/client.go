// internal/integration/zoho/client.go
package zoho

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/domain/delivery"
	"github.com/andre-sav/panopticon/internal/domain/lead"
	"github.com/andre-sav/panopticon/internal/domain/note"
	"github.com/andre-sav/panopticon/internal/domain/timeline"
	xerrors "github.com/andre-sav/panopticon/internal/pkg/errors"
)

const (
	defaultAPIDomain   = "https://www.zohoapis.com"
	defaultAccountsURL = "https://accounts.zoho.com"
	tokenPath          = "/oauth/v2/token"

	moduleLocatings  = "Locatings"
	moduleDeliveries = "Deliveries"

	requestTimeout      = 30 * time.Second
	tokenExpiryBuffer   = 5 * time.Minute
	maxRateLimitRetries = 2
	defaultRetryAfter   = 60 * time.Second

	leadsPerPage    = 200
	timelinePerPage = 100
	notesPerPage    = 5
)

// Config holds OAuth credentials and endpoint overrides. APIDomain and
// AccountsURL default to the production Zoho endpoints when empty.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	APIDomain    string
	AccountsURL  string
	Timeout      time.Duration
}

// Client is an authenticated Zoho CRM v2 client. It exchanges the
// long-lived refresh token for short-lived access tokens, refreshing
// five minutes before expiry, and retries exactly once on a 401.
type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a Zoho client with the given credentials.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.APIDomain == "" {
		cfg.APIDomain = defaultAPIDomain
	}
	if cfg.AccountsURL == "" {
		cfg.AccountsURL = defaultAccountsURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = requestTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
	}
}

// TestConnection forces a fresh token exchange to validate the
// configured credentials.
func (c *Client) TestConnection(ctx context.Context) error {
	c.invalidateToken()
	_, err := c.token(ctx)
	return err
}

// ========== Fetch operations ==========

// FetchLeads returns all Locatings records with a scheduled
// appointment, mapped to the internal Lead shape.
func (c *Client) FetchLeads(ctx context.Context) ([]lead.Lead, error) {
	c.logger.Info("fetching leads with appointments")

	params := url.Values{
		"fields":   {strings.Join(LeadFields, ",")},
		"criteria": {"(APPT_Date:is_not_empty:)"},
		"per_page": {strconv.Itoa(leadsPerPage)},
	}

	var list recordList
	if err := c.doGet(ctx, "/crm/v2/"+moduleLocatings, params, &list); err != nil {
		return nil, err
	}

	leads := make([]lead.Lead, 0, len(list.Data))
	for _, raw := range list.Data {
		l, err := MapLead(raw)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}

	c.logger.Info("fetched leads", zap.Int("count", len(leads)))
	return leads, nil
}

// FetchStageHistory returns the Stage transitions of one lead in
// chronological order (oldest first). An empty history is a valid
// result, distinct from the error return.
func (c *Client) FetchStageHistory(ctx context.Context, leadID string) (timeline.History, error) {
	c.logger.Debug("fetching stage history", zap.String("lead_id", leadID))

	params := url.Values{
		"per_page": {strconv.Itoa(timelinePerPage)},
		"filter":   {"field_update"},
	}

	var list timelineList
	path := fmt.Sprintf("/crm/v2/%s/%s/__timeline", moduleLocatings, leadID)
	if err := c.doGet(ctx, path, params, &list); err != nil {
		return nil, err
	}

	history := mapTimeline(list.Events)
	c.logger.Debug("fetched stage history", zap.String("lead_id", leadID), zap.Int("transitions", len(history)))
	return history, nil
}

// FetchLatestNote returns the newest note attached to a lead, or an
// empty note when the lead has none. Zoho answers 204 for leads with
// no notes at all.
func (c *Client) FetchLatestNote(ctx context.Context, leadID string) (note.Note, error) {
	params := url.Values{
		"fields":     {"Note_Content,Created_Time"},
		"per_page":   {strconv.Itoa(notesPerPage)},
		"sort_by":    {"Created_Time"},
		"sort_order": {"desc"},
	}

	var list noteList
	path := fmt.Sprintf("/crm/v2/%s/%s/Notes", moduleLocatings, leadID)
	if err := c.doGet(ctx, path, params, &list); err != nil {
		return note.Note{}, err
	}

	latest := note.Note{LeadID: leadID}
	for _, rec := range list.Data {
		if rec.Content == "" {
			continue
		}
		created := parseTime(rec.CreatedTime)
		if latest.Empty() {
			latest.Content, latest.CreatedAt = rec.Content, created
			continue
		}
		if created != nil && (latest.CreatedAt == nil || created.After(*latest.CreatedAt)) {
			latest.Content, latest.CreatedAt = rec.Content, created
		}
	}
	return latest, nil
}

// FetchDeliveries returns all Deliveries records for address matching.
func (c *Client) FetchDeliveries(ctx context.Context) ([]delivery.Delivery, error) {
	c.logger.Info("fetching deliveries")

	params := url.Values{
		"fields":   {strings.Join(DeliveryFields, ",")},
		"per_page": {strconv.Itoa(leadsPerPage)},
	}

	var list recordList
	if err := c.doGet(ctx, "/crm/v2/"+moduleDeliveries, params, &list); err != nil {
		return nil, err
	}

	out := make([]delivery.Delivery, 0, len(list.Data))
	for _, raw := range list.Data {
		d, err := MapDelivery(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	c.logger.Info("fetched deliveries", zap.Int("count", len(out)))
	return out, nil
}

// ========== Token management ==========

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpiryBuffer)) {
		return c.accessToken, nil
	}
	return c.refreshTokenLocked(ctx)
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

func (c *Client) refreshTokenLocked(ctx context.Context) (string, error) {
	c.logger.Info("refreshing zoho access token")

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"refresh_token": {c.cfg.RefreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AccountsURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", xerrors.NewFetchError(xerrors.FetchUnknown, "could not build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Never log the body: auth failures can echo request parameters.
		c.logger.Error("token refresh failed",
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)))
		return "", xerrors.NewFetchError(xerrors.FetchAuth, "session expired, reconnect required", nil)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", xerrors.NewFetchError(xerrors.FetchUnknown, "invalid token response", err)
	}
	if tr.Error != "" || tr.AccessToken == "" {
		c.logger.Error("token refresh rejected", zap.String("oauth_error", tr.Error))
		return "", xerrors.NewFetchError(xerrors.FetchAuth, "session expired, reconnect required", nil)
	}

	expiresIn := tr.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}
	c.accessToken = tr.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(expiresIn) * time.Second)

	c.logger.Info("token refresh successful",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("expires_in", expiresIn))
	return c.accessToken, nil
}

// ========== Request plumbing ==========

// doGet performs an authenticated GET and decodes the JSON reply into
// out. A 401 drops the cached token and retries once with a fresh one.
// A 429 honors Retry-After (integer seconds, default 60) for at most
// two retries. A 204 leaves out untouched.
func (c *Client) doGet(ctx context.Context, path string, params url.Values, out any) error {
	rateRetries := 0
	retriedAuth := false

	for {
		token, err := c.token(ctx)
		if err != nil {
			return err
		}

		u := c.cfg.APIDomain + path
		if len(params) > 0 {
			u += "?" + params.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return xerrors.NewFetchError(xerrors.FetchUnknown, "could not build request", err)
		}
		req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
		req.Header.Set("Content-Type", "application/json")

		c.logger.Debug("zoho api request", zap.String("path", path))
		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return classifyTransport(err)
		}
		c.logger.Debug("zoho api response",
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)))

		switch {
		case resp.StatusCode == http.StatusUnauthorized && !retriedAuth:
			resp.Body.Close()
			c.logger.Warn("got 401, refreshing token and retrying")
			c.invalidateToken()
			retriedAuth = true
			continue

		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			return xerrors.NewFetchError(xerrors.FetchAuth, "session expired, reconnect required", nil)

		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			if rateRetries >= maxRateLimitRetries {
				c.logger.Error("rate limit retries exhausted")
				return xerrors.NewFetchError(xerrors.FetchRateLimited, "rate limit exceeded after retries, try again later", nil)
			}
			rateRetries++
			c.logger.Warn("rate limited, backing off",
				zap.Int("retry", rateRetries),
				zap.Int("max_retries", maxRateLimitRetries),
				zap.Duration("wait", retryAfter))
			select {
			case <-ctx.Done():
				return classifyTransport(ctx.Err())
			case <-time.After(retryAfter):
			}
			continue

		case resp.StatusCode == http.StatusNoContent:
			resp.Body.Close()
			return nil

		case resp.StatusCode >= 400:
			resp.Body.Close()
			return xerrors.NewFetchError(xerrors.FetchUnknown, fmt.Sprintf("zoho returned status %d", resp.StatusCode), nil)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return xerrors.NewFetchError(xerrors.FetchUnknown, "invalid response payload", err)
		}
		return nil
	}
}

// classifyTransport maps transport-level failures onto the fetch error
// taxonomy so the UI can distinguish a timeout from a dead network.
func classifyTransport(err error) error {
	var ue *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return xerrors.NewFetchError(xerrors.FetchTimeout, "request timed out, zoho may be slow", err)
	case errors.As(err, &ue) && ue.Timeout():
		return xerrors.NewFetchError(xerrors.FetchTimeout, "request timed out, zoho may be slow", err)
	case errors.As(err, &ue):
		return xerrors.NewFetchError(xerrors.FetchConnection, "unable to connect to zoho crm", err)
	default:
		return xerrors.NewFetchError(xerrors.FetchUnknown, "error communicating with zoho crm", err)
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}
