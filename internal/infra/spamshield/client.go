// Package spamshield queries external ban databases (CAS and SpamWatch) for
// known spammer accounts.
package spamshield

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/userbotindo/anjani/internal/config"
	"github.com/userbotindo/anjani/internal/derror"
)

// Verdict is one provider's answer about a user.
type Verdict struct {
	Banned bool   `json:"banned"`
	Source string `json:"source"`
	Reason string `json:"reason,omitempty"`
}

// Checker is implemented by each ban-database provider.
type Checker interface {
	Name() string
	Check(ctx context.Context, userID int64) (*Verdict, error)
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// CAS queries the Combot Anti-Spam database. No token needed.
type CAS struct {
	baseURL string
}

var _ Checker = (*CAS)(nil)

func NewCAS(cfg config.SpamShieldConfig) *CAS {
	return &CAS{baseURL: cfg.CASURL}
}

func (c *CAS) Name() string { return "cas" }

func (c *CAS) Check(ctx context.Context, userID int64) (*Verdict, error) {
	url := fmt.Sprintf("%s/check?user_id=%d", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cas: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		OK     bool `json:"ok"`
		Result struct {
			Offenses int `json:"offenses"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("cas: decode: %w", err)
	}

	v := &Verdict{Banned: body.OK, Source: c.Name()}
	if body.OK {
		v.Reason = fmt.Sprintf("CAS banned, %d offenses", body.Result.Offenses)
	}
	return v, nil
}

// SpamWatch queries the SpamWatch ban list. Disabled without a token.
type SpamWatch struct {
	baseURL string
	token   string
}

var _ Checker = (*SpamWatch)(nil)

func NewSpamWatch(cfg config.SpamShieldConfig) *SpamWatch {
	return &SpamWatch{baseURL: cfg.SpamWatchURL, token: cfg.SpamWatchToken}
}

func (s *SpamWatch) Name() string { return "spamwatch" }

// Enabled reports whether a token is configured.
func (s *SpamWatch) Enabled() bool { return s.token != "" }

func (s *SpamWatch) Check(ctx context.Context, userID int64) (*Verdict, error) {
	if !s.Enabled() {
		return &Verdict{Banned: false, Source: s.Name()}, nil
	}

	url := fmt.Sprintf("%s/banlist/%d", s.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("spamwatch: decode: %w", err)
		}
		return &Verdict{Banned: true, Source: s.Name(), Reason: body.Reason}, nil
	case http.StatusNotFound:
		return &Verdict{Banned: false, Source: s.Name()}, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("spamwatch: invalid token (status %d)", resp.StatusCode)
	case http.StatusTooManyRequests:
		return nil, derror.ErrRateLimited
	default:
		return nil, fmt.Errorf("spamwatch: unexpected status %d", resp.StatusCode)
	}
}
