//
// Copyright 2026 The Membership Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package membership

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/dproject/membership/internal/models"
)

// Client talks to the membership REST API. It implements Store for processes
// that have no database access of their own.
type Client struct {
	base string
	http *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

type AddUserRequest struct {
	UserID     string        `json:"user_id"`
	ReferrerID string        `json:"referrer_id"`
	PlanA      *models.PlanA `json:"plan_a"`
}

// ReferrerInfo is what a new member sees about the wallet that invited them.
type ReferrerInfo struct {
	UserID   string  `json:"user_id"`
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	TokenID  *string `json:"token_id"`
	IsMember bool    `json:"isMember"`
	IsRoot   bool    `json:"isRoot"`
}

type MembershipStatus struct {
	IsMember bool `json:"isMember"`
}

type apiError struct {
	Error []string `json:"error"`
}

func (c *Client) Get(ctx context.Context, wallet string) (*models.User, error) {
	user := &models.User{}
	err := c.do(ctx, http.MethodGet, "/api/users", url.Values{"user_id": {wallet}}, nil, user)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (c *Client) IsMember(ctx context.Context, wallet string) (bool, error) {
	status := MembershipStatus{}
	err := c.do(ctx, http.MethodGet, "/api/check-membership", url.Values{"walletAddress": {wallet}}, nil, &status)
	if err != nil {
		return false, err
	}
	return status.IsMember, nil
}

func (c *Client) Upsert(ctx context.Context, wallet, referrer string, planA *models.PlanA) (*models.User, error) {
	if planA == nil {
		return nil, ErrMissingPlan
	}
	req := AddUserRequest{UserID: wallet, ReferrerID: referrer, PlanA: planA}
	user := &models.User{}
	if err := c.do(ctx, http.MethodPost, "/api/add-user", nil, req, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (c *Client) Referrer(ctx context.Context, wallet string) (*ReferrerInfo, error) {
	info := &ReferrerInfo{}
	err := c.do(ctx, http.MethodGet, "/api/referrer/"+url.PathEscape(wallet), nil, nil, info)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (c *Client) BonusSummary(ctx context.Context, wallet string) (*BonusSummary, error) {
	summary := &BonusSummary{}
	err := c.do(ctx, http.MethodGet, "/api/bonus/summary", url.Values{"user_id": {wallet}}, nil, summary)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := apiError{}
		if json.Unmarshal(data, &msg) == nil && len(msg.Error) > 0 {
			return errors.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.Join(msg.Error, "; "))
		}
		return errors.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, out), "failed to decode response")
}
