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

package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/dproject/membership/configuration"
)

const maxResponseSize = 1 << 20

// Pinata pins reports as JSON documents on IPFS.
type Pinata struct {
	endpoint string
	jwt      string
	http     *http.Client
	now      func() time.Time
}

func NewPinata(cfg configuration.Audit) *Pinata {
	return &Pinata{
		endpoint: cfg.Endpoint,
		jwt:      cfg.JWT,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		now: time.Now,
	}
}

type pinRequest struct {
	Content  Report      `json:"pinataContent"`
	Metadata pinMetadata `json:"pinataMetadata"`
}

type pinMetadata struct {
	Name string `json:"name"`
}

func (p *Pinata) Store(ctx context.Context, report Report) (string, error) {
	body, err := json.Marshal(pinRequest{
		Content: report,
		Metadata: pinMetadata{
			Name: fmt.Sprintf("membership-payment-%d.json", p.now().UnixNano()/int64(time.Millisecond)),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal report")
	}

	req, err := http.NewRequest(http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to build request")
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.jwt)

	resp, err := p.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to pin report")
	}
	defer resp.Body.Close()

	data, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", errors.Wrap(err, "failed to read pinning response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Errorf("pinning responded with status: %d", resp.StatusCode)
	}
	hash := gjson.GetBytes(data, "IpfsHash").String()
	if hash == "" {
		return "", errors.New("pinning response has no IpfsHash")
	}
	return hash, nil
}
