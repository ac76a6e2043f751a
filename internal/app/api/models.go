//
// Copyright 2019 Insolar Technologies GmbH
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

package api

import (
	"time"

	"github.com/dproject/membership/internal/models"
)

// UserProfile is the public part of a membership record.
type UserProfile struct {
	UserID     string    `json:"user_id"`
	Email      *string   `json:"email"`
	Name       *string   `json:"name"`
	TokenID    *string   `json:"token_id"`
	ReferrerID *string   `json:"referrer_id"`
	IsMember   bool      `json:"isMember"`
	CreatedAt  time.Time `json:"created_at"`
}

func profile(u *models.User) UserProfile {
	return UserProfile{
		UserID:     u.UserID,
		Email:      u.Email,
		Name:       u.Name,
		TokenID:    u.TokenID,
		ReferrerID: u.ReferrerID,
		IsMember:   u.IsMember(),
		CreatedAt:  u.CreatedAt,
	}
}
