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
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dproject/membership/internal/app/ledger"
	"github.com/dproject/membership/internal/app/membership"
	"github.com/dproject/membership/internal/app/oracle"
	"github.com/dproject/membership/internal/models"
)

type MembershipServer struct {
	dir      membership.Directory
	verifier *membership.Verifier
	rates    oracle.RateSource
	log      logrus.FieldLogger
}

func NewMembershipServer(
	dir membership.Directory,
	verifier *membership.Verifier,
	rates oracle.RateSource,
	log logrus.FieldLogger,
) *MembershipServer {
	return &MembershipServer{dir: dir, verifier: verifier, rates: rates, log: log}
}

func param(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func (s *MembershipServer) internalError(ctx echo.Context, err error) error {
	s.log.Error(err)
	return ctx.JSON(http.StatusInternalServerError, NewSingleMessageError("internal server error"))
}

// GetUsers returns one record when user_id is given, all records otherwise.
func (s *MembershipServer) GetUsers(ctx echo.Context, params GetUsersParams) error {
	if userID := param(params.UserId); userID != "" {
		user, err := s.dir.Get(ctx.Request().Context(), userID)
		if membership.IsNotFound(err) {
			return ctx.JSON(http.StatusNotFound, NewSingleMessageError("user not found"))
		}
		if err != nil {
			return s.internalError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, user)
	}

	withWalletOnly := params.GetAll != nil && *params.GetAll
	users, err := s.dir.List(ctx.Request().Context(), withWalletOnly)
	if err != nil {
		return s.internalError(ctx, err)
	}
	if users == nil {
		users = []models.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (s *MembershipServer) GetUser(ctx echo.Context, userId string) error {
	user, err := s.dir.Get(ctx.Request().Context(), userId)
	if membership.IsNotFound(err) {
		return ctx.JSON(http.StatusNotFound, NewSingleMessageError("user not found"))
	}
	if err != nil {
		return s.internalError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, profile(user))
}

// GetReferrer describes a wallet as a referrer. Root wallets are valid
// referrers even without a record.
func (s *MembershipServer) GetReferrer(ctx echo.Context, referrerId string) error {
	isRoot := s.verifier.IsRoot(referrerId)
	user, err := s.dir.Get(ctx.Request().Context(), referrerId)
	if membership.IsNotFound(err) {
		if !isRoot {
			return ctx.JSON(http.StatusNotFound, NewSingleMessageError("referrer not found"))
		}
		return ctx.JSON(http.StatusOK, membership.ReferrerInfo{UserID: referrerId, IsRoot: true})
	}
	if err != nil {
		return s.internalError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, membership.ReferrerInfo{
		UserID:   user.UserID,
		Email:    user.Email,
		Name:     user.Name,
		TokenID:  user.TokenID,
		IsMember: user.IsMember(),
		IsRoot:   isRoot,
	})
}

func (s *MembershipServer) GetPlanB(ctx echo.Context, params GetPlanBParams) error {
	userID := param(params.UserId)
	if userID == "" {
		return ctx.JSON(http.StatusBadRequest, NewSingleMessageError("user_id is required"))
	}
	row, err := s.dir.LatestPlanB(ctx.Request().Context(), userID)
	if membership.IsNotFound(err) {
		return ctx.JSON(http.StatusNotFound, NewSingleMessageError("plan B data not found"))
	}
	if err != nil {
		return s.internalError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, row)
}

func (s *MembershipServer) CheckMembership(ctx echo.Context, params CheckMembershipParams) error {
	wallet := param(params.WalletAddress)
	if wallet == "" {
		return ctx.JSON(http.StatusBadRequest, NewSingleMessageError("walletAddress is required"))
	}
	isMember, err := s.dir.IsMember(ctx.Request().Context(), wallet)
	if err != nil {
		return s.internalError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, membership.MembershipStatus{IsMember: isMember})
}

// AddUser commits a paid membership. The referrer is checked against the
// stored records, never trusted from the request.
func (s *MembershipServer) AddUser(ctx echo.Context) error {
	req := membership.AddUserRequest{}
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, NewSingleMessageError("invalid request body"))
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.ReferrerID = strings.TrimSpace(req.ReferrerID)

	var msgs []string
	if !ledger.IsAddress(req.UserID) {
		msgs = append(msgs, "user_id must be a wallet address")
	}
	if req.ReferrerID != "" && !ledger.IsAddress(req.ReferrerID) {
		msgs = append(msgs, "referrer_id must be a wallet address")
	}
	if req.PlanA == nil {
		msgs = append(msgs, "plan_a is required")
	}
	if len(msgs) > 0 {
		return ctx.JSON(http.StatusBadRequest, ErrorMessage{Error: msgs})
	}

	log := s.log.WithFields(logrus.Fields{"wallet": req.UserID, "referrer": req.ReferrerID})
	rctx := ctx.Request().Context()

	err := s.verifier.VerifyReferrer(rctx, req.UserID, req.ReferrerID)
	switch errors.Cause(err) {
	case nil:
	case membership.ErrMissingReferrer,
		membership.ErrSelfReferral,
		membership.ErrUnknownReferrer,
		membership.ErrReferrerNotMember,
		membership.ErrReferralCycle:
		log.WithField("reason", err.Error()).Warn("referrer rejected")
		return ctx.JSON(http.StatusUnprocessableEntity, NewSingleMessageError(err.Error()))
	default:
		return s.internalError(ctx, err)
	}

	user, err := s.dir.Upsert(rctx, req.UserID, req.ReferrerID, req.PlanA)
	if err != nil {
		return s.internalError(ctx, errors.Wrap(err, "failed to upsert user"))
	}
	log.Info("membership stored")
	return ctx.JSON(http.StatusOK, user)
}

func (s *MembershipServer) GetBonus(ctx echo.Context, params GetBonusParams) error {
	userID := param(params.UserId)
	if userID == "" {
		return ctx.JSON(http.StatusBadRequest, NewSingleMessageError("user_id is required"))
	}
	entries, err := s.dir.Bonuses(ctx.Request().Context(), userID)
	if err != nil {
		return s.internalError(ctx, err)
	}
	if entries == nil {
		entries = []models.Bonus{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (s *MembershipServer) GetBonusSummary(ctx echo.Context, params GetBonusParams) error {
	userID := param(params.UserId)
	if userID == "" {
		return ctx.JSON(http.StatusBadRequest, NewSingleMessageError("user_id is required"))
	}
	entries, err := s.dir.Bonuses(ctx.Request().Context(), userID)
	if err != nil {
		return s.internalError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, membership.SummarizeBonuses(userID, entries))
}

func (s *MembershipServer) GetRate(ctx echo.Context) error {
	q, err := s.rates.Rate(ctx.Request().Context())
	if err != nil {
		return ctx.JSON(http.StatusServiceUnavailable, NewSingleMessageError("rate is unavailable"))
	}
	return ctx.JSON(http.StatusOK, q)
}
