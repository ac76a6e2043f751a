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

package api

import (
	"fmt"
	"net/http"

	"github.com/deepmap/oapi-codegen/pkg/runtime"
	"github.com/labstack/echo/v4"
)

// GetUsersParams defines parameters for GetUsers.
type GetUsersParams struct {
	UserId *string `json:"user_id,omitempty"`
	GetAll *bool   `json:"getAll,omitempty"`
}

// GetPlanBParams defines parameters for GetPlanB.
type GetPlanBParams struct {
	UserId *string `json:"user_id,omitempty"`
}

// CheckMembershipParams defines parameters for CheckMembership.
type CheckMembershipParams struct {
	WalletAddress *string `json:"walletAddress,omitempty"`
}

// GetBonusParams defines parameters for GetBonus and GetBonusSummary.
type GetBonusParams struct {
	UserId *string `json:"user_id,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /api/users)
	GetUsers(ctx echo.Context, params GetUsersParams) error
	// (GET /api/users/{userId})
	GetUser(ctx echo.Context, userId string) error
	// (GET /api/referrer/{referrerId})
	GetReferrer(ctx echo.Context, referrerId string) error
	// (GET /api/plan-b)
	GetPlanB(ctx echo.Context, params GetPlanBParams) error
	// (GET /api/check-membership)
	CheckMembership(ctx echo.Context, params CheckMembershipParams) error
	// (POST /api/add-user)
	AddUser(ctx echo.Context) error
	// (GET /api/bonus)
	GetBonus(ctx echo.Context, params GetBonusParams) error
	// (GET /api/bonus/summary)
	GetBonusSummary(ctx echo.Context, params GetBonusParams) error
	// (GET /api/rate)
	GetRate(ctx echo.Context) error
}

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (w *ServerInterfaceWrapper) GetUsers(ctx echo.Context) error {
	var params GetUsersParams

	err := runtime.BindQueryParameter("form", true, false, "user_id", ctx.QueryParams(), &params.UserId)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter user_id: %s", err))
	}
	err = runtime.BindQueryParameter("form", true, false, "getAll", ctx.QueryParams(), &params.GetAll)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter getAll: %s", err))
	}

	return w.Handler.GetUsers(ctx, params)
}

func (w *ServerInterfaceWrapper) GetUser(ctx echo.Context) error {
	var userId string

	err := runtime.BindStyledParameter("simple", false, "userId", ctx.Param("userId"), &userId)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter userId: %s", err))
	}

	return w.Handler.GetUser(ctx, userId)
}

func (w *ServerInterfaceWrapper) GetReferrer(ctx echo.Context) error {
	var referrerId string

	err := runtime.BindStyledParameter("simple", false, "referrerId", ctx.Param("referrerId"), &referrerId)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter referrerId: %s", err))
	}

	return w.Handler.GetReferrer(ctx, referrerId)
}

func (w *ServerInterfaceWrapper) GetPlanB(ctx echo.Context) error {
	var params GetPlanBParams

	err := runtime.BindQueryParameter("form", true, false, "user_id", ctx.QueryParams(), &params.UserId)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter user_id: %s", err))
	}

	return w.Handler.GetPlanB(ctx, params)
}

func (w *ServerInterfaceWrapper) CheckMembership(ctx echo.Context) error {
	var params CheckMembershipParams

	err := runtime.BindQueryParameter("form", true, false, "walletAddress", ctx.QueryParams(), &params.WalletAddress)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter walletAddress: %s", err))
	}

	return w.Handler.CheckMembership(ctx, params)
}

func (w *ServerInterfaceWrapper) AddUser(ctx echo.Context) error {
	return w.Handler.AddUser(ctx)
}

func (w *ServerInterfaceWrapper) GetBonus(ctx echo.Context) error {
	var params GetBonusParams

	err := runtime.BindQueryParameter("form", true, false, "user_id", ctx.QueryParams(), &params.UserId)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter user_id: %s", err))
	}

	return w.Handler.GetBonus(ctx, params)
}

func (w *ServerInterfaceWrapper) GetBonusSummary(ctx echo.Context) error {
	var params GetBonusParams

	err := runtime.BindQueryParameter("form", true, false, "user_id", ctx.QueryParams(), &params.UserId)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter user_id: %s", err))
	}

	return w.Handler.GetBonusSummary(ctx, params)
}

func (w *ServerInterfaceWrapper) GetRate(ctx echo.Context) error {
	return w.Handler.GetRate(ctx)
}

// This is a simple interface which specifies echo.Route addition functions which
// are present on both echo.Echo and echo.Group, since we want to allow using
// either of them for path registration
type EchoRouter interface {
	CONNECT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	DELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	HEAD(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	OPTIONS(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PATCH(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	TRACE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers adds each server route to the EchoRouter.
func RegisterHandlers(router EchoRouter, si ServerInterface) {
	wrapper := ServerInterfaceWrapper{
		Handler: si,
	}

	router.GET("/api/users", wrapper.GetUsers)
	router.GET("/api/users/:userId", wrapper.GetUser)
	router.GET("/api/referrer/:referrerId", wrapper.GetReferrer)
	router.GET("/api/plan-b", wrapper.GetPlanB)
	router.GET("/api/check-membership", wrapper.CheckMembership)
	router.POST("/api/add-user", wrapper.AddUser)
	router.GET("/api/bonus", wrapper.GetBonus)
	router.GET("/api/bonus/summary", wrapper.GetBonusSummary)
	router.GET("/api/rate", wrapper.GetRate)
}
