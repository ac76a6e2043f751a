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

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	echoPrometheus "github.com/globocom/echo-prometheus"

	"github.com/dproject/membership/component"
	"github.com/dproject/membership/configuration"
	"github.com/dproject/membership/internal/app/api"
	"github.com/dproject/membership/internal/app/membership"
	"github.com/dproject/membership/internal/app/oracle"
	"github.com/dproject/membership/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := configuration.APILoad(observability.NewLogger(configuration.APIDefault().Log))
	obs := observability.Make(cfg.Log)
	logger := obs.Log()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStorage(cfg, obs)
	if err != nil {
		logger.Fatal(err)
	}
	defer store.close()
	dir := store.dir

	verifier := membership.NewVerifier(dir, cfg.Membership.RootWallets)

	rates, err := oracle.New(cfg.Oracle, obs)
	if err != nil {
		logger.Fatal(errors.Wrap(err, "invalid oracle configuration"))
	}
	refresher := oracle.NewRefresher(rates, cfg.Oracle.Refresh, logger)
	if err := refresher.Start(ctx); err != nil {
		logger.Fatal(err)
	}

	checks := map[string]component.HealthCheck{
		"rate": func(context.Context) error {
			if _, ok := refresher.Latest(); !ok {
				return errors.New("no rate fetched yet")
			}
			return nil
		},
	}
	if store.check != nil {
		checks["db"] = store.check
	}
	admin := component.NewRouter(cfg.Admin, obs, checks)
	admin.Start()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(echoPrometheus.MetricsMiddleware())
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api.RegisterHandlers(e, api.NewMembershipServer(dir, verifier, refresher, logger))
	go func() {
		if err := e.Start(cfg.API.Addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal(errors.Wrap(err, "api server"))
		}
	}()

	graceful(logger, func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()

		if err := e.Shutdown(stopCtx); err != nil {
			logger.Error(errors.Wrap(err, "api server shutdown"))
		}
		admin.Stop(stopCtx)
		if err := refresher.Stop(stopCtx); err != nil {
			logger.Error(errors.Wrap(err, "rate refresher stop"))
		}
	})
}

func graceful(logger logrus.FieldLogger, that func()) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Infof("gracefully stopping...")
	that()
}
