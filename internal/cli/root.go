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

package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dproject/membership/configuration"
	"github.com/dproject/membership/internal/app/audit"
	"github.com/dproject/membership/internal/app/ledger"
	"github.com/dproject/membership/internal/app/membership"
	"github.com/dproject/membership/internal/app/oracle"
	"github.com/dproject/membership/internal/app/payment"
	"github.com/dproject/membership/observability"
)

const apiTimeout = 15 * time.Second

// Directory is the membership API as seen by the CLI.
type Directory interface {
	membership.Store
	Referrer(ctx context.Context, wallet string) (*membership.ReferrerInfo, error)
	BonusSummary(ctx context.Context, wallet string) (*membership.BonusSummary, error)
}

// Deps are the collaborators of one CLI run.
type Deps struct {
	Config    *configuration.PayConfiguration
	Engine    *payment.Engine
	Ledger    ledger.Client
	Directory Directory
	Rates     oracle.RateSource
	Close     func()
}

type App struct {
	In  io.Reader
	Out io.Writer

	// Build wires collaborators from the loaded configuration.
	Build func(ctx context.Context, cfg *configuration.PayConfiguration) (*Deps, error)

	configPath string
}

func NewApp() *App {
	return &App{
		In:    os.Stdin,
		Out:   os.Stdout,
		Build: Build,
	}
}

// Build connects to the chain and the membership API.
func Build(ctx context.Context, cfg *configuration.PayConfiguration) (*Deps, error) {
	obs := observability.Make(cfg.Log)
	log := obs.Log()

	rates, err := oracle.New(cfg.Oracle, obs)
	if err != nil {
		return nil, errors.Wrap(err, "invalid oracle configuration")
	}
	evm, client, err := ledger.Dial(ctx, cfg.Ledger, log)
	if err != nil {
		return nil, err
	}
	dir := membership.NewClient(cfg.APIURL, apiTimeout)
	recorder := audit.NewRecorder(audit.NewSink(cfg.Audit), cfg.Audit.Gateway, log)
	engine := payment.NewEngine(
		payment.ConfigFrom(cfg.Payment, cfg.Ledger.Decimals),
		rates,
		evm,
		dir,
		recorder,
		obs,
	)
	return &Deps{
		Config:    cfg,
		Engine:    engine,
		Ledger:    evm,
		Directory: dir,
		Rates:     rates,
		Close:     client.Close,
	}, nil
}

func (a *App) deps(ctx context.Context) (*Deps, error) {
	cfg := configuration.PayLoad(observability.NewLogger(configuration.PayDefault().Log), a.configPath)
	return a.Build(ctx, cfg)
}

func (a *App) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "membership-pay",
		Short:         "Pay the membership fee in two phases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to pay.yaml")
	root.SetIn(a.In)
	root.SetOut(a.Out)

	root.AddCommand(a.payCommand())
	root.AddCommand(a.rateCommand())
	root.AddCommand(a.statusCommand())
	return root
}
