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

package ledger

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dproject/membership/configuration"
)

// Backend is the part of ethclient.Client the EVM client needs.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// EVM sends native token transfers signed with a single payer key.
type EVM struct {
	backend Backend
	key     *ecdsa.PrivateKey
	from    common.Address
	signer  types.Signer
	chainID *big.Int
	log     logrus.FieldLogger

	// serializes nonce allocation
	mu sync.Mutex
}

func Dial(ctx context.Context, cfg configuration.Ledger, log logrus.FieldLogger) (*EVM, *ethclient.Client, error) {
	key, err := ParseKey(cfg.PrivateKey)
	if err != nil {
		return nil, nil, err
	}
	client, err := ethclient.DialContext(ctx, cfg.RPC)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to dial %s", cfg.RPC)
	}
	return NewEVM(client, key, big.NewInt(cfg.ChainID), log), client, nil
}

func ParseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, errors.New("ledger private key is not set")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, errors.Wrap(err, "invalid ledger private key")
	}
	return key, nil
}

func NewEVM(backend Backend, key *ecdsa.PrivateKey, chainID *big.Int, log logrus.FieldLogger) *EVM {
	from := crypto.PubkeyToAddress(key.PublicKey)
	return &EVM{
		backend: backend,
		key:     key,
		from:    from,
		signer:  types.LatestSignerForChainID(chainID),
		chainID: chainID,
		log:     log.WithFields(logrus.Fields{"component": "ledger", "sender": from.Hex()}),
	}
}

func (e *EVM) Sender() string {
	return e.from.Hex()
}

func (e *EVM) Balance(ctx context.Context) (*big.Int, error) {
	balance, err := e.backend.BalanceAt(ctx, e.from, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get balance")
	}
	return balance, nil
}

func (e *EVM) Transfer(ctx context.Context, to string, amount *big.Int) (string, error) {
	if !IsAddress(to) {
		return "", errors.Wrapf(ErrInvalidAddress, "recipient %q", to)
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", errors.Wrapf(ErrInvalidAmount, "amount %v", amount)
	}
	recipient := common.HexToAddress(to)

	e.mu.Lock()
	defer e.mu.Unlock()

	nonce, err := e.backend.PendingNonceAt(ctx, e.from)
	if err != nil {
		return "", errors.Wrap(err, "failed to get nonce")
	}
	tip, err := e.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to suggest gas tip")
	}
	head, err := e.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to get latest header")
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}
	gas, err := e.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  e.from,
		To:    &recipient,
		Value: amount,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to estimate gas")
	}

	tx, err := types.SignTx(types.NewTx(&types.DynamicFeeTx{
		ChainID:   e.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &recipient,
		Value:     amount,
	}), e.signer, e.key)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign transaction")
	}
	if err := e.backend.SendTransaction(ctx, tx); err != nil {
		return "", errors.Wrap(err, "failed to send transaction")
	}

	txID := tx.Hash().Hex()
	e.log.WithFields(logrus.Fields{
		"to":     recipient.Hex(),
		"amount": amount.String(),
		"nonce":  nonce,
		"tx_id":  txID,
	}).Info("transfer submitted")
	return txID, nil
}
