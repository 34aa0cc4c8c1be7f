package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type LocalSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

func (s *LocalSigner) Address() common.Address {
	return s.address
}

func (s *LocalSigner) SignTx(chainID *big.Int, tx *types.Transaction) (*types.Transaction, error) {
	if s == nil || s.privateKey == nil {
		return nil, errors.New("local signer is not initialized")
	}
	txSigner := types.LatestSignerForChainID(chainID)
	return types.SignTx(tx, txSigner, s.privateKey)
}

// SignMessage signs msg with the EIP-191 personal-message prefix and returns
// the 65-byte signature as 0x-prefixed hex with the recovery id shifted to
// the 27/28 convention expected by the login endpoint.
func (s *LocalSigner) SignMessage(msg []byte) (string, error) {
	if s == nil || s.privateKey == nil {
		return "", errors.New("local signer is not initialized")
	}
	sig, err := crypto.Sign(accounts.TextHash(msg), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

// NewLocalSigner parses a hex private key (with or without 0x prefix) and
// derives the account address.
func NewLocalSigner(privateKeyHex string) (*LocalSigner, error) {
	clean := strings.TrimSpace(privateKeyHex)
	clean = strings.TrimPrefix(clean, "0x")
	if clean == "" {
		return nil, fmt.Errorf("empty private key")
	}
	pk, err := crypto.HexToECDSA(clean)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	pub, ok := pk.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("invalid ECDSA public key")
	}
	return &LocalSigner{privateKey: pk, address: crypto.PubkeyToAddress(*pub)}, nil
}
