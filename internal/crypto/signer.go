package crypto

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vmihailenco/msgpack/v5"
)

// --------------------------------------------------------------------------
// EIP-712 type hashes (pre-computed keccak256 of the canonical type strings).
//
// Hyperliquid signs exchange actions through an "agent" envelope: the action
// is msgpack-serialized, hashed together with the nonce into a connectionId,
// and the Agent struct is signed under the Exchange domain.
// --------------------------------------------------------------------------

var (
	// EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
	eip712DomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"),
	)

	// Agent(string source,bytes32 connectionId)
	agentTypeHash = ethcrypto.Keccak256(
		[]byte("Agent(string source,bytes32 connectionId)"),
	)
)

const (
	// exchangeChainID is fixed by the exchange for agent signatures and is
	// unrelated to the EVM chain the funds live on.
	exchangeChainID = 1337

	// agentSourceMainnet / agentSourceTestnet select the network the
	// signature is valid for.
	agentSourceMainnet = "a"
	agentSourceTestnet = "b"
)

// Signature is a secp256k1 signature split into the r/s/v fields the
// exchange's write path expects.
type Signature struct {
	R string `json:"r" msgpack:"r"`
	S string `json:"s" msgpack:"s"`
	V uint8  `json:"v" msgpack:"v"`
}

// Signer signs Hyperliquid exchange actions with a raw secp256k1 key. It is
// constructed transiently per submission; nothing about the key is cached
// beyond the struct's lifetime.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	domainSep  []byte // cached Exchange domain separator hash
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key (with
// or without 0x prefix).
func NewSigner(privateKeyHex string) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}

	s := &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}
	s.domainSep = buildDomainSeparator("Exchange", "1", exchangeChainID, common.Address{})

	return s, nil
}

// Address returns the Ethereum address derived from the signer's private key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignL1Action serializes the action, hashes it with the nonce, and signs
// the resulting Agent struct. mainnet selects the agent source the exchange
// validates the signature against.
func (s *Signer) SignL1Action(action any, nonce int64, mainnet bool) (Signature, error) {
	connectionID, err := ActionHash(action, nonce)
	if err != nil {
		return Signature{}, err
	}

	source := agentSourceTestnet
	if mainnet {
		source = agentSourceMainnet
	}

	structHash := ethcrypto.Keccak256(
		concatBytes(
			agentTypeHash,
			ethcrypto.Keccak256([]byte(source)),
			connectionID,
		),
	)

	digest := eip712Hash(s.domainSep, structHash)
	return s.signDigest(digest)
}

// ActionHash computes the connectionId for an exchange action:
// keccak256(msgpack(action) || nonce_be64 || 0x00). The trailing zero byte
// marks the absence of a vault address (single-account submission only).
func ActionHash(action any, nonce int64) ([]byte, error) {
	data, err := msgpack.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: serializing action: %w", err)
	}

	buf := make([]byte, 0, len(data)+9)
	buf = append(buf, data...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(nonce))
	buf = append(buf, 0x00)

	return ethcrypto.Keccak256(buf), nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// buildDomainSeparator returns keccak256(abi.encode(typeHash, nameHash,
// versionHash, chainId, verifyingContract)).
func buildDomainSeparator(name, version string, chainID int64, verifying common.Address) []byte {
	return ethcrypto.Keccak256(
		concatBytes(
			eip712DomainTypeHash,
			ethcrypto.Keccak256([]byte(name)),
			ethcrypto.Keccak256([]byte(version)),
			bigIntTo32Bytes(big.NewInt(chainID)),
			common.LeftPadBytes(verifying.Bytes(), 32),
		),
	)
}

// eip712Hash computes the final EIP-712 digest:
//
//	keccak256("\x19\x01" || domainSeparator || structHash)
func eip712Hash(domainSep, structHash []byte) []byte {
	return ethcrypto.Keccak256(
		concatBytes(
			[]byte{0x19, 0x01},
			domainSep,
			structHash,
		),
	)
}

// signDigest signs a 32-byte digest using secp256k1 and splits the result
// into r/s/v. go-ethereum returns v in {0,1}; EIP-712 expects {27,28}.
func (s *Signer) signDigest(digest []byte) (Signature, error) {
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return Signature{}, fmt.Errorf("crypto/signer: signing: %w", err)
	}

	v := sig[64]
	if v < 27 {
		v += 27
	}

	return Signature{
		R: hexutil.Encode(sig[:32]),
		S: hexutil.Encode(sig[32:64]),
		V: v,
	}, nil
}

// bigIntTo32Bytes returns a 32-byte big-endian representation of n.
func bigIntTo32Bytes(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) >= 32 {
		return b[:32]
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}

// concatBytes concatenates multiple byte slices into one.
func concatBytes(slices ...[]byte) []byte {
	total := 0
	for _, s := range slices {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	for _, s := range slices {
		buf = append(buf, s...)
	}
	return buf
}
