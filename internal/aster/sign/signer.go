package sign

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer authenticates pro-API requests for the perp market. Aster's pro
// API identifies a main account (user) and a delegated signing account
// (signer); requests carry a keccak digest of the canonical parameter set
// signed with the signer's key.
type Signer struct {
	user    common.Address
	signer  common.Address
	privKey *ecdsa.PrivateKey
}

func New(userHex, signerHex, privKeyHex string) (*Signer, error) {
	userHex = strings.TrimSpace(userHex)
	signerHex = strings.TrimSpace(signerHex)
	if !common.IsHexAddress(userHex) {
		return nil, errors.New("user address is not a hex address")
	}
	if !common.IsHexAddress(signerHex) {
		return nil, errors.New("signer address is not a hex address")
	}
	clean := strings.TrimPrefix(strings.TrimSpace(privKeyHex), "0x")
	if clean == "" {
		return nil, errors.New("private key is required")
	}
	key, err := crypto.HexToECDSA(clean)
	if err != nil {
		return nil, err
	}
	s := &Signer{
		user:    common.HexToAddress(userHex),
		signer:  common.HexToAddress(signerHex),
		privKey: key,
	}
	if derived := crypto.PubkeyToAddress(key.PublicKey); derived != s.signer {
		return nil, fmt.Errorf("signer address does not match private key: got %s expected %s", s.signer.Hex(), derived.Hex())
	}
	return s, nil
}

func (s *Signer) User() common.Address {
	return s.user
}

// SignParams canonicalizes params (sorted keys, url-encoded), appends the
// user, signer and nonce, and returns the params extended with the identity
// fields and the hex ECDSA signature over the keccak digest.
func (s *Signer) SignParams(params url.Values, nonceMicros int64) (url.Values, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("user", strings.ToLower(s.user.Hex()))
	params.Set("signer", strings.ToLower(s.signer.Hex()))
	params.Set("nonce", strconv.FormatInt(nonceMicros, 10))

	digest := crypto.Keccak256([]byte(canonicalQuery(params)))
	sig, err := crypto.Sign(digest, s.privKey)
	if err != nil {
		return nil, err
	}
	// Normalize the recovery byte to the Ethereum convention.
	if len(sig) == 65 && sig[64] < 27 {
		sig[64] += 27
	}
	params.Set("signature", hexutil.Encode(sig))
	return params, nil
}

func canonicalQuery(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(params.Get(k)))
	}
	return strings.Join(parts, "&")
}
