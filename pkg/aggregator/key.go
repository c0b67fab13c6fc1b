package aggregator

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Transfer keys are protocol-specific and must be recomputable identically
// by any party observing either side of a transfer.

// AcrossUniqueID derives the bridge-internal content hash shared by a
// deposit and its fill: keccak256 over (originChainId, destinationChainId,
// depositId) in fixed-width big-endian encoding.
func AcrossUniqueID(originChainID, destinationChainID uint64, depositID *big.Int) string {
	buf := make([]byte, 0, 48)
	buf = binary.BigEndian.AppendUint64(buf, originChainID)
	buf = binary.BigEndian.AppendUint64(buf, destinationChainID)
	buf = append(buf, common.LeftPadBytes(depositID.Bytes(), 32)...)
	return hexutil.Encode(crypto.Keccak256(buf))
}

// CctpUniqueID keys a burn/mint pair by nonce and destination domain.
func CctpUniqueID(nonce int64, destinationDomain uint32) string {
	return fmt.Sprintf("%d-%d", nonce, destinationDomain)
}

// OftUniqueID keys a send/receive pair by the message GUID the bridge
// assigned to it.
func OftUniqueID(guid string) string {
	return guid
}
