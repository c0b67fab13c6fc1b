package evmscan

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageDomains(t *testing.T) {
	// version=1, source=0, destination=6
	message := []byte{0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 6}
	source, destination, err := messageDomains(message)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), source)
	assert.Equal(t, uint32(6), destination)

	_, _, err = messageDomains([]byte{0, 0, 0, 1})
	require.Error(t, err)
}

func TestUnpackLogOFTSent(t *testing.T) {
	guid := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	from := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	data, err := oft.Events["OFTSent"].Inputs.NonIndexed().Pack(
		uint32(30184), big.NewInt(1000000), big.NewInt(999000))
	require.NoError(t, err)

	log := types.Log{
		Topics: []common.Hash{
			topicOFTSent,
			guid,
			common.BytesToHash(common.LeftPadBytes(from.Bytes(), 32)),
		},
		Data: data,
	}

	var ev oftSentEvent
	require.NoError(t, unpackLog(oft, &ev, "OFTSent", log))
	assert.Equal(t, guid, common.Hash(ev.Guid))
	assert.Equal(t, uint32(30184), ev.DstEid)
	assert.Equal(t, from, ev.FromAddress)
	assert.Equal(t, "1000000", ev.AmountSentLD.String())
	assert.Equal(t, "999000", ev.AmountReceivedLD.String())
}

func TestUnpackLogDepositForBurn(t *testing.T) {
	burnToken := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	depositor := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	mintRecipient := common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222")

	data, err := tokenMessenger.Events["DepositForBurn"].Inputs.NonIndexed().Pack(
		big.NewInt(5000000), mintRecipient, uint32(6), common.Hash{}, uint32(1000))
	require.NoError(t, err)

	log := types.Log{
		Topics: []common.Hash{
			topicDepositForBurn,
			common.BytesToHash(common.LeftPadBytes(burnToken.Bytes(), 32)),
			common.BytesToHash(common.LeftPadBytes(depositor.Bytes(), 32)),
			common.BigToHash(big.NewInt(42)),
		},
		Data: data,
	}

	var ev depositForBurnEvent
	require.NoError(t, unpackLog(tokenMessenger, &ev, "DepositForBurn", log))
	assert.Equal(t, burnToken, ev.BurnToken)
	assert.Equal(t, depositor, ev.Depositor)
	assert.Equal(t, uint64(42), ev.Nonce)
	assert.Equal(t, uint32(6), ev.DestinationDomain)
	assert.Equal(t, uint32(1000), ev.MinFinalityThreshold)
	assert.Equal(t, "5000000", ev.Amount.String())
	assert.Equal(t, mintRecipient, common.Hash(ev.MintRecipient))
}

func TestEventTopicsAreDistinct(t *testing.T) {
	topics := []common.Hash{
		topicFundsDeposited, topicFilledRelay,
		topicDepositForBurn, topicMintAndWithdraw,
		topicMessageSent, topicMessageReceived,
		topicSponsoredBurn, topicOFTSent, topicOFTReceived,
	}
	seen := make(map[common.Hash]bool, len(topics))
	for _, topic := range topics {
		assert.False(t, seen[topic])
		seen[topic] = true
	}
}
