package evmscan

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Event ABIs for the three bridge contract families. Only the events the
// indexer consumes are declared; FilterLogs matches on topic0 so the rest
// of each contract's surface never reaches us.
const (
	spokePoolABI = `[
		{"type":"event","name":"FundsDeposited","inputs":[
			{"name":"inputToken","type":"address","indexed":false},
			{"name":"outputToken","type":"address","indexed":false},
			{"name":"inputAmount","type":"uint256","indexed":false},
			{"name":"outputAmount","type":"uint256","indexed":false},
			{"name":"destinationChainId","type":"uint256","indexed":true},
			{"name":"depositId","type":"uint256","indexed":true},
			{"name":"depositor","type":"address","indexed":true},
			{"name":"recipient","type":"address","indexed":false}]},
		{"type":"event","name":"FilledRelay","inputs":[
			{"name":"outputToken","type":"address","indexed":false},
			{"name":"outputAmount","type":"uint256","indexed":false},
			{"name":"originChainId","type":"uint256","indexed":true},
			{"name":"depositId","type":"uint256","indexed":true},
			{"name":"relayer","type":"address","indexed":true},
			{"name":"recipient","type":"address","indexed":false}]}]`

	tokenMessengerABI = `[
		{"type":"event","name":"DepositForBurn","inputs":[
			{"name":"burnToken","type":"address","indexed":true},
			{"name":"amount","type":"uint256","indexed":false},
			{"name":"depositor","type":"address","indexed":true},
			{"name":"mintRecipient","type":"bytes32","indexed":false},
			{"name":"destinationDomain","type":"uint32","indexed":false},
			{"name":"destinationCaller","type":"bytes32","indexed":false},
			{"name":"minFinalityThreshold","type":"uint32","indexed":false},
			{"name":"nonce","type":"uint64","indexed":true}]},
		{"type":"event","name":"MintAndWithdraw","inputs":[
			{"name":"mintRecipient","type":"address","indexed":true},
			{"name":"amount","type":"uint256","indexed":false},
			{"name":"mintToken","type":"address","indexed":true}]}]`

	messageTransmitterABI = `[
		{"type":"event","name":"MessageSent","inputs":[
			{"name":"message","type":"bytes","indexed":false}]},
		{"type":"event","name":"MessageReceived","inputs":[
			{"name":"caller","type":"address","indexed":true},
			{"name":"sourceDomain","type":"uint32","indexed":false},
			{"name":"nonce","type":"uint64","indexed":true},
			{"name":"sender","type":"bytes32","indexed":false},
			{"name":"messageBody","type":"bytes","indexed":false}]}]`

	sponsorPeripheryABI = `[
		{"type":"event","name":"SponsoredBurn","inputs":[
			{"name":"sponsor","type":"address","indexed":true},
			{"name":"signature","type":"bytes","indexed":false}]}]`

	oftABI = `[
		{"type":"event","name":"OFTSent","inputs":[
			{"name":"guid","type":"bytes32","indexed":true},
			{"name":"dstEid","type":"uint32","indexed":false},
			{"name":"fromAddress","type":"address","indexed":true},
			{"name":"amountSentLD","type":"uint256","indexed":false},
			{"name":"amountReceivedLD","type":"uint256","indexed":false}]},
		{"type":"event","name":"OFTReceived","inputs":[
			{"name":"guid","type":"bytes32","indexed":true},
			{"name":"srcEid","type":"uint32","indexed":false},
			{"name":"toAddress","type":"address","indexed":true},
			{"name":"amountReceivedLD","type":"uint256","indexed":false}]}]`
)

var (
	spokePool          = mustABI(spokePoolABI)
	tokenMessenger     = mustABI(tokenMessengerABI)
	messageTransmitter = mustABI(messageTransmitterABI)
	sponsorPeriphery   = mustABI(sponsorPeripheryABI)
	oft                = mustABI(oftABI)

	topicFundsDeposited  = spokePool.Events["FundsDeposited"].ID
	topicFilledRelay     = spokePool.Events["FilledRelay"].ID
	topicDepositForBurn  = tokenMessenger.Events["DepositForBurn"].ID
	topicMintAndWithdraw = tokenMessenger.Events["MintAndWithdraw"].ID
	topicMessageSent     = messageTransmitter.Events["MessageSent"].ID
	topicMessageReceived = messageTransmitter.Events["MessageReceived"].ID
	topicSponsoredBurn   = sponsorPeriphery.Events["SponsoredBurn"].ID
	topicOFTSent         = oft.Events["OFTSent"].ID
	topicOFTReceived     = oft.Events["OFTReceived"].ID
)

func mustABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

type fundsDepositedEvent struct {
	InputToken         common.Address
	OutputToken        common.Address
	InputAmount        *big.Int
	OutputAmount       *big.Int
	DestinationChainId *big.Int
	DepositId          *big.Int
	Depositor          common.Address
	Recipient          common.Address
}

type filledRelayEvent struct {
	OutputToken   common.Address
	OutputAmount  *big.Int
	OriginChainId *big.Int
	DepositId     *big.Int
	Relayer       common.Address
	Recipient     common.Address
}

type depositForBurnEvent struct {
	BurnToken            common.Address
	Amount               *big.Int
	Depositor            common.Address
	MintRecipient        [32]byte
	DestinationDomain    uint32
	DestinationCaller    [32]byte
	MinFinalityThreshold uint32
	Nonce                uint64
}

type mintAndWithdrawEvent struct {
	MintRecipient common.Address
	Amount        *big.Int
	MintToken     common.Address
}

type messageSentEvent struct {
	Message []byte
}

type messageReceivedEvent struct {
	Caller       common.Address
	SourceDomain uint32
	Nonce        uint64
	Sender       [32]byte
	MessageBody  []byte
}

type sponsoredBurnEvent struct {
	Sponsor   common.Address
	Signature []byte
}

type oftSentEvent struct {
	Guid             [32]byte
	DstEid           uint32
	FromAddress      common.Address
	AmountSentLD     *big.Int
	AmountReceivedLD *big.Int
}

type oftReceivedEvent struct {
	Guid             [32]byte
	SrcEid           uint32
	ToAddress        common.Address
	AmountReceivedLD *big.Int
}

// unpackLog fills out from a raw log: non-indexed fields from the data
// segment, indexed fields from the topics.
func unpackLog(contract abi.ABI, out any, name string, log types.Log) error {
	ev, ok := contract.Events[name]
	if !ok {
		return fmt.Errorf("unknown event %s", name)
	}
	if len(log.Data) > 0 {
		if err := contract.UnpackIntoInterface(out, name, log.Data); err != nil {
			return fmt.Errorf("failed to unpack %s data: %w", name, err)
		}
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(indexed) == 0 {
		return nil
	}
	if err := abi.ParseTopics(out, indexed, log.Topics[1:]); err != nil {
		return fmt.Errorf("failed to parse %s topics: %w", name, err)
	}
	return nil
}

// Transmitter message header layout: version (4 bytes), source domain
// (4 bytes), destination domain (4 bytes), all big-endian.
const messageHeaderLen = 12

func messageDomains(message []byte) (source, destination uint32, err error) {
	if len(message) < messageHeaderLen {
		return 0, 0, fmt.Errorf("transmitter message too short: %d bytes", len(message))
	}
	source = uint32(message[4])<<24 | uint32(message[5])<<16 | uint32(message[6])<<8 | uint32(message[7])
	destination = uint32(message[8])<<24 | uint32(message[9])<<16 | uint32(message[10])<<8 | uint32(message[11])
	return source, destination, nil
}
