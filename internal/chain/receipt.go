package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/faults"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// firstEventID returns field from the first log emitted by addr that decodes
// against contractABI and carries that field.
func firstEventID(contractABI abi.ABI, addr common.Address, logs []*types.Log, field string) (uint64, error) {
	for _, lg := range logs {
		if lg == nil || lg.Address != addr || len(lg.Topics) == 0 {
			continue
		}
		ev, err := contractABI.EventByID(lg.Topics[0])
		if err != nil {
			continue
		}
		values := make(map[string]any)
		if len(lg.Data) > 0 {
			if err := contractABI.UnpackIntoMap(values, ev.Name, lg.Data); err != nil {
				continue
			}
		}
		var indexed abi.Arguments
		for _, arg := range ev.Inputs {
			if arg.Indexed {
				indexed = append(indexed, arg)
			}
		}
		if err := abi.ParseTopicsIntoMap(values, indexed, lg.Topics[1:]); err != nil {
			continue
		}
		id, ok := values[field].(*big.Int)
		if !ok || !id.IsUint64() {
			continue
		}
		return id.Uint64(), nil
	}
	return 0, faults.E(faults.Internal, "receipt", fmt.Errorf("%w: no %s", ErrNoEvent, field))
}

// revertReason extracts a revert reason from a node error, either from the
// ABI-encoded Error(string) payload or from the message text.
func revertReason(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	var de rpc.DataError
	if errors.As(err, &de) {
		if s, ok := de.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(s); decErr == nil {
				if reason, uerr := abi.UnpackRevert(data); uerr == nil {
					return reason, true
				}
			}
		}
	}
	const marker = "execution reverted"
	msg := err.Error()
	if i := strings.Index(msg, marker); i >= 0 {
		reason := strings.TrimSpace(strings.TrimPrefix(msg[i+len(marker):], ":"))
		return reason, true
	}
	return "", false
}

// classify tags a node error: reverts keep their reason, everything else is
// treated as a transient RPC failure.
func classify(op string, err error) error {
	if reason, ok := revertReason(err); ok {
		if reason == "" {
			return faults.Errorf(faults.Revert, op, "execution reverted")
		}
		return faults.Errorf(faults.Revert, op, "execution reverted: %s", reason)
	}
	return faults.E(faults.Transient, op, err)
}
