package chain

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/faults"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tavernAt = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	questAt  = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func questCreatedLog(t *testing.T, qABI abi.ABI, addr common.Address, id int64) *types.Log {
	t.Helper()
	ev := qABI.Events["QuestCreated"]
	data, err := ev.Inputs.NonIndexed().Pack("ipfs://bafyquest")
	require.NoError(t, err)
	return &types.Log{
		Address: addr,
		Topics:  []common.Hash{ev.ID, common.BigToHash(big.NewInt(id))},
		Data:    data,
	}
}

func TestFirstEventIDSkipsForeignLogs(t *testing.T) {
	_, qABI, err := contractABIs()
	require.NoError(t, err)

	logs := []*types.Log{
		// same event shape from another contract
		questCreatedLog(t, qABI, tavernAt, 99),
		// unknown event on the right contract
		{Address: questAt, Topics: []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))}},
		questCreatedLog(t, qABI, questAt, 7),
		questCreatedLog(t, qABI, questAt, 8),
	}

	id, err := firstEventID(qABI, questAt, logs, "questId")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
}

func TestFirstEventIDHeroRecruited(t *testing.T) {
	tABI, _, err := contractABIs()
	require.NoError(t, err)

	ev := tABI.Events["HeroRecruited"]
	data, err := ev.Inputs.NonIndexed().Pack("Ember")
	require.NoError(t, err)
	lg := &types.Log{
		Address: tavernAt,
		Topics: []common.Hash{
			ev.ID,
			common.BigToHash(big.NewInt(42)),
			common.BytesToHash(common.HexToAddress(master).Bytes()),
		},
		Data: data,
	}

	id, err := firstEventID(tABI, tavernAt, []*types.Log{lg}, "heroId")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}

func TestFirstEventIDMissing(t *testing.T) {
	_, qABI, err := contractABIs()
	require.NoError(t, err)

	_, err = firstEventID(qABI, questAt, nil, "questId")
	assert.ErrorIs(t, err, ErrNoEvent)
}

type rpcDataError struct {
	msg  string
	data any
}

func (e rpcDataError) Error() string  { return e.msg }
func (e rpcDataError) ErrorData() any { return e.data }

func encodeRevert(t *testing.T, reason string) string {
	t.Helper()
	stringTy, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: stringTy}}.Pack(reason)
	require.NoError(t, err)
	selector := crypto.Keccak256([]byte("Error(string)"))[:4]
	return hexutil.Encode(append(selector, packed...))
}

func TestRevertReason(t *testing.T) {
	err := fmt.Errorf("estimate gas: %w", rpcDataError{msg: "execution reverted", data: encodeRevert(t, "quest not open")})
	reason, ok := revertReason(err)
	require.True(t, ok)
	assert.Equal(t, "quest not open", reason)

	reason, ok = revertReason(errors.New("execution reverted: hero busy"))
	require.True(t, ok)
	assert.Equal(t, "hero busy", reason)

	_, ok = revertReason(errors.New("dial tcp: connection refused"))
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	err := classify("startQuest", rpcDataError{msg: "execution reverted", data: encodeRevert(t, "no heroes enrolled")})
	assert.True(t, faults.Is(err, faults.Revert))
	assert.Equal(t, "startQuest: execution reverted: no heroes enrolled", err.Error())

	err = classify("heroInfo", errors.New("i/o timeout"))
	assert.True(t, faults.Is(err, faults.Transient))
}

func TestDecodeHeroInfo(t *testing.T) {
	tABI, _, err := contractABIs()
	require.NoError(t, err)

	outputs := tABI.Methods["heroInfo"].Outputs
	packed, err := outputs.Pack(heroInfoTuple{
		Name:        "Ember",
		Level:       big.NewInt(3),
		MetadataUrl: "ipfs://bafyhero",
		Cooldown:    big.NewInt(0),
		Stats:       stats,
	})
	require.NoError(t, err)
	out, err := outputs.Unpack(packed)
	require.NoError(t, err)

	info := decodeHeroInfo(out[0])
	assert.Equal(t, "Ember", info.Name)
	assert.Equal(t, uint64(3), info.Level)
	assert.Equal(t, "ipfs://bafyhero", info.MetadataURL)
	assert.Equal(t, stats, info.Stats)
}
