package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/faults"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Backend is what the gateway needs from a node connection; *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

type EVMConfig struct {
	RPCURL        string
	PrivateKey    string
	TavernAddress string
	QuestAddress  string
	// Optional ABI files for deployed contracts whose events differ from
	// the built-in ABIs.
	TavernABIPath string
	QuestABIPath  string
}

// EVMGateway talks to deployed Tavern and Quest contracts.
type EVMGateway struct {
	backend   Backend
	auth      *bind.TransactOpts
	tavernABI abi.ABI
	questABI  abi.ABI
	tavern    *bind.BoundContract
	quest     *bind.BoundContract
	tavernAt  common.Address
	questAt   common.Address
	log       *zap.Logger
	closer    func()

	// All writes come from one key; serializing submission keeps nonces in order.
	sendMu sync.Mutex
}

// DialEVM connects to cfg.RPCURL and binds both contracts.
func DialEVM(ctx context.Context, cfg EVMConfig, log *zap.Logger) (*EVMGateway, error) {
	if !common.IsHexAddress(cfg.TavernAddress) {
		return nil, fmt.Errorf("chain: invalid tavern address %q", cfg.TavernAddress)
	}
	if !common.IsHexAddress(cfg.QuestAddress) {
		return nil, fmt.Errorf("chain: invalid quest address %q", cfg.QuestAddress)
	}
	tABI, qABI, err := LoadABIs(cfg.TavernABIPath, cfg.QuestABIPath)
	if err != nil {
		return nil, fmt.Errorf("chain: %w", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain: parse private key: %w", err)
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain: chain id: %w", err)
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain: transactor: %w", err)
	}

	g := newEVMGateway(client, auth,
		common.HexToAddress(cfg.TavernAddress), common.HexToAddress(cfg.QuestAddress), tABI, qABI, log)
	g.closer = client.Close
	g.log.Info("chain connected",
		zap.String("chain_id", chainID.String()),
		zap.String("signer", auth.From.Hex()),
		zap.String("tavern", cfg.TavernAddress),
		zap.String("quest", cfg.QuestAddress),
	)
	return g, nil
}

// NewEVMGateway binds the built-in ABIs to an existing backend.
func NewEVMGateway(backend Backend, auth *bind.TransactOpts, tavernAt, questAt common.Address, log *zap.Logger) (*EVMGateway, error) {
	tABI, qABI, err := contractABIs()
	if err != nil {
		return nil, fmt.Errorf("chain: parse abi: %w", err)
	}
	return newEVMGateway(backend, auth, tavernAt, questAt, tABI, qABI, log), nil
}

func newEVMGateway(backend Backend, auth *bind.TransactOpts, tavernAt, questAt common.Address, tABI, qABI abi.ABI, log *zap.Logger) *EVMGateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &EVMGateway{
		backend:   backend,
		auth:      auth,
		tavernABI: tABI,
		questABI:  qABI,
		tavern:    bind.NewBoundContract(tavernAt, tABI, backend, backend, backend),
		quest:     bind.NewBoundContract(questAt, qABI, backend, backend, backend),
		tavernAt:  tavernAt,
		questAt:   questAt,
		log:       log,
	}
}

func (g *EVMGateway) Close() {
	if g.closer != nil {
		g.closer()
	}
}

func (g *EVMGateway) RecruitHero(ctx context.Context, master, name, uri string, stats HeroStats) (uint64, error) {
	if !common.IsHexAddress(master) {
		return 0, faults.Errorf(faults.Validation, "recruit", "invalid master address %q", master)
	}
	receipt, err := g.transact(ctx, g.tavern, "recruit", common.HexToAddress(master), name, uri, stats)
	if err != nil {
		return 0, err
	}
	return firstEventID(g.tavernABI, g.tavernAt, receipt.Logs, "heroId")
}

func (g *EVMGateway) CreateQuest(ctx context.Context, metadataURI string) (uint64, error) {
	receipt, err := g.transact(ctx, g.quest, "createNewQuest", metadataURI)
	if err != nil {
		return 0, err
	}
	return firstEventID(g.questABI, g.questAt, receipt.Logs, "questId")
}

func (g *EVMGateway) JoinQuest(ctx context.Context, questID, heroID uint64) error {
	_, err := g.transact(ctx, g.quest, "joinQuest", bigID(questID), bigID(heroID))
	return err
}

func (g *EVMGateway) StartQuest(ctx context.Context, questID uint64) error {
	_, err := g.transact(ctx, g.quest, "startQuest", bigID(questID))
	return err
}

func (g *EVMGateway) PerformTask(ctx context.Context, questID, heroID uint64, task Task) error {
	if _, err := TaskFromNumber(task.Number()); err != nil {
		return faults.E(faults.Validation, "performTask", err)
	}
	_, err := g.transact(ctx, g.quest, "performTask", bigID(questID), bigID(heroID), task.Number())
	return err
}

func (g *EVMGateway) ResolveTask(ctx context.Context, questID uint64, outcome Outcome) error {
	if _, err := OutcomeFromNumber(outcome.Number()); err != nil {
		return faults.E(faults.Validation, "resolveTask", err)
	}
	_, err := g.transact(ctx, g.quest, "resolveTask", bigID(questID), outcome.Number())
	return err
}

func (g *EVMGateway) FinishQuest(ctx context.Context, questID uint64) error {
	_, err := g.transact(ctx, g.quest, "finishQuest", bigID(questID))
	return err
}

type heroInfoTuple struct {
	Name        string
	Level       *big.Int
	MetadataUrl string
	Cooldown    *big.Int
	Stats       HeroStats
}

func (g *EVMGateway) HeroInfo(ctx context.Context, heroID uint64) (HeroInfo, error) {
	out, err := g.call(ctx, g.tavern, "heroInfo", bigID(heroID))
	if err != nil {
		return HeroInfo{}, err
	}
	return decodeHeroInfo(out[0]), nil
}

// decodeHeroInfo converts the anonymous struct produced by the ABI decoder.
func decodeHeroInfo(v any) HeroInfo {
	raw := *abi.ConvertType(v, new(heroInfoTuple)).(*heroInfoTuple)
	return HeroInfo{
		Name:        raw.Name,
		Level:       raw.Level.Uint64(),
		MetadataURL: raw.MetadataUrl,
		Cooldown:    raw.Cooldown.Uint64(),
		Stats:       raw.Stats,
	}
}

func (g *EVMGateway) IsActive(ctx context.Context, heroID uint64) (bool, error) {
	out, err := g.call(ctx, g.tavern, "isActive", bigID(heroID))
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (g *EVMGateway) QuestHeroes(ctx context.Context, questID uint64) ([]uint64, error) {
	out, err := g.call(ctx, g.quest, "questHeroes", bigID(questID))
	if err != nil {
		return nil, err
	}
	ids := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	heroes := make([]uint64, 0, len(ids))
	for _, id := range ids {
		heroes = append(heroes, id.Uint64())
	}
	return heroes, nil
}

func (g *EVMGateway) QuestURL(ctx context.Context, questID uint64) (string, error) {
	out, err := g.call(ctx, g.quest, "url", bigID(questID))
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

func (g *EVMGateway) call(ctx context.Context, c *bind.BoundContract, method string, args ...any) ([]any, error) {
	var out []any
	if err := c.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, classify(method, err)
	}
	if len(out) == 0 {
		return nil, faults.Errorf(faults.Internal, method, "empty return data")
	}
	return out, nil
}

// transact submits a write and waits for one confirmation.
func (g *EVMGateway) transact(ctx context.Context, c *bind.BoundContract, method string, args ...any) (*types.Receipt, error) {
	g.sendMu.Lock()
	opts := *g.auth
	opts.Context = ctx
	tx, err := c.Transact(&opts, method, args...)
	g.sendMu.Unlock()
	if err != nil {
		return nil, classify(method, err)
	}
	g.log.Debug("tx submitted", zap.String("method", method), zap.String("tx", tx.Hash().Hex()))

	receipt, err := bind.WaitMined(ctx, g.backend, tx)
	if err != nil {
		return nil, faults.E(faults.Transient, method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, g.replayRevert(ctx, method, tx, receipt)
	}
	g.log.Debug("tx mined",
		zap.String("method", method),
		zap.String("tx", tx.Hash().Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
	)
	return receipt, nil
}

// replayRevert re-executes a failed transaction as a call at its block to
// recover the revert reason.
func (g *EVMGateway) replayRevert(ctx context.Context, method string, tx *types.Transaction, receipt *types.Receipt) error {
	msg := ethereum.CallMsg{
		From:  g.auth.From,
		To:    tx.To(),
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}
	_, err := g.backend.CallContract(ctx, msg, receipt.BlockNumber)
	if reason, ok := revertReason(err); ok {
		return faults.Errorf(faults.Revert, method, "execution reverted: %s", reason)
	}
	return faults.Errorf(faults.Revert, method, "execution reverted (tx %s)", tx.Hash().Hex())
}

func bigID(id uint64) *big.Int {
	return new(big.Int).SetUint64(id)
}
