package chain

import (
	"context"
	"slices"
	"sync"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/faults"
	"github.com/ethereum/go-ethereum/common"
)

type memoryHero struct {
	master common.Address
	info   HeroInfo
	active bool
}

type memoryQuest struct {
	url     string
	status  QuestStatus
	heroes  []uint64
	pending bool // a task awaits resolution
	actor   uint64
}

// MemoryGateway is an in-process ledger that enforces the same rules as the
// deployed contracts. It backs dev mode and tests.
type MemoryGateway struct {
	mu     sync.Mutex
	heroes []memoryHero
	quests []memoryQuest
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{}
}

func revert(op, reason string) error {
	return faults.Errorf(faults.Revert, op, "execution reverted: %s", reason)
}

func (m *MemoryGateway) RecruitHero(ctx context.Context, master, name, uri string, stats HeroStats) (uint64, error) {
	if !common.IsHexAddress(master) {
		return 0, faults.Errorf(faults.Validation, "recruit", "invalid master address %q", master)
	}
	for _, v := range stats.Values() {
		if v < 1 || v > 20 {
			return 0, revert("recruit", "stat out of range")
		}
	}
	if name == "" {
		return 0, revert("recruit", "empty name")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id := uint64(len(m.heroes))
	m.heroes = append(m.heroes, memoryHero{
		master: common.HexToAddress(master),
		info:   HeroInfo{Name: name, Level: 1, MetadataURL: uri, Stats: stats},
		active: true,
	})
	return id, nil
}

func (m *MemoryGateway) CreateQuest(ctx context.Context, metadataURI string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uint64(len(m.quests))
	m.quests = append(m.quests, memoryQuest{url: metadataURI, status: QuestOpen})
	return id, nil
}

func (m *MemoryGateway) JoinQuest(ctx context.Context, questID, heroID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, err := m.quest("joinQuest", questID)
	if err != nil {
		return err
	}
	h, err := m.hero("joinQuest", heroID)
	if err != nil {
		return err
	}
	if q.status != QuestOpen {
		return revert("joinQuest", "quest not open")
	}
	if !h.active {
		return revert("joinQuest", "hero busy")
	}
	if slices.Contains(q.heroes, heroID) {
		return revert("joinQuest", "hero already enrolled")
	}
	q.heroes = append(q.heroes, heroID)
	h.active = false
	return nil
}

func (m *MemoryGateway) StartQuest(ctx context.Context, questID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, err := m.quest("startQuest", questID)
	if err != nil {
		return err
	}
	if q.status != QuestOpen {
		return revert("startQuest", "quest not open")
	}
	if len(q.heroes) == 0 {
		return revert("startQuest", "no heroes enrolled")
	}
	q.status = QuestInProgress
	return nil
}

func (m *MemoryGateway) PerformTask(ctx context.Context, questID, heroID uint64, task Task) error {
	if _, err := TaskFromNumber(task.Number()); err != nil {
		return faults.E(faults.Validation, "performTask", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q, err := m.quest("performTask", questID)
	if err != nil {
		return err
	}
	if q.status != QuestInProgress {
		return revert("performTask", "quest not in progress")
	}
	if !slices.Contains(q.heroes, heroID) {
		return revert("performTask", "hero not enrolled")
	}
	if q.pending {
		return revert("performTask", "task pending resolution")
	}
	q.pending = true
	q.actor = heroID
	return nil
}

func (m *MemoryGateway) ResolveTask(ctx context.Context, questID uint64, outcome Outcome) error {
	if _, err := OutcomeFromNumber(outcome.Number()); err != nil {
		return faults.E(faults.Validation, "resolveTask", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q, err := m.quest("resolveTask", questID)
	if err != nil {
		return err
	}
	if !q.pending {
		return revert("resolveTask", "no pending task")
	}
	q.pending = false
	if outcome == OutcomePass {
		m.heroes[q.actor].info.Level++
	}
	return nil
}

func (m *MemoryGateway) FinishQuest(ctx context.Context, questID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, err := m.quest("finishQuest", questID)
	if err != nil {
		return err
	}
	if q.status != QuestInProgress {
		return revert("finishQuest", "quest not in progress")
	}
	q.status = QuestFinished
	q.pending = false
	for _, id := range q.heroes {
		m.heroes[id].active = true
	}
	return nil
}

func (m *MemoryGateway) HeroInfo(ctx context.Context, heroID uint64) (HeroInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.hero("heroInfo", heroID)
	if err != nil {
		return HeroInfo{}, err
	}
	return h.info, nil
}

func (m *MemoryGateway) IsActive(ctx context.Context, heroID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.hero("isActive", heroID)
	if err != nil {
		return false, err
	}
	return h.active, nil
}

func (m *MemoryGateway) QuestHeroes(ctx context.Context, questID uint64) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, err := m.quest("questHeroes", questID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(q.heroes), nil
}

func (m *MemoryGateway) QuestURL(ctx context.Context, questID uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, err := m.quest("url", questID)
	if err != nil {
		return "", err
	}
	return q.url, nil
}

// QuestStatus is not part of Gateway; the contracts only expose it through
// events.
func (m *MemoryGateway) QuestStatus(questID uint64) (QuestStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, err := m.quest("status", questID)
	if err != nil {
		return 0, err
	}
	return q.status, nil
}

// callers hold m.mu
func (m *MemoryGateway) quest(op string, id uint64) (*memoryQuest, error) {
	if id >= uint64(len(m.quests)) {
		return nil, revert(op, "quest does not exist")
	}
	return &m.quests[id], nil
}

func (m *MemoryGateway) hero(op string, id uint64) (*memoryHero, error) {
	if id >= uint64(len(m.heroes)) {
		return nil, revert(op, "hero does not exist")
	}
	return &m.heroes[id], nil
}

var (
	_ Gateway = (*MemoryGateway)(nil)
	_ Gateway = (*EVMGateway)(nil)
)
