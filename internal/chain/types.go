package chain

import (
	"context"
	"errors"
)

// ErrNoEvent means a mined receipt carried no log with the expected id.
var ErrNoEvent = errors.New("event log not found or invalid")

// HeroStats mirrors the Tavern contract's stats struct; field order and
// names follow the ABI tuple.
type HeroStats struct {
	Strength     uint8 `json:"strength" validate:"min=1,max=20"`
	Dexterity    uint8 `json:"dexterity" validate:"min=1,max=20"`
	WillPower    uint8 `json:"willPower" validate:"min=1,max=20"`
	Intelligence uint8 `json:"intelligence" validate:"min=1,max=20"`
	Charisma     uint8 `json:"charisma" validate:"min=1,max=20"`
	Constitution uint8 `json:"constitution" validate:"min=1,max=20"`
}

// Values returns the stats in ABI order.
func (s HeroStats) Values() [6]uint8 {
	return [6]uint8{s.Strength, s.Dexterity, s.WillPower, s.Intelligence, s.Charisma, s.Constitution}
}

type HeroInfo struct {
	Name        string    `json:"name"`
	Level       uint64    `json:"level"`
	MetadataURL string    `json:"metadataUrl"`
	Cooldown    uint64    `json:"cooldown"`
	Stats       HeroStats `json:"stats"`
}

// Gateway is the typed surface of the Tavern (heroes) and Quest (campaigns)
// contracts. Write calls return once the transaction has one confirmation.
type Gateway interface {
	RecruitHero(ctx context.Context, master, name, uri string, stats HeroStats) (uint64, error)
	CreateQuest(ctx context.Context, metadataURI string) (uint64, error)
	JoinQuest(ctx context.Context, questID, heroID uint64) error
	StartQuest(ctx context.Context, questID uint64) error
	PerformTask(ctx context.Context, questID, heroID uint64, task Task) error
	ResolveTask(ctx context.Context, questID uint64, outcome Outcome) error
	FinishQuest(ctx context.Context, questID uint64) error

	HeroInfo(ctx context.Context, heroID uint64) (HeroInfo, error)
	IsActive(ctx context.Context, heroID uint64) (bool, error)
	QuestHeroes(ctx context.Context, questID uint64) ([]uint64, error)
	QuestURL(ctx context.Context, questID uint64) (string, error)
}
