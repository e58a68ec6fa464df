package chain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const heroStatsComponents = `[
	{"name":"strength","type":"uint8"},
	{"name":"dexterity","type":"uint8"},
	{"name":"willPower","type":"uint8"},
	{"name":"intelligence","type":"uint8"},
	{"name":"charisma","type":"uint8"},
	{"name":"constitution","type":"uint8"}
]`

// TavernABI is the subset of the Tavern contract this service calls.
const TavernABI = `[
	{"type":"function","name":"recruit","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"master","type":"address"},
		{"name":"name","type":"string"},
		{"name":"uri","type":"string"},
		{"name":"stats","type":"tuple","internalType":"struct Tavern.HeroStats","components":` + heroStatsComponents + `}
	 ],
	 "outputs":[{"name":"heroId","type":"uint256"}]},
	{"type":"function","name":"heroInfo","stateMutability":"view",
	 "inputs":[{"name":"heroId","type":"uint256"}],
	 "outputs":[{"name":"","type":"tuple","internalType":"struct Tavern.HeroInfo","components":[
		{"name":"name","type":"string"},
		{"name":"level","type":"uint256"},
		{"name":"metadataUrl","type":"string"},
		{"name":"cooldown","type":"uint256"},
		{"name":"stats","type":"tuple","internalType":"struct Tavern.HeroStats","components":` + heroStatsComponents + `}
	 ]}]},
	{"type":"function","name":"isActive","stateMutability":"view",
	 "inputs":[{"name":"heroId","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"HeroRecruited","anonymous":false,
	 "inputs":[
		{"name":"heroId","type":"uint256","indexed":true},
		{"name":"master","type":"address","indexed":true},
		{"name":"name","type":"string","indexed":false}
	 ]}
]`

// QuestABI is the subset of the Quest contract this service calls.
const QuestABI = `[
	{"type":"function","name":"createNewQuest","stateMutability":"nonpayable",
	 "inputs":[{"name":"metadataUrl","type":"string"}],
	 "outputs":[{"name":"questId","type":"uint256"}]},
	{"type":"function","name":"joinQuest","stateMutability":"nonpayable",
	 "inputs":[{"name":"questId","type":"uint256"},{"name":"heroId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"startQuest","stateMutability":"nonpayable",
	 "inputs":[{"name":"questId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"performTask","stateMutability":"nonpayable",
	 "inputs":[{"name":"questId","type":"uint256"},{"name":"heroId","type":"uint256"},{"name":"task","type":"uint8"}],"outputs":[]},
	{"type":"function","name":"resolveTask","stateMutability":"nonpayable",
	 "inputs":[{"name":"questId","type":"uint256"},{"name":"outcome","type":"uint8"}],"outputs":[]},
	{"type":"function","name":"finishQuest","stateMutability":"nonpayable",
	 "inputs":[{"name":"questId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"questHeroes","stateMutability":"view",
	 "inputs":[{"name":"questId","type":"uint256"}],
	 "outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"url","stateMutability":"view",
	 "inputs":[{"name":"questId","type":"uint256"}],
	 "outputs":[{"name":"","type":"string"}]},
	{"type":"event","name":"QuestCreated","anonymous":false,
	 "inputs":[
		{"name":"questId","type":"uint256","indexed":true},
		{"name":"metadataUrl","type":"string","indexed":false}
	 ]},
	{"type":"event","name":"HeroEnrolled","anonymous":false,
	 "inputs":[
		{"name":"questId","type":"uint256","indexed":true},
		{"name":"heroId","type":"uint256","indexed":true}
	 ]},
	{"type":"event","name":"QuestStatusUpdated","anonymous":false,
	 "inputs":[
		{"name":"questId","type":"uint256","indexed":true},
		{"name":"status","type":"uint8","indexed":false}
	 ]},
	{"type":"event","name":"TaskPerformed","anonymous":false,
	 "inputs":[
		{"name":"questId","type":"uint256","indexed":true},
		{"name":"heroId","type":"uint256","indexed":true},
		{"name":"task","type":"uint8","indexed":false}
	 ]}
]`

var (
	abiOnce   sync.Once
	tavernABI abi.ABI
	questABI  abi.ABI
	abiErr    error
)

// contractABIs parses the embedded ABIs once.
func contractABIs() (abi.ABI, abi.ABI, error) {
	abiOnce.Do(func() {
		tavernABI, abiErr = abi.JSON(strings.NewReader(TavernABI))
		if abiErr != nil {
			return
		}
		questABI, abiErr = abi.JSON(strings.NewReader(QuestABI))
	})
	return tavernABI, questABI, abiErr
}

var (
	tavernMethods = []string{"recruit", "heroInfo", "isActive"}
	questMethods  = []string{"createNewQuest", "joinQuest", "startQuest", "performTask", "resolveTask", "finishQuest", "questHeroes", "url"}
)

// LoadABIs returns the Tavern and Quest ABIs. An empty path selects the
// built-in ABI; otherwise the file may hold a bare ABI array or a build
// artifact with an "abi" field (Hardhat, Foundry). Each ABI must declare
// the methods the gateway calls and an event carrying the new id.
func LoadABIs(tavernPath, questPath string) (abi.ABI, abi.ABI, error) {
	tDefault, qDefault, err := contractABIs()
	if err != nil {
		return abi.ABI{}, abi.ABI{}, err
	}
	tABI, err := loadABI(tavernPath, tDefault)
	if err != nil {
		return abi.ABI{}, abi.ABI{}, fmt.Errorf("tavern abi: %w", err)
	}
	qABI, err := loadABI(questPath, qDefault)
	if err != nil {
		return abi.ABI{}, abi.ABI{}, fmt.Errorf("quest abi: %w", err)
	}
	if err := checkABI(tABI, tavernMethods, "heroId"); err != nil {
		return abi.ABI{}, abi.ABI{}, fmt.Errorf("tavern abi: %w", err)
	}
	if err := checkABI(qABI, questMethods, "questId"); err != nil {
		return abi.ABI{}, abi.ABI{}, fmt.Errorf("quest abi: %w", err)
	}
	return tABI, qABI, nil
}

func loadABI(path string, fallback abi.ABI) (abi.ABI, error) {
	if path == "" {
		return fallback, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, err
	}
	return parseABI(b)
}

func parseABI(b []byte) (abi.ABI, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var artifact struct {
			ABI json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(b, &artifact); err != nil {
			return abi.ABI{}, err
		}
		if len(artifact.ABI) == 0 {
			return abi.ABI{}, errors.New(`artifact has no "abi" field`)
		}
		b = artifact.ABI
	}
	return abi.JSON(bytes.NewReader(b))
}

func checkABI(a abi.ABI, methods []string, idField string) error {
	var missing []string
	for _, m := range methods {
		if _, ok := a.Methods[m]; !ok {
			missing = append(missing, m)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing methods %s", strings.Join(missing, ", "))
	}
	for _, ev := range a.Events {
		for _, in := range ev.Inputs {
			if in.Name == idField {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: no event declares %s", ErrNoEvent, idField)
}
