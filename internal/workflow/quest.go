package workflow

import (
	"context"
	"strings"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/chain"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/faults"
	"go.uber.org/zap"
)

// Stages are generated in this order, one per difficulty.
var difficulties = []string{"easy", "medium", "hard"}

type QuestRequest struct{}

type QuestResult struct {
	QuestID     uint64 `json:"questId"`
	MetadataURI string `json:"metadataUri"`
}

type StartRequest struct {
	QuestID uint64 `json:"questId"`
}

type StartResult struct {
	QuestID uint64 `json:"questId"`
	Status  string `json:"status"`
}

// Resistances are percentages; pointers so a missing field is rejected
// rather than read as zero.
type Resistances struct {
	Romance  *int `json:"romance" validate:"required,min=-100,max=100"`
	Fight    *int `json:"fight" validate:"required,min=-100,max=100"`
	Bribe    *int `json:"bribe" validate:"required,min=-100,max=100"`
	Persuade *int `json:"persuade" validate:"required,min=-100,max=100"`
	Sneak    *int `json:"sneak" validate:"required,min=-100,max=100"`
}

type Stage struct {
	Name        string      `json:"name" validate:"required,max=100"`
	Description string      `json:"description" validate:"required"`
	HP          int         `json:"hp" validate:"min=1,max=100"`
	Resistances Resistances `json:"resistances"`
	Image       string      `json:"image,omitempty"`
}

// QuestMetadata is the document the quest's on-chain url points at.
type QuestMetadata struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Stages      []Stage `json:"stages"`
}

func (e *Engine) CreateQuest(ctx context.Context, _ QuestRequest) (QuestResult, error) {
	scenario, err := e.gen.GenerateText(ctx, scenarioPrompt, "Set the scene for a new adventure.")
	if err != nil {
		return QuestResult{}, step("write scenario", err)
	}
	title, err := e.gen.GenerateText(ctx, titlePrompt, scenario)
	if err != nil {
		return QuestResult{}, step("name quest", err)
	}
	title = strings.Trim(strings.TrimSpace(title), `"'.`)

	meta := QuestMetadata{Name: title, Description: scenario}
	var names []string
	for _, difficulty := range difficulties {
		var st Stage
		if err := e.gen.GenerateStructured(ctx, stageSchema, stageRequest(scenario, difficulty, names), &st); err != nil {
			return QuestResult{}, step("invoke "+difficulty+" stage", err)
		}
		img, err := e.gen.GenerateImage(ctx, dreamerPrompt(st.Name+": "+st.Description))
		if err != nil {
			return QuestResult{}, step("draw "+difficulty+" stage", err)
		}
		stageName := slug(st.Name)
		if stageName == "" {
			return QuestResult{}, faults.Errorf(faults.StructuredOutput, "stage", "name %q has no usable characters", st.Name)
		}
		st.Image, err = e.artifacts.SaveImage(ctx, img, stageName)
		if err != nil {
			return QuestResult{}, step("save stage image", err)
		}
		meta.Stages = append(meta.Stages, st)
		names = append(names, st.Name)
	}

	questName := slug(title)
	if questName == "" {
		return QuestResult{}, faults.Errorf(faults.StructuredOutput, "quest", "title %q has no usable characters", title)
	}
	uri, err := e.artifacts.SaveJSON(ctx, questName, meta)
	if err != nil {
		return QuestResult{}, step("save quest metadata", err)
	}

	id, err := e.chain.CreateQuest(ctx, uri)
	if err != nil {
		return QuestResult{}, step("create quest", err)
	}
	e.log.Info("quest created", zap.Uint64("quest_id", id), zap.String("name", title), zap.String("metadata_uri", uri))
	return QuestResult{QuestID: id, MetadataURI: uri}, nil
}

func (e *Engine) StartQuest(ctx context.Context, req StartRequest) (StartResult, error) {
	if err := e.chain.StartQuest(ctx, req.QuestID); err != nil {
		return StartResult{}, step("start quest", err)
	}
	return StartResult{QuestID: req.QuestID, Status: chain.QuestInProgress.String()}, nil
}
