package workflow

import (
	"context"
	"math/rand/v2"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/chain"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/faults"
	"go.uber.org/zap"
)

var genders = []string{"Male", "Female", "Non-binary"}

type HeroRequest struct {
	Address string `json:"address"`
}

type HeroResult struct {
	HeroID uint64 `json:"heroId"`
	Name   string `json:"name"`
}

// Hero is a name plus rolled stats, checked before anything is generated
// from it.
type Hero struct {
	Name  string          `json:"name" validate:"required,min=2,max=100"`
	Stats chain.HeroStats `json:"stats"`
}

// HeroMetadata is the document the hero's token URI points at.
type HeroMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

type heroName struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// ValidateHero checks a hero against the recruit schema: a 2-100 character
// name and every stat within 1-20.
func (e *Engine) ValidateHero(h Hero) error {
	if err := e.validate.Struct(h); err != nil {
		return faults.E(faults.StructuredOutput, "hero", err)
	}
	return nil
}

func (e *Engine) CreateHero(ctx context.Context, req HeroRequest) (HeroResult, error) {
	var (
		gender string
		stats  chain.HeroStats
	)
	e.withRand(func(r *rand.Rand) {
		gender = genders[r.IntN(len(genders))]
		stats = RollStats(r)
	})

	var n heroName
	if err := e.gen.GenerateStructured(ctx, heroNameSchema, heroNameRequest(gender), &n); err != nil {
		return HeroResult{}, step("name hero", err)
	}
	hero := Hero{Name: n.Name, Stats: stats}
	if err := e.ValidateHero(hero); err != nil {
		return HeroResult{}, err
	}

	bio, err := e.gen.GenerateText(ctx, storytellerPrompt, biographyRequest(hero.Name, hero.Stats))
	if err != nil {
		return HeroResult{}, step("write biography", err)
	}

	img, err := e.gen.GenerateImage(ctx, dreamerPrompt(bio))
	if err != nil {
		return HeroResult{}, step("draw hero", err)
	}

	name := slug(hero.Name)
	if name == "" {
		return HeroResult{}, faults.Errorf(faults.StructuredOutput, "hero", "name %q has no usable characters", hero.Name)
	}
	imageURI, err := e.artifacts.SaveImage(ctx, img, name)
	if err != nil {
		return HeroResult{}, step("save hero image", err)
	}
	metadataURI, err := e.artifacts.SaveJSON(ctx, name, HeroMetadata{
		Name:        hero.Name,
		Description: bio,
		Image:       imageURI,
	})
	if err != nil {
		return HeroResult{}, step("save hero metadata", err)
	}

	id, err := e.chain.RecruitHero(ctx, req.Address, hero.Name, metadataURI, hero.Stats)
	if err != nil {
		return HeroResult{}, step("recruit hero", err)
	}
	e.log.Info("hero recruited",
		zap.Uint64("hero_id", id),
		zap.String("name", hero.Name),
		zap.String("metadata_uri", metadataURI),
	)
	return HeroResult{HeroID: id, Name: hero.Name}, nil
}
