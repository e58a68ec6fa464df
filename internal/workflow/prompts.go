package workflow

import (
	"fmt"
	"strings"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/ai"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/chain"
)

const storytellerPrompt = `## Role
You are a storyteller.

## Instructions
You will be given a prompt and you will generate a story based on the prompt.

## Style Guidelines
- Use descriptive language to create vivid imagery.
- Incorporate sensory details to engage the reader's senses.
- Maintain a consistent tone and voice throughout the story.
- Avoid cliches and predictable plot twists.
- Your output should be a maximum of 3 sentences but prioritize clarity and coherence.`

const recruiterPrompt = `You are an expert Dungeons & Dragons style hero creator.
Your task is to create fun and interesting heroes for people to play with.
Pick an original fantasy name that suits the hero's gender.`

const scenarioPrompt = `## Role
You are a storyteller setting the scene for a new quest.

## Instructions
Describe the setting and the characters the party will meet.
Do not describe any conflict or its resolution; this is only a teaser.
Keep it under 5 sentences.`

const titlePrompt = `Give the quest described below a short evocative title of at most 6 words.
Reply with the title only, without quotes or punctuation at the end.`

const invokerPrompt = `## Role
You are an invoker.

## Instructions
You will be given a scenario description and a difficulty and you will generate one stage of the quest.
- The stage should be coherent with the scenario description and difficulty.
- The stage could be a battle with a monster, a puzzle or a negotiation.
- Names should describe the encounter, e.g. "Goblin Horde", "Door without a knob", "Travelling merchant".
- hp is between 1 and 100 according to the difficulty.
- Each resistance (romance, fight, bribe, persuade, sneak) is between -100 and 100.
  A negative resistance means heroes have an advantage with that approach.`

func dreamerPrompt(description string) string {
	return fmt.Sprintf(`Generate a single high-quality art asset based precisely on the object or scene described below.

### DESCRIPTION:
%s

### THEME:
Art Style: painterly high-fantasy illustration
Lighting and Mood: dramatic, warm highlights
Level of Detail: highly detailed
Aspect Ratio: 1:1 square`, description)
}

func heroNameRequest(gender string) string {
	return fmt.Sprintf("Create a name for a new %s hero.", strings.ToLower(gender))
}

func biographyRequest(name string, s chain.HeroStats) string {
	return fmt.Sprintf(
		"The events as known are: %s is a new hero with strength %d, dexterity %d, will power %d, "+
			"intelligence %d, charisma %d and constitution %d. Tell their origin story.",
		name, s.Strength, s.Dexterity, s.WillPower, s.Intelligence, s.Charisma, s.Constitution,
	)
}

func stageRequest(scenario, difficulty string, previous []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scenario: %s\nDifficulty: %s\n", scenario, difficulty)
	if len(previous) > 0 {
		fmt.Fprintf(&b, "Earlier stages (pick something different): %s\n", strings.Join(previous, ", "))
	}
	return b.String()
}

var heroNameSchema = ai.Schema{
	Name:        "hero_name",
	Description: recruiterPrompt,
	JSON: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"name"},
		"properties": map[string]any{
			"name": map[string]any{
				"type":        "string",
				"minLength":   2,
				"maxLength":   100,
				"description": "The name of the hero.",
			},
		},
	},
}

func resistanceProp(approach string) map[string]any {
	return map[string]any{
		"type":        "integer",
		"minimum":     -100,
		"maximum":     100,
		"description": "Resistance to " + approach + " in percent.",
	}
}

var stageSchema = ai.Schema{
	Name:        "quest_stage",
	Description: invokerPrompt,
	JSON: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"name", "description", "hp", "resistances"},
		"properties": map[string]any{
			"name":        map[string]any{"type": "string", "minLength": 1, "maxLength": 100},
			"description": map[string]any{"type": "string", "minLength": 1},
			"hp":          map[string]any{"type": "integer", "minimum": 1, "maximum": 100},
			"resistances": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"romance", "fight", "bribe", "persuade", "sneak"},
				"properties": map[string]any{
					"romance":  resistanceProp("romance"),
					"fight":    resistanceProp("fight"),
					"bribe":    resistanceProp("bribe"),
					"persuade": resistanceProp("persuade"),
					"sneak":    resistanceProp("sneak"),
				},
			},
		},
	},
}
