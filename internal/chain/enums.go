package chain

import (
	"errors"
	"fmt"
	"strings"
)

// The ordinals below are the contract's enum values and must not change.

var (
	ErrInvalidQuestStatus = errors.New("invalid quest status")
	ErrInvalidTask        = errors.New("invalid task")
	ErrInvalidOutcome     = errors.New("invalid outcome")
)

type QuestStatus uint8

const (
	QuestOpen QuestStatus = iota
	QuestInProgress
	QuestFinished
)

var questStatusNames = [...]string{"OPEN", "IN_PROGRESS", "FINISHED"}

func (s QuestStatus) String() string {
	if int(s) < len(questStatusNames) {
		return questStatusNames[s]
	}
	return "UNKNOWN"
}

func (s QuestStatus) Number() uint8 { return uint8(s) }

func ParseQuestStatus(v string) (QuestStatus, error) {
	i, ok := lookup(questStatusNames[:], v)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuestStatus, v)
	}
	return QuestStatus(i), nil
}

func QuestStatusFromNumber(n uint8) (QuestStatus, error) {
	if int(n) >= len(questStatusNames) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidQuestStatus, n)
	}
	return QuestStatus(n), nil
}

// Task is an action a hero attempts against the active stage.
type Task uint8

const (
	TaskRomance Task = iota
	TaskFight
	TaskBribe
	TaskPersuade
	TaskSneak
)

var taskNames = [...]string{"ROMANCE", "FIGHT", "BRIBE", "PERSUADE", "SNEAK"}

// Tasks lists every task in ordinal order.
func Tasks() []Task {
	return []Task{TaskRomance, TaskFight, TaskBribe, TaskPersuade, TaskSneak}
}

func (t Task) String() string {
	if int(t) < len(taskNames) {
		return taskNames[t]
	}
	return "UNKNOWN"
}

func (t Task) Number() uint8 { return uint8(t) }

func ParseTask(v string) (Task, error) {
	i, ok := lookup(taskNames[:], v)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTask, v)
	}
	return Task(i), nil
}

func TaskFromNumber(n uint8) (Task, error) {
	if int(n) >= len(taskNames) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTask, n)
	}
	return Task(n), nil
}

func (t Task) MarshalText() ([]byte, error) {
	if int(t) >= len(taskNames) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTask, t)
	}
	return []byte(t.String()), nil
}

func (t *Task) UnmarshalText(b []byte) error {
	v, err := ParseTask(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type Outcome uint8

const (
	OutcomePass Outcome = iota
	OutcomeFail
)

var outcomeNames = [...]string{"PASS", "FAIL"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "UNKNOWN"
}

func (o Outcome) Number() uint8 { return uint8(o) }

func ParseOutcome(v string) (Outcome, error) {
	i, ok := lookup(outcomeNames[:], v)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, v)
	}
	return Outcome(i), nil
}

func OutcomeFromNumber(n uint8) (Outcome, error) {
	if int(n) >= len(outcomeNames) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidOutcome, n)
	}
	return Outcome(n), nil
}

func (o Outcome) MarshalText() ([]byte, error) {
	if int(o) >= len(outcomeNames) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOutcome, o)
	}
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(b []byte) error {
	v, err := ParseOutcome(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

func lookup(names []string, v string) (int, bool) {
	v = strings.ToUpper(strings.TrimSpace(v))
	for i, n := range names {
		if n == v {
			return i, true
		}
	}
	return 0, false
}
