package engine

import (
	"context"
	"fmt"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// AppendSortOrder requests insertion after the last active line.
const AppendSortOrder = -1

// resolveStart turns a requested sort order into the first slot S.
// Append resolves to max(active sort order)+1, or 1 for an empty project.
func resolveStart(requested int, active []ir.QuestionnaireLine) int {
	if requested != AppendSortOrder {
		return requested
	}
	start := 1
	for _, l := range active {
		if l.SortOrder+1 > start {
			start = l.SortOrder + 1
		}
	}
	return start
}

// FailedLine is a new line the record store refused to create.
type FailedLine struct {
	Line ir.QuestionnaireLine `json:"line"`
	Err  error                `json:"-"`
}

// Insertion describes a committed batch insertion.
type Insertion struct {
	// Start is the resolved first sort order S.
	Start int `json:"start"`
	// Created are the lines that were written, at S, S+1, ...
	Created []ir.QuestionnaireLine `json:"created"`
	// Failed are the lines the store rejected.
	Failed []FailedLine `json:"-"`
	// Displaced counts existing lines shifted to make room.
	Displaced int `json:"displaced"`
}

// insertLines merges new lines into a project's questionnaire at
// sortOrder (or appends for AppendSortOrder).
//
//  1. Snapshot active lines with sort order >= S.
//  2. Create every new line at S, S+1, ... (ContinueOnError).
//  3. All creates failed: FATAL_BATCH_FAILURE, nothing is displaced.
//  4. Some failed: renumber the successes to S.. contiguously (FailFast).
//  5. Shift the snapshot by the number of successes (FailFast).
//
// On partial failure the returned Insertion describes what was committed
// and the error is a PARTIAL_BATCH_FAILURE. When renumbering or
// displacement fails the created lines stay committed, so the Insertion is
// returned alongside the FATAL_BATCH_FAILURE. An empty batch writes nothing.
func (c *Composer) insertLines(ctx context.Context, projectID string, sortOrder int, lines []ir.QuestionnaireLine) (*Insertion, error) {
	active, err := c.gw.ListQuestionnaireLines(ctx, projectID, ir.ScopeActive)
	if err != nil {
		return nil, fmt.Errorf("insert lines: load active lines: %w", err)
	}

	start := resolveStart(sortOrder, active)
	if len(lines) == 0 {
		return &Insertion{Start: start, Created: []ir.QuestionnaireLine{}}, nil
	}

	var displaced []ir.QuestionnaireLine
	for _, l := range active {
		if l.SortOrder >= start {
			displaced = append(displaced, l)
		}
	}

	batch := make([]ir.QuestionnaireLine, len(lines))
	for i, l := range lines {
		l.ID = c.ids.Generate()
		l.ProjectID = projectID
		l.SortOrder = start + i
		l.Active = true
		batch[i] = l
	}

	outcomes, err := c.gw.CreateLines(ctx, batch, ir.ContinueOnError)
	if err != nil {
		c.logger.Error("create batch failed", "project_id", projectID, "lines", len(batch), "error", err)
		return nil, &Error{Code: ErrCodeFatalBatch, Reason: ReasonCreateFailed, Err: fmt.Errorf("create lines: %w", err)}
	}

	ins := &Insertion{Start: start, Created: []ir.QuestionnaireLine{}}
	failedByIndex := make(map[int]error)
	for _, o := range outcomes {
		if !o.OK() {
			failedByIndex[o.Index] = o.Err
		}
	}
	for i, l := range batch {
		if err, failed := failedByIndex[i]; failed {
			ins.Failed = append(ins.Failed, FailedLine{Line: l, Err: err})
			continue
		}
		ins.Created = append(ins.Created, l)
	}

	if len(ins.Created) == 0 {
		c.logger.Error("every create failed", "project_id", projectID, "lines", len(batch))
		return nil, newError(ErrCodeFatalBatch, ReasonCreateFailed, failureMessages(ins.Failed)...)
	}

	if len(ins.Failed) > 0 {
		if err := c.renumber(ctx, ins); err != nil {
			return ins, err
		}
	}

	if len(displaced) > 0 {
		shift := len(ins.Created)
		updates := make([]ir.LineUpdate, len(displaced))
		for i, l := range displaced {
			next := l.SortOrder + shift
			updates[i] = ir.LineUpdate{ID: l.ID, SortOrder: &next}
		}
		if _, err := c.gw.UpdateLines(ctx, updates, ir.FailFast); err != nil {
			c.logger.Error("displacement failed", "project_id", projectID, "lines", len(updates), "error", err)
			return ins, &Error{
				Code:     ErrCodeFatalBatch,
				Reason:   ReasonDisplacementFailed,
				Messages: []string{"Could not move existing questions to make room for the new ones."},
				Err:      err,
			}
		}
		ins.Displaced = len(displaced)
	}

	c.logger.Info("lines inserted",
		"project_id", projectID,
		"start", start,
		"created", len(ins.Created),
		"failed", len(ins.Failed),
		"displaced", ins.Displaced,
	)

	if len(ins.Failed) > 0 {
		return ins, newError(ErrCodePartialBatch, ReasonCreateFailed, failureMessages(ins.Failed)...)
	}
	return ins, nil
}

// renumber closes the gaps left by failed creates so the successes occupy
// Start, Start+1, ... in batch order.
func (c *Composer) renumber(ctx context.Context, ins *Insertion) error {
	var updates []ir.LineUpdate
	var moved []int
	for i := range ins.Created {
		want := ins.Start + i
		if ins.Created[i].SortOrder == want {
			continue
		}
		updates = append(updates, ir.LineUpdate{ID: ins.Created[i].ID, SortOrder: &want})
		moved = append(moved, i)
	}
	if len(updates) == 0 {
		return nil
	}

	if _, err := c.gw.UpdateLines(ctx, updates, ir.FailFast); err != nil {
		c.logger.Error("renumber failed", "lines", len(updates), "error", err)
		return &Error{
			Code:     ErrCodeFatalBatch,
			Reason:   ReasonRenumberFailed,
			Messages: []string{"Could not renumber the new questions after some of them failed to be added."},
			Err:      fmt.Errorf("renumber lines: %w", err),
		}
	}
	for j, i := range moved {
		ins.Created[i].SortOrder = *updates[j].SortOrder
	}
	return nil
}

func failureMessages(failed []FailedLine) []string {
	msgs := make([]string, 0, len(failed))
	for _, f := range failed {
		msgs = append(msgs, fmt.Sprintf("Could not add '%s': %v", f.Line.VariableName, f.Err))
	}
	return msgs
}
