// Package routing holds the pure, table-driven pieces of the hand-off flow:
// escalation detection over AI reply text and branch resolution from free-text
// city/state mentions. Both are driven by config tables so the match lists can
// grow without touching control flow.
package routing

import (
	"fmt"
	"strings"

	"support-bridge-backend/internal/config"
	"support-bridge-backend/utils"
)

// Detector scans AI reply text for configured hand-off signals.
type Detector struct {
	patterns []string
}

func NewDetector(patterns []string) *Detector {
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			lowered = append(lowered, p)
		}
	}
	return &Detector{patterns: lowered}
}

// IsEscalation reports whether replyText contains any hand-off signal.
// Matching is a case-insensitive substring check.
func (d *Detector) IsEscalation(replyText string) bool {
	if replyText == "" {
		return false
	}
	lowered := strings.ToLower(replyText)
	for _, pattern := range d.patterns {
		if strings.Contains(lowered, pattern) {
			return true
		}
	}
	return false
}

// Strip removes every configured signal from text, so internal markers like
// "[semáforo: rojo]" never reach the customer. Matching is case-insensitive;
// the surrounding text keeps its original casing.
func (d *Detector) Strip(text string) string {
	for _, pattern := range d.patterns {
		for {
			idx := strings.Index(strings.ToLower(text), pattern)
			if idx < 0 {
				break
			}
			text = text[:idx] + text[idx+len(pattern):]
		}
	}
	return strings.TrimSpace(text)
}

// BranchResolver maps free-text location mentions onto branch offices, or onto
// a "state with no local branch" label when the customer names a state the
// company has no office in.
type BranchResolver struct {
	branches []config.Branch
	states   []config.StateAlias
}

func NewBranchResolver(cfg config.Routing) *BranchResolver {
	return &BranchResolver{
		branches: cfg.Branches,
		states:   cfg.StatesWithoutBranch,
	}
}

// Decision is the outcome of resolving one piece of text. BranchID and
// StateLabel are mutually exclusive; a detected branch always wins over a
// state-without-branch match.
type Decision struct {
	BranchID   string
	StateLabel string
}

func (d Decision) Empty() bool {
	return d.BranchID == "" && d.StateLabel == ""
}

// DetectBranch returns the first branch whose keyword appears in text.
// Keywords are checked in table order, so the config keeps the most specific
// spellings first.
func (r *BranchResolver) DetectBranch(text string) (config.Branch, bool) {
	lowered := strings.ToLower(text)
	for _, branch := range r.branches {
		for _, keyword := range branch.Keywords {
			if keyword != "" && strings.Contains(lowered, strings.ToLower(keyword)) {
				return branch, true
			}
		}
	}
	return config.Branch{}, false
}

// DetectStateWithoutBranch returns the display label of a state that has no
// dedicated branch, when text mentions one.
func (r *BranchResolver) DetectStateWithoutBranch(text string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, state := range r.states {
		for _, keyword := range state.Keywords {
			if keyword != "" && strings.Contains(lowered, strings.ToLower(keyword)) {
				return state.Label, true
			}
		}
	}
	return "", false
}

// Resolve applies the tie-break rule across both tables: a city/branch match
// beats a state-without-branch match when both fire on the same text.
func (r *BranchResolver) Resolve(text string) Decision {
	if branch, ok := r.DetectBranch(text); ok {
		return Decision{BranchID: branch.ID}
	}
	if label, ok := r.DetectStateWithoutBranch(text); ok {
		return Decision{StateLabel: label}
	}
	return Decision{}
}

// BranchByIndex returns the branch at a 1-based menu position, matching the
// numbering produced by BranchMenuText.
func (r *BranchResolver) BranchByIndex(position int) (config.Branch, bool) {
	if position < 1 || position > len(r.branches) {
		return config.Branch{}, false
	}
	return r.branches[position-1], true
}

// BranchByID looks a branch up by its configured id.
func (r *BranchResolver) BranchByID(id string) (config.Branch, bool) {
	for _, branch := range r.branches {
		if branch.ID == id {
			return branch, true
		}
	}
	return config.Branch{}, false
}

// BranchMenuText enumerates all branch display names for the branch-choice
// menu sent when routing is ambiguous.
func (r *BranchResolver) BranchMenuText() string {
	names := make([]string, 0, len(r.branches))
	for i, branch := range r.branches {
		name := branch.DisplayName
		if name == "" {
			name = branch.ID
		}
		names = append(names, fmt.Sprintf("%d. %s", i+1, name))
	}
	return utils.StringJoin(names, "\n")
}
