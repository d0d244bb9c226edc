package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// MaxNoteLen bounds the free-text note attached to a submission.
const MaxNoteLen = 200

// Submission is one claim of work against a bounty.
type Submission struct {
	Submitter common.Address
	Evidence  string // opaque reference to off-record evidence
	Note      string
	CreatedAt int64
}

// EncodeEvidence packs evidence and note into the ledger wire form
// "evidence|note". The evidence itself must not contain the separator,
// since decoding splits on the first one.
func EncodeEvidence(evidence, note string) (string, error) {
	if strings.Contains(evidence, "|") {
		return "", fmt.Errorf("evidence must not contain %q", "|")
	}
	if len(note) > MaxNoteLen {
		return "", fmt.Errorf("note exceeds %d characters", MaxNoteLen)
	}
	return evidence + "|" + note, nil
}

// DecodeEvidence splits the ledger wire form on the first separator.
// A missing separator yields the whole string as evidence and an empty note.
func DecodeEvidence(s string) (evidence, note string) {
	evidence, note, _ = strings.Cut(s, "|")
	return evidence, note
}
