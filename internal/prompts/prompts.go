package prompts

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// Transcription Prompts
// ============================================================================

// TranscribeBasePrompt asks for a whole-image transcription with no commentary.
// 画像内の手書き文字をすべて書き起こす（説明・コメントなし）
const TranscribeBasePrompt = `この画像に含まれる手書きの文字を、可能な限り正確に全て書き起こしてください。書き起こし以外の、画像に関する説明やコメント、補足情報は一切含めないでください。`

// TranscribeVariantPrompt reads the image line by line, preserving line breaks
// and copying misspellings as written. It must stay a different reading strategy
// from the base prompt.
// 行ごとに読み取り、改行位置を保持して書き起こす
const TranscribeVariantPrompt = `あなたは手書き文字の書き起こし担当者です。画像を上から下へ一行ずつ読み、各行の手書き文字を原文どおりに書き起こしてください。
- 改行位置は画像の行に合わせて保持してください
- 誤字や脱字があっても修正せず、書かれているとおりに出力してください
- 書き起こした文字以外（説明、見出し、引用符、コメント）は出力しないでください`

// Arbitration template slots. Both must appear in an arbitration template.
const (
	SlotCandidateA = "{candidate_a}"
	SlotCandidateB = "{candidate_b}"
)

// TranscribeArbitrationTemplate shows the model both candidate transcriptions next to
// the source image and asks for one final transcription.
// 2つの候補を画像と照合し、最も正確な最終版を出力させる
const TranscribeArbitrationTemplate = `同じ手書き画像を2回書き起こしたところ、結果が一致しませんでした。画像をもう一度注意深く確認し、正しい書き起こしを1つだけ出力してください。

【候補A】
` + SlotCandidateA + `

【候補B】
` + SlotCandidateB + `

【ルール】
- 画像に実際に書かれている文字を優先し、候補のどちらか、または両者を組み合わせて最も正確な書き起こしを作成してください
- 候補にない文字でも、画像に書かれていれば含めてください
- 最終的な書き起こしのみを出力し、候補名、説明、コメントは一切含めないでください`

// ============================================================================
// Prompt Set
// ============================================================================

var (
	// ErrEmptyPrompt is returned when the base or variant prompt is blank.
	ErrEmptyPrompt = errors.New("prompt must not be empty")

	// ErrIdenticalPrompts is returned when base and variant are the same text,
	// which would make agreement between the two passes meaningless.
	ErrIdenticalPrompts = errors.New("base and variant prompts must differ")

	// ErrTemplateSlots is returned when the arbitration template lacks a slot.
	ErrTemplateSlots = errors.New("arbitration template must contain " + SlotCandidateA + " and " + SlotCandidateB)
)

// Set is the triple of instructions used by one reconciliation.
type Set struct {
	Base        string
	Variant     string
	Arbitration string
}

// Default returns the built-in prompt set.
func Default() Set {
	return Set{
		Base:        TranscribeBasePrompt,
		Variant:     TranscribeVariantPrompt,
		Arbitration: TranscribeArbitrationTemplate,
	}
}

// WithOverrides replaces every non-blank field of o into a copy of s.
func (s Set) WithOverrides(o Set) Set {
	if strings.TrimSpace(o.Base) != "" {
		s.Base = o.Base
	}
	if strings.TrimSpace(o.Variant) != "" {
		s.Variant = o.Variant
	}
	if strings.TrimSpace(o.Arbitration) != "" {
		s.Arbitration = o.Arbitration
	}
	return s
}

// Validate checks the set can drive a meaningful two-pass reconciliation.
func (s Set) Validate() error {
	if strings.TrimSpace(s.Base) == "" {
		return fmt.Errorf("base: %w", ErrEmptyPrompt)
	}
	if strings.TrimSpace(s.Variant) == "" {
		return fmt.Errorf("variant: %w", ErrEmptyPrompt)
	}
	if s.Base == s.Variant {
		return ErrIdenticalPrompts
	}
	if !strings.Contains(s.Arbitration, SlotCandidateA) || !strings.Contains(s.Arbitration, SlotCandidateB) {
		return ErrTemplateSlots
	}
	return nil
}

// RenderArbitration substitutes the two candidates into the template's slots.
// Substitution is a single pass, so slot markers inside a candidate are kept verbatim.
func RenderArbitration(template, candidateA, candidateB string) string {
	return strings.NewReplacer(
		SlotCandidateA, candidateA,
		SlotCandidateB, candidateB,
	).Replace(template)
}
