// Package codec converts structured answers to and from the canonical text
// stored on a response record. Every question type has one rule; rules are
// looked up by type so callers never branch on it themselves.
package codec

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/SAP-F-2025/survey-service/internal/errors"
	"github.com/SAP-F-2025/survey-service/internal/models"
)

const (
	// SelectDelimiter joins multiple_select labels.
	SelectDelimiter = ", "

	// OtherSeparator splits the "other" label from its free text.
	OtherSeparator = ": "

	RatingMin = 0
	RatingMax = 10
	LikertMin = 1
	LikertMax = 5
)

// Value is an answer as a respondent submits it. Which fields are read
// depends on the question type.
type Value struct {
	// Text is the chosen label for multiple_choice, branching_choice and
	// choice_with_other, or the free text for short_answer and image_banner.
	Text     string         `json:"text,omitempty"`
	Selected []string       `json:"selected,omitempty"`
	Ranking  map[string]int `json:"ranking,omitempty"`
	Index    *int           `json:"index,omitempty"`
	Number   *int           `json:"number,omitempty"`
	Other    *string        `json:"other,omitempty"`
}

// Decoded is a stored answer read back. Valid is false when the raw text
// does not follow the rule for its type; such answers are skipped by
// statistics rather than treated as errors.
type Decoded struct {
	Type     models.QuestionType
	Raw      string
	Valid    bool
	Text     string
	Selected []string
	Ranking  map[string]int
	Index    int
	Number   int
	HasOther bool
	Other    string
}

// Ordering returns the ranked labels from first to last.
func (d Decoded) Ordering() []string {
	labels := make([]string, 0, len(d.Ranking))
	for label := range d.Ranking {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if d.Ranking[labels[i]] != d.Ranking[labels[j]] {
			return d.Ranking[labels[i]] < d.Ranking[labels[j]]
		}
		return labels[i] < labels[j]
	})
	return labels
}

// Display renders the answer for people reading an export.
func (d Decoded) Display() string {
	if !d.Valid {
		return d.Raw
	}
	switch d.Type {
	case models.MultipleSelect:
		return strings.Join(d.Selected, "; ")
	case models.Ranking:
		return strings.Join(d.Ordering(), " > ")
	case models.ChoiceWithOther:
		if d.HasOther {
			return fmt.Sprintf("%s: %s", d.Text, d.Other)
		}
		return d.Text
	case models.ImageChoice:
		return fmt.Sprintf("Image %d", d.Index+1)
	case models.NumericRating, models.LikertScale:
		return strconv.Itoa(d.Number)
	default:
		return d.Text
	}
}

type rule struct {
	encode func(q *models.PersistedQuestion, v Value) (string, error)
	decode func(q *models.PersistedQuestion, raw string) Decoded
}

var rules = map[models.QuestionType]rule{
	models.MultipleChoice:  {encode: encodeChoice, decode: decodeChoice},
	models.BranchingChoice: {encode: encodeChoice, decode: decodeChoice},
	models.ShortAnswer:     {encode: encodeText, decode: decodeText},
	models.ImageBanner:     {encode: encodeText, decode: decodeText},
	models.NumericRating:   {encode: scaleEncoder(RatingMin, RatingMax), decode: scaleDecoder(RatingMin, RatingMax)},
	models.LikertScale:     {encode: scaleEncoder(LikertMin, LikertMax), decode: scaleDecoder(LikertMin, LikertMax)},
	models.MultipleSelect:  {encode: encodeSelect, decode: decodeSelect},
	models.Ranking:         {encode: encodeRanking, decode: decodeRanking},
	models.ImageChoice:     {encode: encodeImage, decode: decodeImage},
	models.ChoiceWithOther: {encode: encodeOther, decode: decodeOther},
}

// Encode validates v against the question and returns its canonical text.
func Encode(q *models.PersistedQuestion, v Value) (string, error) {
	r, ok := rules[q.Type]
	if !ok {
		return "", invalid("type", "unsupported question type", q.Type)
	}
	return r.encode(q, v)
}

// Decode reads a stored answer. It never fails; see Decoded.Valid.
func Decode(q *models.PersistedQuestion, raw string) Decoded {
	r, ok := rules[q.Type]
	if !ok {
		return Decoded{Type: q.Type, Raw: raw}
	}
	d := r.decode(q, raw)
	d.Type = q.Type
	d.Raw = raw
	return d
}

func invalid(field, message string, value interface{}) error {
	return apperrors.NewValidationErrorWithRule("answer."+field, message, "answer", value)
}

func encodeChoice(q *models.PersistedQuestion, v Value) (string, error) {
	if !q.HasOption(v.Text) {
		return "", invalid("text", "must be one of the question options", v.Text)
	}
	return v.Text, nil
}

func decodeChoice(q *models.PersistedQuestion, raw string) Decoded {
	return Decoded{Text: raw, Valid: q.HasOption(raw)}
}

func encodeText(_ *models.PersistedQuestion, v Value) (string, error) {
	return v.Text, nil
}

func decodeText(_ *models.PersistedQuestion, raw string) Decoded {
	return Decoded{Text: raw, Valid: raw != ""}
}

func scaleEncoder(lo, hi int) func(*models.PersistedQuestion, Value) (string, error) {
	return func(_ *models.PersistedQuestion, v Value) (string, error) {
		if v.Number == nil {
			return "", invalid("number", "is required", nil)
		}
		if *v.Number < lo || *v.Number > hi {
			return "", invalid("number", fmt.Sprintf("must be between %d and %d", lo, hi), *v.Number)
		}
		return strconv.Itoa(*v.Number), nil
	}
}

func scaleDecoder(lo, hi int) func(*models.PersistedQuestion, string) Decoded {
	return func(_ *models.PersistedQuestion, raw string) Decoded {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < lo || n > hi {
			return Decoded{}
		}
		return Decoded{Number: n, Valid: true}
	}
}

func encodeSelect(q *models.PersistedQuestion, v Value) (string, error) {
	if len(v.Selected) == 0 {
		return "", invalid("selected", "at least one option must be selected", nil)
	}
	seen := make(map[string]bool, len(v.Selected))
	for _, label := range v.Selected {
		if strings.Contains(label, SelectDelimiter) {
			return "", invalid("selected", fmt.Sprintf("option must not contain %q", SelectDelimiter), label)
		}
		if !q.HasOption(label) {
			return "", invalid("selected", "must be one of the question options", label)
		}
		if seen[label] {
			return "", invalid("selected", "option selected twice", label)
		}
		seen[label] = true
	}
	return strings.Join(v.Selected, SelectDelimiter), nil
}

func decodeSelect(_ *models.PersistedQuestion, raw string) Decoded {
	if raw == "" {
		return Decoded{}
	}
	return Decoded{Selected: strings.Split(raw, SelectDelimiter), Valid: true}
}

func encodeRanking(q *models.PersistedQuestion, v Value) (string, error) {
	if len(v.Ranking) == 0 {
		return "", invalid("ranking", "at least one option must be ranked", nil)
	}
	for label := range v.Ranking {
		if !q.HasOption(label) {
			return "", invalid("ranking", "must rank question options only", label)
		}
	}
	if !isPermutation(v.Ranking) {
		return "", invalid("ranking", fmt.Sprintf("ranks must be 1 to %d without repeats", len(v.Ranking)), v.Ranking)
	}
	data, err := json.Marshal(v.Ranking)
	if err != nil {
		return "", fmt.Errorf("failed to encode ranking: %w", err)
	}
	return string(data), nil
}

// decodeRanking requires the ranks of the n ranked options to be exactly
// 1..n; a gap or a repeat decodes as invalid.
func decodeRanking(_ *models.PersistedQuestion, raw string) Decoded {
	ranking := map[string]int{}
	if err := json.Unmarshal([]byte(raw), &ranking); err != nil || len(ranking) == 0 || !isPermutation(ranking) {
		return Decoded{Ranking: map[string]int{}}
	}
	return Decoded{Ranking: ranking, Valid: true}
}

func isPermutation(ranking map[string]int) bool {
	seen := make(map[int]bool, len(ranking))
	for _, rank := range ranking {
		if rank < 1 || rank > len(ranking) || seen[rank] {
			return false
		}
		seen[rank] = true
	}
	return true
}

func encodeImage(q *models.PersistedQuestion, v Value) (string, error) {
	if v.Index == nil {
		return "", invalid("index", "is required", nil)
	}
	if *v.Index < 0 || *v.Index >= len(q.Options) {
		return "", invalid("index", fmt.Sprintf("must be between 0 and %d", len(q.Options)-1), *v.Index)
	}
	return strconv.Itoa(*v.Index), nil
}

func decodeImage(q *models.PersistedQuestion, raw string) Decoded {
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 || idx >= len(q.Options) {
		return Decoded{}
	}
	return Decoded{Index: idx, Valid: true}
}

func encodeOther(q *models.PersistedQuestion, v Value) (string, error) {
	if !q.HasOption(v.Text) {
		return "", invalid("text", "must be one of the question options", v.Text)
	}
	last, _ := q.LastOption()
	if v.Other == nil {
		return v.Text, nil
	}
	if v.Text != last {
		return "", invalid("other", fmt.Sprintf("free text is only allowed with %q", last), *v.Other)
	}
	return v.Text + OtherSeparator + *v.Other, nil
}

func decodeOther(q *models.PersistedQuestion, raw string) Decoded {
	if q.HasOption(raw) {
		return Decoded{Text: raw, Valid: true}
	}
	last, ok := q.LastOption()
	if !ok {
		return Decoded{}
	}
	if rest, found := strings.CutPrefix(raw, last+OtherSeparator); found {
		return Decoded{Text: last, HasOther: true, Other: rest, Valid: true}
	}
	return Decoded{}
}
