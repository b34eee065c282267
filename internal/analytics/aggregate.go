// Package analytics computes per-question statistics over completed
// responses. Everything here is a pure function of its input.
package analytics

import (
	"context"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/SAP-F-2025/survey-service/internal/codec"
	"github.com/SAP-F-2025/survey-service/internal/models"
)

// TextLimit caps how many short answers a summary carries.
const TextLimit = 100

// LikertLabels names the five likert buckets, lowest first.
var LikertLabels = [codec.LikertMax - codec.LikertMin + 1]string{
	"Strongly disagree",
	"Disagree",
	"Neutral",
	"Agree",
	"Strongly agree",
}

type OptionCount struct {
	Option     string  `json:"option"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type Bucket struct {
	Value      int     `json:"value"`
	Label      string  `json:"label,omitempty"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type RankCount struct {
	Option string `json:"option"`
	First  int    `json:"first"`
	Last   int    `json:"last"`
}

// Summary is the statistics for one question. Answered counts non-empty
// answers; Excluded counts the ones among them that could not be decoded.
// TotalResponses counts every completed response considered, answered or not.
type Summary struct {
	QuestionID     string              `json:"question_id"`
	Text           string              `json:"text"`
	Type           models.QuestionType `json:"type"`
	TotalResponses int                 `json:"total_responses"`
	Answered       int                 `json:"answered"`
	Excluded       int                 `json:"excluded"`

	Options    []OptionCount `json:"options,omitempty"`
	Buckets    []Bucket      `json:"buckets,omitempty"`
	Average    *float64      `json:"average,omitempty"`
	Ranks      []RankCount   `json:"ranks,omitempty"`
	Orderings  [][]string    `json:"orderings,omitempty"`
	OtherTexts []string      `json:"other_texts,omitempty"`
	Texts      []string      `json:"texts,omitempty"`
}

// tally is the mergeable partial result for a slice of responses.
type tally struct {
	total    int
	answered int
	excluded int

	counts     map[string]int
	buckets    map[int]int
	sum        int
	first      map[string]int
	last       map[string]int
	orderings  [][]string
	otherTexts []string
	texts      []string
}

func newTally() *tally {
	return &tally{
		counts:  map[string]int{},
		buckets: map[int]int{},
		first:   map[string]int{},
		last:    map[string]int{},
	}
}

func (t *tally) merge(o *tally) {
	t.total += o.total
	t.answered += o.answered
	t.excluded += o.excluded
	t.sum += o.sum
	for k, v := range o.counts {
		t.counts[k] += v
	}
	for k, v := range o.buckets {
		t.buckets[k] += v
	}
	for k, v := range o.first {
		t.first[k] += v
	}
	for k, v := range o.last {
		t.last[k] += v
	}
	t.orderings = append(t.orderings, o.orderings...)
	t.otherTexts = append(t.otherTexts, o.otherTexts...)
	t.texts = appendCapped(t.texts, o.texts...)
}

func appendCapped(dst []string, values ...string) []string {
	for _, v := range values {
		if len(dst) >= TextLimit {
			break
		}
		dst = append(dst, v)
	}
	return dst
}

type aggregator struct {
	add    func(t *tally, d codec.Decoded)
	finish func(s *Summary, q *models.PersistedQuestion, t *tally)
}

var aggregators = map[models.QuestionType]aggregator{
	models.MultipleChoice:  {add: addChoice, finish: finishOptions},
	models.BranchingChoice: {add: addChoice, finish: finishOptions},
	models.MultipleSelect:  {add: addSelect, finish: finishOptions},
	models.ChoiceWithOther: {add: addOther, finish: finishOther},
	models.Ranking:         {add: addRanking, finish: finishRanking},
	models.NumericRating:   {add: addNumber, finish: finishNumeric},
	models.LikertScale:     {add: addNumber, finish: finishLikert},
	models.ImageChoice:     {add: addImage, finish: finishImage},
	models.ShortAnswer:     {add: addText, finish: finishText},
	models.ImageBanner:     {add: func(*tally, codec.Decoded) {}, finish: func(*Summary, *models.PersistedQuestion, *tally) {}},
}

// Aggregate summarises one question over a set of responses. Responses that
// are not completed are ignored.
func Aggregate(q *models.PersistedQuestion, responses []models.ResponseRecord) *Summary {
	return finish(q, tallyResponses(q, responses))
}

// AggregateParallel splits the responses into at most workers partitions,
// tallies them concurrently and merges the partial results. The summary is
// identical to Aggregate's.
func AggregateParallel(ctx context.Context, q *models.PersistedQuestion, responses []models.ResponseRecord, workers int) (*Summary, error) {
	if workers <= 1 || len(responses) < 2 {
		return Aggregate(q, responses), nil
	}
	if workers > len(responses) {
		workers = len(responses)
	}

	size := (len(responses) + workers - 1) / workers
	partials := make([]*tally, 0, workers)
	for start := 0; start < len(responses); start += size {
		partials = append(partials, nil)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := range partials {
		start := i * size
		end := min(start+size, len(responses))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			partials[i] = tallyResponses(q, responses[start:end])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := newTally()
	for _, p := range partials {
		merged.merge(p)
	}
	return finish(q, merged), nil
}

func tallyResponses(q *models.PersistedQuestion, responses []models.ResponseRecord) *tally {
	t := newTally()
	agg, known := aggregators[q.Type]
	for i := range responses {
		r := &responses[i]
		if r.Status != models.ResponseCompleted {
			continue
		}
		t.total++
		raw, ok := r.AnswerFor(q.ID)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		t.answered++
		d := codec.Decode(q, raw)
		if !known || !d.Valid {
			t.excluded++
			continue
		}
		agg.add(t, d)
	}
	return t
}

func finish(q *models.PersistedQuestion, t *tally) *Summary {
	s := &Summary{
		QuestionID:     q.ID,
		Text:           q.Text,
		Type:           q.Type,
		TotalResponses: t.total,
		Answered:       t.answered,
		Excluded:       t.excluded,
	}
	if agg, ok := aggregators[q.Type]; ok {
		agg.finish(s, q, t)
	}
	return s
}

func percentage(count, of int) float64 {
	if of == 0 {
		return 0
	}
	return math.Round(float64(count)*10000/float64(of)) / 100
}

func addChoice(t *tally, d codec.Decoded) {
	t.counts[d.Text]++
}

func addSelect(t *tally, d codec.Decoded) {
	for _, label := range d.Selected {
		t.counts[label]++
	}
}

func addOther(t *tally, d codec.Decoded) {
	t.counts[d.Text]++
	if d.HasOther {
		if text := strings.TrimSpace(d.Other); text != "" {
			t.otherTexts = append(t.otherTexts, text)
		}
	}
}

func finishOptions(s *Summary, q *models.PersistedQuestion, t *tally) {
	s.Options = make([]OptionCount, 0, len(q.Options))
	for _, opt := range q.Options {
		s.Options = append(s.Options, OptionCount{
			Option:     opt,
			Count:      t.counts[opt],
			Percentage: percentage(t.counts[opt], t.answered),
		})
	}
}

func finishOther(s *Summary, q *models.PersistedQuestion, t *tally) {
	finishOptions(s, q, t)
	s.OtherTexts = t.otherTexts
}

func addRanking(t *tally, d codec.Decoded) {
	n := len(d.Ranking)
	for label, rank := range d.Ranking {
		if rank == 1 {
			t.first[label]++
		}
		if rank == n {
			t.last[label]++
		}
	}
	t.orderings = append(t.orderings, d.Ordering())
}

func finishRanking(s *Summary, q *models.PersistedQuestion, t *tally) {
	s.Ranks = make([]RankCount, 0, len(q.Options))
	for _, opt := range q.Options {
		s.Ranks = append(s.Ranks, RankCount{Option: opt, First: t.first[opt], Last: t.last[opt]})
	}
	s.Orderings = t.orderings
}

func addNumber(t *tally, d codec.Decoded) {
	t.buckets[d.Number]++
	t.sum += d.Number
}

func finishScale(s *Summary, t *tally, lo, hi int, label func(int) string) {
	counted := 0
	s.Buckets = make([]Bucket, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		counted += t.buckets[v]
		s.Buckets = append(s.Buckets, Bucket{Value: v, Label: label(v), Count: t.buckets[v]})
	}
	for i := range s.Buckets {
		s.Buckets[i].Percentage = percentage(s.Buckets[i].Count, counted)
	}
	if counted > 0 {
		avg := math.Round(float64(t.sum)*100/float64(counted)) / 100
		s.Average = &avg
	}
}

func finishNumeric(s *Summary, _ *models.PersistedQuestion, t *tally) {
	finishScale(s, t, codec.RatingMin, codec.RatingMax, func(int) string { return "" })
}

func finishLikert(s *Summary, _ *models.PersistedQuestion, t *tally) {
	finishScale(s, t, codec.LikertMin, codec.LikertMax, func(v int) string { return LikertLabels[v-codec.LikertMin] })
}

func addImage(t *tally, d codec.Decoded) {
	t.buckets[d.Index]++
}

func finishImage(s *Summary, q *models.PersistedQuestion, t *tally) {
	s.Buckets = make([]Bucket, 0, len(q.Options))
	for i, url := range q.Options {
		s.Buckets = append(s.Buckets, Bucket{
			Value:      i,
			Label:      url,
			Count:      t.buckets[i],
			Percentage: percentage(t.buckets[i], t.answered),
		})
	}
}

func addText(t *tally, d codec.Decoded) {
	t.texts = appendCapped(t.texts, d.Raw)
}

func finishText(s *Summary, _ *models.PersistedQuestion, t *tally) {
	s.Texts = t.texts
}
