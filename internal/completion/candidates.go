package completion

import (
	"regexp"
	"sort"
	"strings"

	"github.com/woxQAQ/sql-ls/internal/schema"
)

// CandidateKind is what a candidate completes to.
type CandidateKind int

const (
	KindColumn CandidateKind = iota
	KindTable
	KindKeyword
)

func (k CandidateKind) String() string {
	switch k {
	case KindColumn:
		return "column"
	case KindTable:
		return "table"
	default:
		return "keyword"
	}
}

// Ranking tiers; lower sorts first.
const (
	TierColumn  = 0
	TierTable   = 1
	TierKeyword = 99
)

// Candidate is one completion proposal.
type Candidate struct {
	Label         string
	Kind          CandidateKind
	Detail        string
	Documentation string
	Tier          int
}

var lastWordPattern = regexp.MustCompile("[\\p{L}\\p{N}_`]+$")

// LastWord returns the trailing run of word characters or backticks in
// before, the text of the current line up to the cursor.
func LastWord(before string) string {
	return lastWordPattern.FindString(before)
}

// matcher compiles word into a case-insensitive prefix matcher. Backticks are
// quoting, not part of names, and are dropped. An empty word matches
// everything.
func matcher(word string) *regexp.Regexp {
	word = strings.ReplaceAll(word, "`", "")
	return regexp.MustCompile("(?i)^" + regexp.QuoteMeta(word))
}

// Aggregate collects the candidates for ctx whose names start with word and
// returns them ordered by tier, keeping cache order within a tier.
func Aggregate(ctx Context, word string, cache *schema.Cache) []Candidate {
	re := matcher(word)
	out := []Candidate{}

	switch ctx.Mode {
	case ModeColumn:
		var cols []schema.ColumnInfo
		switch {
		case !ctx.Qualified:
			cols = cache.Columns()
		case ctx.Table != "":
			cols = cache.TableColumns(ctx.Table)
		}
		for _, col := range cols {
			if re.MatchString(col.Name) {
				out = append(out, Candidate{
					Label:         col.Name,
					Kind:          KindColumn,
					Detail:        col.TableName + "." + col.Name,
					Documentation: col.String(),
					Tier:          TierColumn,
				})
			}
		}
	case ModeTable:
		for _, t := range cache.Tables() {
			if re.MatchString(t.Name) {
				out = append(out, Candidate{
					Label:         t.Name,
					Kind:          KindTable,
					Detail:        "table",
					Documentation: t.Description,
					Tier:          TierTable,
				})
			}
		}
	}

	for _, kw := range cache.Keywords() {
		if re.MatchString(kw) {
			out = append(out, Candidate{
				Label:         kw,
				Kind:          KindKeyword,
				Detail:        "keyword",
				Documentation: cache.Help(kw),
				Tier:          TierKeyword,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out
}
