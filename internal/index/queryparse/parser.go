// Package queryparse implements a hand-rolled query syntax: field-prefix
// targeting, ^boost multipliers, quoted phrases with an optional ~N
// proximity suffix, AND/OR/NOT operators, and * wildcards — compiled
// into bleve's own conjunction/disjunction/match-phrase/wildcard query
// constructors, layered on top of bleve's existing query types to give a
// single query string field-weighted, operator-aware matching. bleve's
// phrase query has no slop parameter, so only "~0" (or no suffix) passes
// through as an exact phrase match; any other ~N is rejected rather than
// silently matched as exact.
package queryparse

import (
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/probehq/probe/internal/perr"
)

// FieldWeights maps a tokenized field name to its default query boost.
type FieldWeights map[string]float64

// Options configures Parse.
type Options struct {
	// DefaultFields is the set an unqualified term expands into.
	DefaultFields []string
	// Weights gives each default field's boost multiplier.
	Weights FieldWeights
	// FieldAliases maps a user-facing field prefix (e.g. "content") onto
	// the actual indexed field name (e.g. "body").
	FieldAliases map[string]string
}

type opKind int

const (
	opNone opKind = iota
	opAnd
	opOr
	opNot
)

type atom struct {
	op        opKind
	field     string
	text      string
	boost     float64
	phrase    bool
	wildcard  bool
	proximity int
}

// Parse turns a raw query string into a bleve query.Query.
//
// This is a deliberately simple left-to-right parser, not a full
// operator-precedence grammar: each atom attaches to the boolean query
// via whichever operator most recently preceded it (default AND). That
// matches how most query-box parsers behave (e.g. a basic search-box
// query language) and is sufficient for everyday queries, which rarely
// need nested boolean grouping.
func Parse(raw string, opts Options) (query.Query, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, perr.New(perr.QueryInvalid, "query is empty").WithPos(0)
	}

	atoms, err := lex(raw)
	if err != nil {
		return nil, err
	}

	var must, should, mustNot []query.Query
	occur := "must"
	negate := false
	sawAtom := false

	for _, a := range atoms {
		switch a.op {
		case opAnd:
			occur = "must"
			continue
		case opOr:
			occur = "should"
			continue
		case opNot:
			negate = true
			continue
		}

		q, err := compileAtom(a, opts)
		if err != nil {
			return nil, err
		}
		sawAtom = true

		switch {
		case negate:
			mustNot = append(mustNot, q)
			negate = false
		case occur == "should":
			should = append(should, q)
		default:
			must = append(must, q)
		}
		occur = "must"
	}

	if !sawAtom {
		return nil, perr.New(perr.QueryInvalid, "query has no searchable terms").WithPos(0)
	}

	bq := query.NewBooleanQuery(must, should, mustNot)
	if len(should) > 0 && len(must) == 0 {
		bq.SetMinShould(1)
	}
	return bq, nil
}

func lex(raw string) ([]atom, error) {
	var atoms []atom
	i, n := 0, len(raw)

	for i < n {
		for i < n && raw[i] == ' ' {
			i++
		}
		if i >= n {
			break
		}

		if raw[i] == '"' {
			start := i
			j := i + 1
			for j < n && raw[j] != '"' {
				j++
			}
			if j >= n {
				return nil, perr.New(perr.QueryInvalid, "unterminated quoted phrase").WithPos(start)
			}
			phraseText := raw[i+1 : j]
			i = j + 1

			proximity := 0
			if i < n && raw[i] == '~' {
				k := i + 1
				for k < n && raw[k] >= '0' && raw[k] <= '9' {
					k++
				}
				if k > i+1 {
					v, _ := strconv.Atoi(raw[i+1 : k])
					proximity = v
					i = k
				}
			}

			boost := 0.0
			if i < n && raw[i] == '^' {
				b, next := parseBoost(raw, i)
				boost, i = b, next
			}

			atoms = append(atoms, atom{text: phraseText, phrase: true, proximity: proximity, boost: boost})
			continue
		}

		j := i
		for j < n && raw[j] != ' ' {
			j++
		}
		word := raw[i:j]
		i = j

		switch strings.ToUpper(word) {
		case "AND":
			atoms = append(atoms, atom{op: opAnd})
			continue
		case "OR":
			atoms = append(atoms, atom{op: opOr})
			continue
		case "NOT":
			atoms = append(atoms, atom{op: opNot})
			continue
		}

		negate := false
		if strings.HasPrefix(word, "-") && len(word) > 1 {
			negate = true
			word = word[1:]
		}

		field := ""
		if idx := strings.Index(word, ":"); idx > 0 {
			field = word[:idx]
			word = word[idx+1:]
		}

		boost := 0.0
		if idx := strings.LastIndex(word, "^"); idx > 0 {
			if v, err := strconv.ParseFloat(word[idx+1:], 64); err == nil {
				boost = v
				word = word[:idx]
			}
		}

		if word == "" {
			continue
		}

		if negate {
			atoms = append(atoms, atom{op: opNot})
		}
		atoms = append(atoms, atom{field: field, text: word, boost: boost, wildcard: strings.Contains(word, "*")})
	}

	return atoms, nil
}

func parseBoost(raw string, i int) (float64, int) {
	n := len(raw)
	j := i + 1
	for j < n && (raw[j] == '.' || (raw[j] >= '0' && raw[j] <= '9')) {
		j++
	}
	if j == i+1 {
		return 0, i
	}
	v, err := strconv.ParseFloat(raw[i+1:j], 64)
	if err != nil {
		return 0, i
	}
	return v, j
}

func compileAtom(a atom, opts Options) (query.Query, error) {
	field := resolveField(a.field, opts.FieldAliases)

	switch {
	case a.phrase:
		// bleve's MatchPhraseQuery has no slop parameter: it always requires
		// exact term adjacency. A "~N" suffix with N > 0 asks for something
		// bleve cannot express, so it's rejected rather than silently
		// matched as an exact phrase.
		if a.proximity > 0 {
			return nil, perr.Newf(perr.QueryInvalid,
				`phrase proximity "~%d" is not supported; only exact phrase match ("~0" or no suffix) is`, a.proximity)
		}
		if field != "" {
			q := bleve.NewMatchPhraseQuery(a.text)
			q.SetField(field)
			if a.boost > 0 {
				q.SetBoost(a.boost)
			}
			return q, nil
		}

		var disjuncts []query.Query
		for _, f := range opts.DefaultFields {
			w := opts.Weights[f]
			if w == 0 {
				w = 1
			}
			if a.boost > 0 {
				w *= a.boost
			}
			pq := bleve.NewMatchPhraseQuery(a.text)
			pq.SetField(f)
			pq.SetBoost(w)
			disjuncts = append(disjuncts, pq)
		}
		dq := bleve.NewDisjunctionQuery(disjuncts...)
		dq.SetMin(1)
		return dq, nil

	case a.wildcard:
		q := bleve.NewWildcardQuery(a.text)
		if field != "" {
			q.SetField(field)
		}
		if a.boost > 0 {
			q.SetBoost(a.boost)
		}
		return q, nil

	case field != "":
		q := bleve.NewMatchQuery(a.text)
		q.SetField(field)
		boost := a.boost
		if boost == 0 {
			boost = 1
		}
		q.SetBoost(boost)
		return q, nil

	default:
		var disjuncts []query.Query
		for _, f := range opts.DefaultFields {
			w := opts.Weights[f]
			if w == 0 {
				w = 1
			}
			if a.boost > 0 {
				w *= a.boost
			}
			mq := bleve.NewMatchQuery(a.text)
			mq.SetField(f)
			mq.SetBoost(w)
			disjuncts = append(disjuncts, mq)
		}
		dq := bleve.NewDisjunctionQuery(disjuncts...)
		dq.SetMin(1)
		return dq, nil
	}
}

func resolveField(field string, aliases map[string]string) string {
	if field == "" {
		return ""
	}
	if real, ok := aliases[field]; ok {
		return real
	}
	return field
}
