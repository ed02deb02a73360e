package game

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var csvHeader = []string{
	"Round", "Team", "Prompt", "Output", "Notes",
	"Creativity", "Clarity", "PromptPower", "RoundTotal", "CumulativeScore",
}

// WriteRoundCSV writes the current round as CSV, one row per team in the
// snapshot's team order. The cumulative column is the team's banked score
// plus the current (possibly not yet finalized) round total, matching what
// the facilitator sees on screen at export time.
func WriteRoundCSV(w io.Writer, snap *Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range snap.Teams {
		sub := snap.Submissions[t.ID]
		if sub == nil {
			sub = &Submission{}
		}
		sc := snap.Scores[t.ID]
		total := sc.Total()
		row := []string{
			strconv.Itoa(snap.Game.CurrentRound),
			t.Name,
			flatten(sub.Prompt),
			flatten(sub.Output),
			flatten(sub.Notes),
			strconv.Itoa(criterionOrZero(sc, FieldCreativity)),
			strconv.Itoa(criterionOrZero(sc, FieldClarity)),
			strconv.Itoa(criterionOrZero(sc, FieldPower)),
			strconv.Itoa(total),
			strconv.Itoa(t.Score + total),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// flatten replaces line breaks (\r\n, \n, \r) with spaces before the csv
// writer applies quoting, so free text never spans rows.
func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}

func criterionOrZero(s *Score, field string) int {
	if s == nil {
		return 0
	}
	switch field {
	case FieldCreativity:
		return clampCriterion(s.Creativity)
	case FieldClarity:
		return clampCriterion(s.Clarity)
	case FieldPower:
		return clampCriterion(s.Power)
	}
	return 0
}
