package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/lox/pokerroom/poker"
)

// EvaluateCmd ranks hands and names the winners.
type EvaluateCmd struct {
	Hands []string `arg:"" help:"Hands as space separated cards, e.g. \"As Kd\""`
	Board string   `short:"b" help:"Community cards shared by every hand, e.g. \"2c 7d Th\""`
}

type evaluated struct {
	input    string
	hole     []poker.Card
	rank     poker.HandRank
	category poker.HoleCardCategory
}

func (c *EvaluateCmd) Run() error {
	return c.evaluate(os.Stdout)
}

func (c *EvaluateCmd) evaluate(out io.Writer) error {
	if len(c.Hands) == 0 {
		return fmt.Errorf("no hands to evaluate")
	}
	board, err := poker.ParseCards(c.Board)
	if err != nil {
		return fmt.Errorf("board: %w", err)
	}

	seen := make(map[poker.Card]string)
	claim := func(cards []poker.Card, owner string) error {
		for _, card := range cards {
			if prev, ok := seen[card]; ok {
				return fmt.Errorf("%s appears in both %s and %s", card, prev, owner)
			}
			seen[card] = owner
		}
		return nil
	}
	if err := claim(board, "board"); err != nil {
		return err
	}

	hands := make([]evaluated, 0, len(c.Hands))
	for _, input := range c.Hands {
		hole, err := poker.ParseCards(input)
		if err != nil {
			return fmt.Errorf("hand %q: %w", input, err)
		}
		if err := claim(hole, fmt.Sprintf("%q", input)); err != nil {
			return err
		}
		rank, err := poker.Evaluate(append(append([]poker.Card{}, hole...), board...))
		if err != nil {
			return fmt.Errorf("hand %q: %w", input, err)
		}
		h := evaluated{input: input, hole: hole, rank: rank}
		if len(hole) == 2 {
			h.category = poker.CategorizeHoleCards(hole[0], hole[1])
		}
		hands = append(hands, h)
	}

	best := 0
	for i := range hands {
		if poker.Compare(hands[i].rank, hands[best].rank) > 0 {
			best = i
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HAND\tCATEGORY\tRANK\t")
	for _, h := range hands {
		marker := ""
		if poker.Compare(h.rank, hands[best].rank) == 0 {
			marker = "winner"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", poker.FormatCards(h.hole), h.category, h.rank.Describe(), marker)
	}
	return w.Flush()
}
