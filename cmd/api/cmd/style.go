package cmd

import (
	"fmt"

	"github.com/pterm/pterm"

	"civic-vote/api"
	"civic-vote/models"
)

func validity(ok bool) string {
	if ok {
		return pterm.LightGreen("valid")
	}
	return pterm.LightRed("INVALID")
}

func printChainStatus(addr string, s api.ChainStatus) error {
	polls := pterm.LightGreen("open")
	if !s.PollsOpen {
		polls = pterm.LightRed("closed")
	}

	pterm.DefaultSection.Println("Vote ledger at " + addr)
	return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"Field", "Value"},
		{"Blocks", fmt.Sprint(s.TotalBlocks)},
		{"Votes", fmt.Sprint(s.TotalVotes)},
		{"Chain", validity(s.IsValid)},
		{"Latest hash", s.LatestBlockHash},
		{"Difficulty", fmt.Sprint(s.Difficulty)},
		{"Algorithm", s.Algorithm},
		{"Pending votes", fmt.Sprint(s.PendingVotes)},
		{"Polls", polls},
	}).Render()
}

func printExport(path string, export *models.ChainExport, valid bool) error {
	votes := 0
	for _, b := range export.Blocks {
		votes += len(b.Votes)
	}

	pbox := pterm.DefaultBox.WithLeftPadding(4).WithRightPadding(4).WithTopPadding(1).WithBottomPadding(1)
	info := pterm.Sprintfln("file:       %s", path) +
		pterm.Sprintfln("exported:   %s", export.ExportedAt.Format(models.ISOTimestamp)) +
		pterm.Sprintfln("algorithm:  %s (difficulty %d)", export.Algorithm, export.Difficulty) +
		pterm.Sprintfln("blocks:     %d", len(export.Blocks)) +
		pterm.Sprintf("votes:      %d", votes)
	pbox.WithTitle(pterm.LightYellow("|LEDGER AUDIT|")).WithTitleTopCenter().Println(info)

	if valid {
		pterm.Success.Println("chain is " + validity(true))
		return nil
	}
	pterm.Error.Println("chain is " + validity(false))
	return fmt.Errorf("ledger export %s failed validation", path)
}
