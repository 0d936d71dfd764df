package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal <trade-id>",
	Short: "Attach notes, tags, emotion and a rating to a trade",
	Long: `Update the journal entry of a trade. Only the flags given are changed.

Examples:
  tradelog journal 01HV... --notes "chased the gap" --tags fomo,gap --rating 2
  tradelog journal 01HV... --emotion calm`,
	Args: cobra.ExactArgs(1),
	RunE: runJournal,
}

var (
	journalNotes   string
	journalTags    string
	journalEmotion string
	journalRating  int
)

func init() {
	rootCmd.AddCommand(journalCmd)

	journalCmd.Flags().StringVarP(&journalNotes, "notes", "n", "", "free-form notes")
	journalCmd.Flags().StringVarP(&journalTags, "tags", "t", "", "comma separated tags")
	journalCmd.Flags().StringVarP(&journalEmotion, "emotion", "e", "", "how the trade felt")
	journalCmd.Flags().IntVarP(&journalRating, "rating", "r", 0, "rating from 0 to 5")
}

func runJournal(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.ledger.GetTrade(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	j := t.Journal
	flags := cmd.Flags()
	if flags.Changed("notes") {
		j.Notes = journalNotes
	}
	if flags.Changed("tags") {
		j.Tags = splitTags(journalTags)
	}
	if flags.Changed("emotion") {
		j.Emotion = journalEmotion
	}
	if flags.Changed("rating") {
		j.Rating = journalRating
	}

	t, err = a.ledger.UpdateJournal(cmd.Context(), t.ID, j)
	if err != nil {
		return fmt.Errorf("update journal: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Journal updated for %s %s\n", t.Symbol, t.ID)
	return nil
}

func splitTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
