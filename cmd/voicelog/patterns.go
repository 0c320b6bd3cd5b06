package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/voicelog/product-identity/app/patterns"
	"github.com/voicelog/product-identity/models"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns <user-id>",
	Short: "Detect recurring meal patterns for a user",
	Long: `Group the user's recent food, supplement and medication events into
sessions and list item sets that recur and are not yet templates.

Examples:
  voicelog patterns 7f3c...
  voicelog patterns 7f3c... --window 45m --min 3 --lookback 14
  voicelog patterns 7f3c... --promote "Morning Stack" --fingerprint "p-d3|p-mag"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		window, _ := cmd.Flags().GetDuration("window")
		minOccurrences, _ := cmd.Flags().GetInt("min")
		lookback, _ := cmd.Flags().GetInt("lookback")
		promote, _ := cmd.Flags().GetString("promote")
		fingerprint, _ := cmd.Flags().GetString("fingerprint")

		db, err := openDB()
		if err != nil {
			return err
		}
		detector := patterns.NewDetector(models.NewEventsRepository(db), models.NewTemplatesRepository(db), cfg.Patterns)
		userID := args[0]
		opts := patterns.Options{
			TimeWindow:     window,
			MinOccurrences: minOccurrences,
			LookbackDays:   lookback,
		}

		if promote == "" {
			return printJSON(cmd, detector.DetectMealPatterns(cmd.Context(), userID, opts))
		}

		if fingerprint == "" {
			return fmt.Errorf("--fingerprint is required with --promote")
		}
		pattern, ok := detector.FindPattern(cmd.Context(), userID, fingerprint, opts)
		if !ok {
			return fmt.Errorf("no pattern with fingerprint %q", fingerprint)
		}
		template, err := detector.PromoteToTemplate(cmd.Context(), userID, promote, pattern)
		if err != nil {
			return err
		}
		return printJSON(cmd, template)
	},
}

func init() {
	patternsCmd.Flags().Duration("window", 0, "Session time window (default from config)")
	patternsCmd.Flags().Int("min", 0, "Minimum occurrences (default from config)")
	patternsCmd.Flags().Int("lookback", 0, "Lookback in days (default from config)")
	patternsCmd.Flags().String("promote", "", "Promote the pattern to a template with this name")
	patternsCmd.Flags().String("fingerprint", "", "Fingerprint of the pattern to promote")
	rootCmd.AddCommand(patternsCmd)
}
